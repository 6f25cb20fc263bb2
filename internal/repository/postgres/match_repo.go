package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/matrimony/internal/domain"
)

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

const matchColumns = "m.id, m.user1_id, m.user2_id, m.status, m.created_at, m.unmatched_at"

// InsertOrGet never reads before writing: concurrent callers race on the
// (user1_id, user2_id) constraint and the losers load the winner's row.
func (r *MatchRepo) InsertOrGet(ctx context.Context, match *domain.Match) (bool, error) {
	query := `
		INSERT INTO matches AS m (user1_id, user2_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user1_id, user2_id) DO NOTHING
		RETURNING ` + matchColumns

	err := r.pool.QueryRow(ctx, query,
		match.User1ID, match.User2ID, match.Status, match.CreatedAt,
	).Scan(
		&match.ID, &match.User1ID, &match.User2ID, &match.Status, &match.CreatedAt, &match.UnmatchedAt,
	)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, mapErr(err)
	}

	existing, err := r.GetByUsers(ctx, match.User1ID, match.User2ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("match %d/%d vanished after conflict", match.User1ID, match.User2ID)
	}
	*match = *existing
	return false, nil
}

func (r *MatchRepo) GetByID(ctx context.Context, id int64) (*domain.Match, error) {
	return r.scanOne(ctx, `SELECT `+matchColumns+` FROM matches m WHERE m.id = $1`, id)
}

func (r *MatchRepo) GetByUsers(ctx context.Context, user1ID, user2ID int64) (*domain.Match, error) {
	return r.scanOne(ctx,
		`SELECT `+matchColumns+` FROM matches m WHERE m.user1_id = $1 AND m.user2_id = $2`,
		user1ID, user2ID,
	)
}

func (r *MatchRepo) MarkUnmatched(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE matches SET status = 'unmatched', unmatched_at = $2 WHERE id = $1 AND status = 'active'`,
		id, at,
	)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MatchRepo) ListActive(ctx context.Context, userID int64) ([]domain.Match, error) {
	query := `
		SELECT ` + matchColumns + `, u.id, u.display_name, p.object_key
		FROM matches m
		JOIN users u ON u.id = CASE WHEN m.user1_id = $1 THEN m.user2_id ELSE m.user1_id END
		LEFT JOIN profile_photos p ON p.user_id = u.id AND p.is_primary
		WHERE (m.user1_id = $1 OR m.user2_id = $1) AND m.status = 'active'
		ORDER BY m.created_at DESC, m.id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		if err := rows.Scan(
			&m.ID, &m.User1ID, &m.User2ID, &m.Status, &m.CreatedAt, &m.UnmatchedAt,
			&m.OtherUserID, &m.OtherDisplayName, &m.OtherPhotoKey,
		); err != nil {
			return nil, mapErr(err)
		}
		matches = append(matches, m)
	}
	return matches, mapErr(rows.Err())
}

func (r *MatchRepo) CountActive(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM matches WHERE (user1_id = $1 OR user2_id = $1) AND status = 'active'`,
		userID,
	).Scan(&n)
	return n, mapErr(err)
}

func (r *MatchRepo) scanOne(ctx context.Context, query string, args ...any) (*domain.Match, error) {
	var m domain.Match
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&m.ID, &m.User1ID, &m.User2ID, &m.Status, &m.CreatedAt, &m.UnmatchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}
