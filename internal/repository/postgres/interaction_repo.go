package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

type InteractionRepo struct {
	pool *pgxpool.Pool
}

func NewInteractionRepo(pool *pgxpool.Pool) *InteractionRepo {
	return &InteractionRepo{pool: pool}
}

const interactionColumns = "i.id, i.from_user_id, i.to_user_id, i.interaction_type, i.status, i.message, i.created_at"

// Upsert relies on the (from_user_id, to_user_id, interaction_type) unique
// constraint: the conflicting row is only rewritten while it is declined, so
// a concurrent duplicate gets no row back instead of a second pending one.
func (r *InteractionRepo) Upsert(ctx context.Context, in *domain.Interaction) (bool, error) {
	query := `
		INSERT INTO user_interactions AS i (from_user_id, to_user_id, interaction_type, message, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		ON CONFLICT (from_user_id, to_user_id, interaction_type) DO UPDATE
			SET status = 'pending', message = EXCLUDED.message, created_at = EXCLUDED.created_at
			WHERE i.status = 'declined'
		RETURNING i.id, i.status, i.created_at, (i.xmax = 0) AS inserted`

	var inserted bool
	var status string
	err := r.pool.QueryRow(ctx, query,
		in.FromUserID, in.ToUserID, string(in.Type), in.Message, in.CreatedAt,
	).Scan(&in.ID, &status, &in.CreatedAt, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, repository.ErrConflict
	}
	if err != nil {
		return false, mapErr(err)
	}
	in.Status = domain.InteractionStatus(status)
	return !inserted, nil
}

func (r *InteractionRepo) GetByID(ctx context.Context, id int64) (*domain.Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM user_interactions i WHERE i.id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *InteractionRepo) GetByTriple(ctx context.Context, fromUserID, toUserID int64, typ domain.InteractionType) (*domain.Interaction, error) {
	query := `
		SELECT ` + interactionColumns + `
		FROM user_interactions i
		WHERE i.from_user_id = $1 AND i.to_user_id = $2 AND i.interaction_type = $3`
	return r.scanOne(ctx, query, fromUserID, toUserID, string(typ))
}

func (r *InteractionRepo) SetStatus(ctx context.Context, id, toUserID int64, status domain.InteractionStatus) (*domain.Interaction, error) {
	query := `
		UPDATE user_interactions AS i SET status = $3
		WHERE i.id = $1 AND i.to_user_id = $2 AND i.status = 'pending'
		RETURNING ` + interactionColumns
	return r.scanOne(ctx, query, id, toUserID, string(status))
}

func (r *InteractionRepo) FindBetween(ctx context.Context, userA, userB int64, typ domain.InteractionType, status domain.InteractionStatus) (*domain.Interaction, error) {
	query := `
		SELECT ` + interactionColumns + `
		FROM user_interactions i
		WHERE ((i.from_user_id = $1 AND i.to_user_id = $2) OR (i.from_user_id = $2 AND i.to_user_id = $1))
			AND i.interaction_type = $3 AND i.status = $4
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT 1`
	return r.scanOne(ctx, query, userA, userB, string(typ), string(status))
}

func (r *InteractionRepo) ListReceived(ctx context.Context, userID int64, typ domain.InteractionType, status domain.InteractionStatus, limit int) ([]domain.Interaction, error) {
	query := `
		SELECT ` + interactionColumns + `, u.id, u.display_name, p.object_key
		FROM user_interactions i
		JOIN users u ON u.id = i.from_user_id
		LEFT JOIN profile_photos p ON p.user_id = u.id AND p.is_primary
		WHERE i.to_user_id = $1
			AND ($2 = '' OR i.interaction_type = $2)
			AND ($3 = '' OR i.status = $3)
		ORDER BY i.created_at DESC, i.id DESC`
	if limit > 0 {
		query += fmt.Sprintf("\n\t\tLIMIT %d", limit)
	}
	return r.scanJoined(ctx, query, userID, string(typ), string(status))
}

func (r *InteractionRepo) ListSent(ctx context.Context, userID int64, typ domain.InteractionType, status domain.InteractionStatus, limit int) ([]domain.Interaction, error) {
	query := `
		SELECT ` + interactionColumns + `, u.id, u.display_name, p.object_key
		FROM user_interactions i
		JOIN users u ON u.id = i.to_user_id
		LEFT JOIN profile_photos p ON p.user_id = u.id AND p.is_primary
		WHERE i.from_user_id = $1
			AND ($2 = '' OR i.interaction_type = $2)
			AND ($3 = '' OR i.status = $3)
		ORDER BY i.created_at DESC, i.id DESC`
	if limit > 0 {
		query += fmt.Sprintf("\n\t\tLIMIT %d", limit)
	}
	return r.scanJoined(ctx, query, userID, string(typ), string(status))
}

func (r *InteractionRepo) ListConnections(ctx context.Context, userID int64) ([]domain.Interaction, error) {
	query := `
		SELECT ` + interactionColumns + `, u.id, u.display_name, p.object_key
		FROM user_interactions i
		JOIN users u ON u.id = CASE WHEN i.from_user_id = $1 THEN i.to_user_id ELSE i.from_user_id END
		LEFT JOIN profile_photos p ON p.user_id = u.id AND p.is_primary
		WHERE (i.from_user_id = $1 OR i.to_user_id = $1)
			AND i.interaction_type = 'connect' AND i.status = 'accepted'
		ORDER BY i.created_at DESC, i.id DESC`
	return r.scanJoined(ctx, query, userID)
}

func (r *InteractionRepo) CountUnreciprocated(ctx context.Context, userID int64, typ domain.InteractionType) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM user_interactions i
		WHERE i.to_user_id = $1 AND i.interaction_type = $2
			AND NOT EXISTS (
				SELECT 1 FROM user_interactions r
				WHERE r.from_user_id = $1 AND r.to_user_id = i.from_user_id AND r.interaction_type = $2
			)`
	var n int
	if err := r.pool.QueryRow(ctx, query, userID, string(typ)).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (r *InteractionRepo) scanOne(ctx context.Context, query string, args ...any) (*domain.Interaction, error) {
	var in domain.Interaction
	var typ, status string
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&in.ID, &in.FromUserID, &in.ToUserID, &typ, &status, &in.Message, &in.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	in.Type = domain.InteractionType(typ)
	in.Status = domain.InteractionStatus(status)
	return &in, nil
}

func (r *InteractionRepo) scanJoined(ctx context.Context, query string, args ...any) ([]domain.Interaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		var typ, status string
		if err := rows.Scan(
			&in.ID, &in.FromUserID, &in.ToUserID, &typ, &status, &in.Message, &in.CreatedAt,
			&in.OtherUserID, &in.OtherDisplayName, &in.OtherPhotoKey,
		); err != nil {
			return nil, mapErr(err)
		}
		in.Type = domain.InteractionType(typ)
		in.Status = domain.InteractionStatus(status)
		out = append(out, in)
	}
	return out, mapErr(rows.Err())
}
