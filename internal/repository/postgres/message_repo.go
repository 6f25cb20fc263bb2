package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = "id, match_id, from_user_id, to_user_id, content, content_type, is_read, created_at"

// Create inserts through the match row so a concurrent unmatch or a
// non-participant sender yields no row instead of an orphaned message.
func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (match_id, from_user_id, to_user_id, content, content_type, is_read, created_at)
		SELECT m.id, $2::bigint,
			CASE WHEN m.user1_id = $2::bigint THEN m.user2_id ELSE m.user1_id END,
			$3::text, $4::varchar, FALSE, $5::timestamptz
		FROM matches m
		WHERE m.id = $1 AND m.status = 'active' AND (m.user1_id = $2::bigint OR m.user2_id = $2::bigint)
		RETURNING id, to_user_id, is_read`

	err := r.pool.QueryRow(ctx, query,
		msg.MatchID, msg.FromUserID, msg.Content, msg.ContentType, msg.CreatedAt,
	).Scan(&msg.ID, &msg.ToUserID, &msg.IsRead)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrPrecondition
	}
	return mapErr(err)
}

// MarkRead reports whether a message with id is addressed to toUserID. It
// never clears is_read, so concurrent calls converge.
func (r *MessageRepo) MarkRead(ctx context.Context, id, toUserID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET is_read = TRUE WHERE id = $1 AND to_user_id = $2`,
		id, toUserID,
	)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MessageRepo) MarkAllRead(ctx context.Context, matchID, toUserID int64) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET is_read = TRUE WHERE match_id = $1 AND to_user_id = $2 AND NOT is_read`,
		matchID, toUserID,
	)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *MessageRepo) ListByMatch(ctx context.Context, matchID int64) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE match_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.MatchID, &msg.FromUserID, &msg.ToUserID,
			&msg.Content, &msg.ContentType, &msg.IsRead, &msg.CreatedAt,
		); err != nil {
			return nil, mapErr(err)
		}
		messages = append(messages, msg)
	}
	return messages, mapErr(rows.Err())
}

func (r *MessageRepo) ListConversations(ctx context.Context, userID int64) ([]domain.ConversationRow, error) {
	query := `
		SELECT m.id, m.user1_id, m.user2_id, m.status, m.created_at, m.unmatched_at,
			u.id, u.display_name, p.object_key,
			lm.id, lm.from_user_id, lm.content, lm.created_at,
			(SELECT COUNT(*) FROM messages x
				WHERE x.match_id = m.id AND x.to_user_id = $1 AND NOT x.is_read) AS unread
		FROM matches m
		JOIN users u ON u.id = CASE WHEN m.user1_id = $1 THEN m.user2_id ELSE m.user1_id END
		LEFT JOIN profile_photos p ON p.user_id = u.id AND p.is_primary
		LEFT JOIN LATERAL (
			SELECT id, from_user_id, content, created_at
			FROM messages
			WHERE match_id = m.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		WHERE (m.user1_id = $1 OR m.user2_id = $1) AND m.status = 'active'
		ORDER BY COALESCE(lm.created_at, m.created_at) DESC, m.id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.ConversationRow
	for rows.Next() {
		var row domain.ConversationRow
		m := &row.Match
		if err := rows.Scan(
			&m.ID, &m.User1ID, &m.User2ID, &m.Status, &m.CreatedAt, &m.UnmatchedAt,
			&m.OtherUserID, &m.OtherDisplayName, &m.OtherPhotoKey,
			&row.LastMessageID, &row.LastMessageFrom, &row.LastMessage, &row.LastMessageAt,
			&row.UnreadCount,
		); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, row)
	}
	return out, mapErr(rows.Err())
}

func (r *MessageRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE to_user_id = $1 AND NOT is_read`, userID,
	).Scan(&n)
	return n, mapErr(err)
}
