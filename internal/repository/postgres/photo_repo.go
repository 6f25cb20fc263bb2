package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/matrimony/internal/domain"
)

type PhotoRepo struct {
	pool *pgxpool.Pool
}

func NewPhotoRepo(pool *pgxpool.Pool) *PhotoRepo {
	return &PhotoRepo{pool: pool}
}

const photoColumns = "id, user_id, object_key, is_primary, created_at"

// lockAlbum serializes album writes for one user on the users row, so the
// "first photo is primary" and "promote on delete" rules see a stable album.
func lockAlbum(ctx context.Context, tx pgx.Tx, userID int64) error {
	_, err := tx.Exec(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID)
	return err
}

func (r *PhotoRepo) Add(ctx context.Context, photo *domain.ProfilePhoto) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockAlbum(ctx, tx, photo.UserID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO profile_photos (user_id, object_key, is_primary, created_at)
			VALUES ($1, $2,
				NOT EXISTS (SELECT 1 FROM profile_photos WHERE user_id = $1 AND is_primary),
				$3)
			RETURNING id, is_primary`,
			photo.UserID, photo.ObjectKey, photo.CreatedAt,
		).Scan(&photo.ID, &photo.IsPrimary)
	})
	return mapErr(err)
}

// SetPrimary stores photo as the user's only primary photo.
func (r *PhotoRepo) SetPrimary(ctx context.Context, photo *domain.ProfilePhoto) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockAlbum(ctx, tx, photo.UserID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE profile_photos SET is_primary = FALSE WHERE user_id = $1 AND is_primary`,
			photo.UserID,
		); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO profile_photos (user_id, object_key, is_primary, created_at)
			VALUES ($1, $2, TRUE, $3)
			ON CONFLICT (user_id, object_key) DO UPDATE SET is_primary = TRUE
			RETURNING id, created_at`,
			photo.UserID, photo.ObjectKey, photo.CreatedAt,
		).Scan(&photo.ID, &photo.CreatedAt)
	})
	if err != nil {
		return mapErr(err)
	}
	photo.IsPrimary = true
	return nil
}

func (r *PhotoRepo) GetPrimary(ctx context.Context, userID int64) (*domain.ProfilePhoto, error) {
	return r.scanOne(ctx,
		`SELECT `+photoColumns+` FROM profile_photos WHERE user_id = $1 AND is_primary`, userID)
}

func (r *PhotoRepo) GetByID(ctx context.Context, id int64) (*domain.ProfilePhoto, error) {
	return r.scanOne(ctx, `SELECT `+photoColumns+` FROM profile_photos WHERE id = $1`, id)
}

func (r *PhotoRepo) ListByUser(ctx context.Context, userID int64) ([]domain.ProfilePhoto, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+photoColumns+`
		FROM profile_photos
		WHERE user_id = $1
		ORDER BY is_primary DESC, created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var photos []domain.ProfilePhoto
	for rows.Next() {
		var p domain.ProfilePhoto
		if err := rows.Scan(&p.ID, &p.UserID, &p.ObjectKey, &p.IsPrimary, &p.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		photos = append(photos, p)
	}
	return photos, mapErr(rows.Err())
}

func (r *PhotoRepo) Delete(ctx context.Context, id, userID int64) (bool, error) {
	var deleted bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockAlbum(ctx, tx, userID); err != nil {
			return err
		}
		var wasPrimary bool
		err := tx.QueryRow(ctx,
			`DELETE FROM profile_photos WHERE id = $1 AND user_id = $2 RETURNING is_primary`,
			id, userID,
		).Scan(&wasPrimary)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		deleted = true
		if !wasPrimary {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE profile_photos SET is_primary = TRUE
			WHERE id = (
				SELECT id FROM profile_photos
				WHERE user_id = $1
				ORDER BY created_at ASC, id ASC
				LIMIT 1
			)`, userID)
		return err
	})
	if err != nil {
		return false, mapErr(err)
	}
	return deleted, nil
}

func (r *PhotoRepo) scanOne(ctx context.Context, query string, arg any) (*domain.ProfilePhoto, error) {
	var p domain.ProfilePhoto
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.UserID, &p.ObjectKey, &p.IsPrimary, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}
