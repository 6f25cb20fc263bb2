package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

type PhotoRepo struct {
	s *Store
}

func NewPhotoRepo(s *Store) *PhotoRepo {
	return &PhotoRepo{s: s}
}

func (r *PhotoRepo) Add(_ context.Context, photo *domain.ProfilePhoto) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	hasPrimary := false
	for _, p := range r.s.photos {
		if p.UserID != photo.UserID {
			continue
		}
		if p.ObjectKey == photo.ObjectKey {
			return repository.ErrConflict
		}
		hasPrimary = hasPrimary || p.IsPrimary
	}
	photo.ID = r.s.nextID()
	photo.IsPrimary = !hasPrimary
	cp := *photo
	r.s.photos[photo.ID] = &cp
	return nil
}

func (r *PhotoRepo) SetPrimary(_ context.Context, photo *domain.ProfilePhoto) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var existing *domain.ProfilePhoto
	for _, p := range r.s.photos {
		if p.UserID != photo.UserID {
			continue
		}
		p.IsPrimary = false
		if p.ObjectKey == photo.ObjectKey {
			existing = p
		}
	}
	if existing != nil {
		existing.IsPrimary = true
		*photo = *existing
		return nil
	}
	photo.ID = r.s.nextID()
	photo.IsPrimary = true
	cp := *photo
	r.s.photos[photo.ID] = &cp
	return nil
}

func (r *PhotoRepo) GetPrimary(_ context.Context, userID int64) (*domain.ProfilePhoto, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.photos {
		if p.UserID == userID && p.IsPrimary {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *PhotoRepo) GetByID(_ context.Context, id int64) (*domain.ProfilePhoto, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.photos[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *PhotoRepo) ListByUser(_ context.Context, userID int64) ([]domain.ProfilePhoto, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.album(userID), nil
}

func (r *PhotoRepo) Delete(_ context.Context, id, userID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.photos[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	delete(r.s.photos, id)
	if p.IsPrimary {
		if rest := r.album(userID); len(rest) > 0 {
			r.s.photos[rest[0].ID].IsPrimary = true
		}
	}
	return true, nil
}

// album returns userID's photos, primary first, then oldest first.
func (r *PhotoRepo) album(userID int64) []domain.ProfilePhoto {
	var out []domain.ProfilePhoto
	for _, p := range r.s.photos {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b domain.ProfilePhoto) int {
		if a.IsPrimary != b.IsPrimary {
			if a.IsPrimary {
				return -1
			}
			return 1
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
