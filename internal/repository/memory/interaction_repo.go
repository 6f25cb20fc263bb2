package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

type InteractionRepo struct {
	s *Store
}

func NewInteractionRepo(s *Store) *InteractionRepo {
	return &InteractionRepo{s: s}
}

func (r *InteractionRepo) Upsert(_ context.Context, in *domain.Interaction) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing := r.triple(in.FromUserID, in.ToUserID, in.Type); existing != nil {
		if existing.Status != domain.StatusDeclined {
			return false, repository.ErrConflict
		}
		existing.Status = domain.StatusPending
		existing.Message = in.Message
		existing.CreatedAt = in.CreatedAt
		in.ID = existing.ID
		in.Status = existing.Status
		return true, nil
	}

	in.ID = r.s.nextID()
	in.Status = domain.StatusPending
	cp := *in
	cp.OtherUserID, cp.OtherDisplayName, cp.OtherPhotoKey, cp.OtherUserPhotoURL = 0, "", nil, nil
	r.s.interactions[in.ID] = &cp
	return false, nil
}

func (r *InteractionRepo) GetByID(_ context.Context, id int64) (*domain.Interaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	in, ok := r.s.interactions[id]
	if !ok {
		return nil, nil
	}
	cp := *in
	return &cp, nil
}

func (r *InteractionRepo) GetByTriple(_ context.Context, fromUserID, toUserID int64, typ domain.InteractionType) (*domain.Interaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	in := r.triple(fromUserID, toUserID, typ)
	if in == nil {
		return nil, nil
	}
	cp := *in
	return &cp, nil
}

func (r *InteractionRepo) SetStatus(_ context.Context, id, toUserID int64, status domain.InteractionStatus) (*domain.Interaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	in, ok := r.s.interactions[id]
	if !ok || in.ToUserID != toUserID || in.Status != domain.StatusPending {
		return nil, nil
	}
	in.Status = status
	cp := *in
	return &cp, nil
}

func (r *InteractionRepo) FindBetween(_ context.Context, userA, userB int64, typ domain.InteractionType, status domain.InteractionStatus) (*domain.Interaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := r.collect(func(in *domain.Interaction) bool {
		between := (in.FromUserID == userA && in.ToUserID == userB) ||
			(in.FromUserID == userB && in.ToUserID == userA)
		return between && in.Type == typ && in.Status == status
	})
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *InteractionRepo) ListReceived(_ context.Context, userID int64, typ domain.InteractionType, status domain.InteractionStatus, limit int) ([]domain.Interaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := r.collect(func(in *domain.Interaction) bool {
		return in.ToUserID == userID && matchesFilter(in, typ, status)
	})
	return limitTo(r.join(out, userID), limit), nil
}

func (r *InteractionRepo) ListSent(_ context.Context, userID int64, typ domain.InteractionType, status domain.InteractionStatus, limit int) ([]domain.Interaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := r.collect(func(in *domain.Interaction) bool {
		return in.FromUserID == userID && matchesFilter(in, typ, status)
	})
	return limitTo(r.join(out, userID), limit), nil
}

func (r *InteractionRepo) ListConnections(_ context.Context, userID int64) ([]domain.Interaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := r.collect(func(in *domain.Interaction) bool {
		return (in.FromUserID == userID || in.ToUserID == userID) &&
			in.Type == domain.InteractionConnect && in.Status == domain.StatusAccepted
	})
	return r.join(out, userID), nil
}

func (r *InteractionRepo) CountUnreciprocated(_ context.Context, userID int64, typ domain.InteractionType) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, in := range r.s.interactions {
		if in.ToUserID != userID || in.Type != typ {
			continue
		}
		if r.triple(userID, in.FromUserID, typ) == nil {
			n++
		}
	}
	return n, nil
}

func (r *InteractionRepo) triple(fromUserID, toUserID int64, typ domain.InteractionType) *domain.Interaction {
	for _, in := range r.s.interactions {
		if in.FromUserID == fromUserID && in.ToUserID == toUserID && in.Type == typ {
			return in
		}
	}
	return nil
}

// collect copies the rows accepted by keep, newest first.
func (r *InteractionRepo) collect(keep func(*domain.Interaction) bool) []domain.Interaction {
	var out []domain.Interaction
	for _, in := range r.s.interactions {
		if keep(in) {
			out = append(out, *in)
		}
	}
	slices.SortFunc(out, func(a, b domain.Interaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// join fills the counterpart fields relative to userID and drops rows whose
// counterpart no longer exists.
func (r *InteractionRepo) join(rows []domain.Interaction, userID int64) []domain.Interaction {
	out := rows[:0]
	for _, in := range rows {
		other := in.ToUserID
		if other == userID {
			other = in.FromUserID
		}
		if _, ok := r.s.users[other]; !ok {
			continue
		}
		in.OtherUserID = other
		in.OtherDisplayName, in.OtherPhotoKey = r.s.userCard(other)
		out = append(out, in)
	}
	return out
}

func matchesFilter(in *domain.Interaction, typ domain.InteractionType, status domain.InteractionStatus) bool {
	return (typ == "" || in.Type == typ) && (status == "" || in.Status == status)
}

func limitTo[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
