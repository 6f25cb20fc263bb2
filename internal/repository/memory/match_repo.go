package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/vedran77/matrimony/internal/domain"
)

type MatchRepo struct {
	s *Store
}

func NewMatchRepo(s *Store) *MatchRepo {
	return &MatchRepo{s: s}
}

func (r *MatchRepo) InsertOrGet(_ context.Context, match *domain.Match) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing := r.byUsers(match.User1ID, match.User2ID); existing != nil {
		*match = *existing
		return false, nil
	}
	match.ID = r.s.nextID()
	cp := *match
	r.s.matches[match.ID] = &cp
	return true, nil
}

func (r *MatchRepo) GetByID(_ context.Context, id int64) (*domain.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MatchRepo) GetByUsers(_ context.Context, user1ID, user2ID int64) (*domain.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m := r.byUsers(user1ID, user2ID)
	if m == nil {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MatchRepo) MarkUnmatched(_ context.Context, id int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.matches[id]
	if !ok || m.Status != domain.MatchStatusActive {
		return false, nil
	}
	m.Status = domain.MatchStatusUnmatched
	m.UnmatchedAt = &at
	return true, nil
}

func (r *MatchRepo) ListActive(_ context.Context, userID int64) ([]domain.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Match
	for _, m := range r.s.activeFor(userID) {
		other := m.Other(userID)
		if _, ok := r.s.users[other]; !ok {
			continue
		}
		cp := *m
		cp.OtherUserID = other
		cp.OtherDisplayName, cp.OtherPhotoKey = r.s.userCard(other)
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b domain.Match) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *MatchRepo) CountActive(_ context.Context, userID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return len(r.s.activeFor(userID)), nil
}

func (r *MatchRepo) byUsers(user1ID, user2ID int64) *domain.Match {
	for _, m := range r.s.matches {
		if m.User1ID == user1ID && m.User2ID == user2ID {
			return m
		}
	}
	return nil
}

func (s *Store) activeFor(userID int64) []*domain.Match {
	var out []*domain.Match
	for _, m := range s.matches {
		if m.HasParticipant(userID) && m.Status == domain.MatchStatusActive {
			out = append(out, m)
		}
	}
	return out
}
