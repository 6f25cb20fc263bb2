package service

import (
	"context"
	"time"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

type MatchService struct {
	matches     repository.MatchRepository
	connections *ConnectionService
	photos      PhotoURLer
	now         func() time.Time
}

func NewMatchService(matches repository.MatchRepository, connections *ConnectionService, photos PhotoURLer) *MatchService {
	return &MatchService{
		matches:     matches,
		connections: connections,
		photos:      photos,
		now:         time.Now,
	}
}

// GetOrCreate returns the match between two connected users, creating it on
// first use. Concurrent callers converge on the same row. A pair that was
// unmatched stays closed.
func (s *MatchService) GetOrCreate(ctx context.Context, x, y int64) (*domain.Match, error) {
	if x == y {
		return nil, ErrSelfTarget
	}

	connected, err := s.connections.IsConnected(ctx, x, y)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, ErrNotConnected
	}

	u1, u2 := domain.CanonicalPair(x, y)
	match, err := retryOnce(ctx, func() (*domain.Match, error) {
		m := &domain.Match{
			User1ID:   u1,
			User2ID:   u2,
			Status:    domain.MatchStatusActive,
			CreatedAt: s.now().UTC(),
		}
		if _, err := s.matches.InsertOrGet(ctx, m); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		return nil, storageErr("creating match", err)
	}
	if match.Status != domain.MatchStatusActive {
		return nil, ErrMatchClosed
	}
	match.OtherUserID = y
	return match, nil
}

// Unmatch closes the match. Closing an already closed match is a no-op.
func (s *MatchService) Unmatch(ctx context.Context, matchID, actor int64) error {
	if _, err := s.GetForParticipant(ctx, matchID, actor); err != nil {
		return err
	}
	_, err := retryOnce(ctx, func() (bool, error) {
		return s.matches.MarkUnmatched(ctx, matchID, s.now().UTC())
	})
	return storageErr("unmatching", err)
}

// ListActiveFor returns the user's active matches, newest first.
func (s *MatchService) ListActiveFor(ctx context.Context, user int64) ([]domain.Match, error) {
	matches, err := retryOnce(ctx, func() ([]domain.Match, error) {
		return s.matches.ListActive(ctx, user)
	})
	if err != nil {
		return nil, storageErr("listing matches", err)
	}
	if matches == nil {
		return []domain.Match{}, nil
	}
	for i := range matches {
		matches[i].OtherUserPhotoURL = photoURL(ctx, s.photos, matches[i].OtherPhotoKey)
	}
	return matches, nil
}

// GetForParticipant loads a match actor takes part in, whatever its status.
func (s *MatchService) GetForParticipant(ctx context.Context, matchID, actor int64) (*domain.Match, error) {
	match, err := retryOnce(ctx, func() (*domain.Match, error) {
		return s.matches.GetByID(ctx, matchID)
	})
	if err != nil {
		return nil, storageErr("loading match", err)
	}
	if match == nil {
		return nil, ErrNotFound
	}
	if !match.HasParticipant(actor) {
		return nil, ErrForbidden
	}
	match.OtherUserID = match.Other(actor)
	return match, nil
}

func (s *MatchService) CountActive(ctx context.Context, user int64) (int, error) {
	n, err := retryOnce(ctx, func() (int, error) {
		return s.matches.CountActive(ctx, user)
	})
	return n, storageErr("counting matches", err)
}
