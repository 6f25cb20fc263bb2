// Package memory is an in-process implementation of the repository
// interfaces. Every method holds the store mutex for its whole duration, which
// gives the same atomicity the postgres statements get from their
// constraints.
package memory

import (
	"sync"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

type Store struct {
	mu sync.Mutex

	seq          int64
	users        map[int64]*domain.User
	photos       map[int64]*domain.ProfilePhoto
	interactions map[int64]*domain.Interaction
	matches      map[int64]*domain.Match
	messages     map[int64]*domain.Message
}

func NewStore() *Store {
	return &Store{
		users:        make(map[int64]*domain.User),
		photos:       make(map[int64]*domain.ProfilePhoto),
		interactions: make(map[int64]*domain.Interaction),
		matches:      make(map[int64]*domain.Match),
		messages:     make(map[int64]*domain.Message),
	}
}

// nextID hands out ids from one sequence shared by all tables, so ids are
// unique and increase with insertion order.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// userCard returns the joined display fields for userID.
func (s *Store) userCard(userID int64) (string, *string) {
	var name string
	if u, ok := s.users[userID]; ok {
		name = u.DisplayName
	}
	for _, p := range s.photos {
		if p.UserID == userID && p.IsPrimary {
			key := p.ObjectKey
			return name, &key
		}
	}
	return name, nil
}

var (
	_ repository.UserRepository        = (*UserRepo)(nil)
	_ repository.PhotoRepository       = (*PhotoRepo)(nil)
	_ repository.InteractionRepository = (*InteractionRepo)(nil)
	_ repository.MatchRepository       = (*MatchRepo)(nil)
	_ repository.MessageRepository     = (*MessageRepo)(nil)
)
