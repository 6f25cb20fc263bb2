package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

// Ledger records directed interactions between users and moves them through
// pending -> accepted | declined. It holds no policy about what an accepted
// row means.
type Ledger struct {
	interactions repository.InteractionRepository
	users        repository.UserRepository
	now          func() time.Time
}

func NewLedger(interactions repository.InteractionRepository, users repository.UserRepository) *Ledger {
	return &Ledger{
		interactions: interactions,
		users:        users,
		now:          time.Now,
	}
}

// Record stores a pending interaction from -> to. A declined row for the same
// triple is reopened in place; a pending or accepted one yields ErrDuplicate.
func (l *Ledger) Record(ctx context.Context, from, to int64, typ domain.InteractionType, message string) (*domain.Interaction, error) {
	in, _, err := l.record(ctx, from, to, typ, message)
	return in, err
}

func (l *Ledger) record(ctx context.Context, from, to int64, typ domain.InteractionType, message string) (*domain.Interaction, bool, error) {
	if !typ.Valid() {
		return nil, false, fmt.Errorf("unknown interaction type %q", typ)
	}
	if from == to {
		return nil, false, ErrSelfTarget
	}

	target, err := retryOnce(ctx, func() (*domain.User, error) {
		return l.users.GetByID(ctx, to)
	})
	if err != nil {
		return nil, false, storageErr("looking up user", err)
	}
	if !target.IsActive() {
		return nil, false, ErrNotFound
	}

	in := &domain.Interaction{
		FromUserID: from,
		ToUserID:   to,
		Type:       typ,
		CreatedAt:  l.now().UTC(),
	}
	if msg := strings.TrimSpace(message); msg != "" {
		in.Message = &msg
	}

	reopened, err := l.interactions.Upsert(ctx, in)
	if errors.Is(err, repository.ErrConflict) {
		return nil, false, l.duplicate(ctx, in)
	}
	if err != nil {
		return nil, false, storageErr("recording interaction", err)
	}
	return in, reopened, nil
}

// duplicate picks the refinement of ErrDuplicate matching the row that won.
func (l *Ledger) duplicate(ctx context.Context, in *domain.Interaction) error {
	if in.Type != domain.InteractionConnect {
		return ErrDuplicate
	}
	existing, err := l.interactions.GetByTriple(ctx, in.FromUserID, in.ToUserID, in.Type)
	if err != nil || existing == nil {
		return ErrDuplicate
	}
	if existing.Status == domain.StatusAccepted {
		return ErrAlreadyConnected
	}
	return ErrRequestPending
}

// FindActive returns the row for the exact triple, or nil.
func (l *Ledger) FindActive(ctx context.Context, from, to int64, typ domain.InteractionType) (*domain.Interaction, error) {
	in, err := retryOnce(ctx, func() (*domain.Interaction, error) {
		return l.interactions.GetByTriple(ctx, from, to, typ)
	})
	if err != nil {
		return nil, storageErr("finding interaction", err)
	}
	return in, nil
}

// Transition lets the recipient of a pending row accept or decline it. The
// status change is a single compare-and-set so two racing calls cannot both
// succeed.
func (l *Ledger) Transition(ctx context.Context, id, actingUser int64, to domain.InteractionStatus) (*domain.Interaction, error) {
	if to != domain.StatusAccepted && to != domain.StatusDeclined {
		return nil, ErrInvalidTransition
	}

	in, err := l.interactions.SetStatus(ctx, id, actingUser, to)
	if err != nil {
		return nil, storageErr("updating interaction", err)
	}
	if in != nil {
		return in, nil
	}

	current, err := retryOnce(ctx, func() (*domain.Interaction, error) {
		return l.interactions.GetByID(ctx, id)
	})
	if err != nil {
		return nil, storageErr("loading interaction", err)
	}
	if current == nil || current.ToUserID != actingUser {
		return nil, ErrNotFound
	}
	return nil, ErrInvalidTransition
}
