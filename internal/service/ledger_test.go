package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/matrimony/internal/domain"
	"golang.org/x/sync/errgroup"
)

func TestLedgerRecordDuplicatePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")

	first, err := env.ledger.Record(ctx, a, b, domain.InteractionConnect, "Hi")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, first.Status)
	require.NotNil(t, first.Message)
	assert.Equal(t, "Hi", *first.Message)

	_, err = env.ledger.Record(ctx, a, b, domain.InteractionConnect, "Hi again")
	require.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorIs(t, err, ErrRequestPending)

	rows, err := env.interactions.ListSent(ctx, a, "", "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLedgerReopenAfterDecline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")

	first, err := env.ledger.Record(ctx, a, b, domain.InteractionConnect, "Hi")
	require.NoError(t, err)

	declined, err := env.ledger.Transition(ctx, first.ID, b, domain.StatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeclined, declined.Status)

	again, err := env.ledger.Record(ctx, a, b, domain.InteractionConnect, "Please reconsider")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, domain.StatusPending, again.Status)
	assert.True(t, again.CreatedAt.After(first.CreatedAt))

	rows, err := env.interactions.ListSent(ctx, a, domain.InteractionConnect, "", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.StatusPending, rows[0].Status)
	require.NotNil(t, rows[0].Message)
	assert.Equal(t, "Please reconsider", *rows[0].Message)
}

func TestLedgerAcceptedIsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")

	req, err := env.ledger.Record(ctx, a, b, domain.InteractionConnect, "")
	require.NoError(t, err)
	_, err = env.ledger.Transition(ctx, req.ID, b, domain.StatusAccepted)
	require.NoError(t, err)

	_, err = env.ledger.Record(ctx, a, b, domain.InteractionConnect, "")
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestLedgerSelfTarget(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a")

	_, err := env.ledger.Record(context.Background(), a, a, domain.InteractionConnect, "")
	assert.ErrorIs(t, err, ErrSelfTarget)
}

func TestLedgerRecordUnknownOrInactiveTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.user(t, "a")

	_, err := env.ledger.Record(ctx, a, 9999, domain.InteractionConnect, "")
	assert.ErrorIs(t, err, ErrNotFound)

	suspended := &domain.User{Email: "s@example.com", DisplayName: "s", Status: domain.UserStatusSuspended}
	require.NoError(t, env.users.Create(ctx, suspended))

	_, err = env.ledger.Record(ctx, a, suspended.ID, domain.InteractionConnect, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerTransitionVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b, c := env.user(t, "a"), env.user(t, "b"), env.user(t, "c")

	req, err := env.ledger.Record(ctx, a, b, domain.InteractionConnect, "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		id     int64
		actor  int64
		status domain.InteractionStatus
		want   error
	}{
		{"sender cannot accept", req.ID, a, domain.StatusAccepted, ErrNotFound},
		{"third party cannot decline", req.ID, c, domain.StatusDeclined, ErrNotFound},
		{"unknown id", req.ID + 1000, b, domain.StatusAccepted, ErrNotFound},
		{"pending is not a target", req.ID, b, domain.StatusPending, ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.Transition(ctx, tt.id, tt.actor, tt.status)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = env.ledger.Transition(ctx, req.ID, b, domain.StatusAccepted)
	require.NoError(t, err)

	_, err = env.ledger.Transition(ctx, req.ID, b, domain.StatusDeclined)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLedgerConcurrentRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")

	var ok, dup atomic.Int32
	var g errgroup.Group
	for range 16 {
		g.Go(func() error {
			_, err := env.ledger.Record(ctx, a, b, domain.InteractionConnect, "")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrDuplicate):
				dup.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 15, dup.Load())

	rows, err := env.interactions.ListSent(ctx, a, "", "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLedgerFindActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")

	got, err := env.ledger.FindActive(ctx, a, b, domain.InteractionInterest)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec, err := env.ledger.Record(ctx, a, b, domain.InteractionInterest, "")
	require.NoError(t, err)

	got, err = env.ledger.FindActive(ctx, a, b, domain.InteractionInterest)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)

	got, err = env.ledger.FindActive(ctx, b, a, domain.InteractionInterest)
	require.NoError(t, err)
	assert.Nil(t, got)
}
