package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/matrimony/internal/domain"
	"golang.org/x/sync/errgroup"
)

func TestGetOrCreateRequiresConnection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")

	_, err := env.matches.GetOrCreate(ctx, a, b)
	assert.ErrorIs(t, err, ErrNotConnected)

	req, err := env.connections.SendRequest(ctx, a, b, "")
	require.NoError(t, err)
	_, err = env.matches.GetOrCreate(ctx, a, b)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = env.connections.Decline(ctx, b, req.Request.ID)
	require.NoError(t, err)
	_, err = env.matches.GetOrCreate(ctx, b, a)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestGetOrCreateCanonicalAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")
	env.connect(t, a, b)

	first, err := env.matches.GetOrCreate(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, a, first.User1ID)
	assert.Equal(t, b, first.User2ID)
	assert.Equal(t, domain.MatchStatusActive, first.Status)

	second, err := env.matches.GetOrCreate(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")
	env.connect(t, a, b)

	const n = 20
	var mu sync.Mutex
	ids := make(map[int64]int)

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			x, y := a, b
			if i%2 == 1 {
				x, y = b, a
			}
			m, err := env.matches.GetOrCreate(ctx, x, y)
			if err != nil {
				return err
			}
			mu.Lock()
			ids[m.ID]++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, ids, 1)
	count, err := env.matches.CountActive(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnmatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b, c := env.user(t, "a"), env.user(t, "b"), env.user(t, "c")
	m := env.match(t, a, b)

	assert.ErrorIs(t, env.matches.Unmatch(ctx, m.ID, c), ErrForbidden)
	assert.ErrorIs(t, env.matches.Unmatch(ctx, m.ID+1000, a), ErrNotFound)

	require.NoError(t, env.matches.Unmatch(ctx, m.ID, a))
	require.NoError(t, env.matches.Unmatch(ctx, m.ID, b))

	stored, err := env.matchRepo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusUnmatched, stored.Status)
	assert.NotNil(t, stored.UnmatchedAt)

	_, err = env.matches.GetOrCreate(ctx, a, b)
	assert.ErrorIs(t, err, ErrMatchClosed)
	assert.ErrorIs(t, err, ErrForbidden)

	active, err := env.matches.ListActiveFor(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestListActiveForNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b, c := env.user(t, "a"), env.user(t, "b"), env.user(t, "c")

	_, err := env.profiles.SetPrimaryPhoto(ctx, c, domain.PhotoKeyPrefix(c)+"c.jpg")
	require.NoError(t, err)

	older := env.match(t, a, b)
	newer := env.match(t, c, a)

	active, err := env.matches.ListActiveFor(ctx, a)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].ID)
	assert.Equal(t, c, active[0].OtherUserID)
	assert.Equal(t, "c", active[0].OtherDisplayName)
	assert.NotNil(t, active[0].OtherUserPhotoURL)
	assert.Equal(t, older.ID, active[1].ID)
	assert.Equal(t, b, active[1].OtherUserID)
}
