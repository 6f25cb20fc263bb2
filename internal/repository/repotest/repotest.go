// Package repotest holds the behaviour every repository implementation must
// share. Each store runs it from its own tests.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

type Repos struct {
	Users        repository.UserRepository
	Photos       repository.PhotoRepository
	Interactions repository.InteractionRepository
	Matches      repository.MatchRepository
	Messages     repository.MessageRepository
}

// Run executes the contract against stores built by open. open may share
// state between subtests; every subtest works on fresh users.
func Run(t *testing.T, open func(t *testing.T) Repos) {
	t.Run("Users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("Photos", func(t *testing.T) { testPhotos(t, open(t)) })
	t.Run("InteractionUpsert", func(t *testing.T) { testInteractionUpsert(t, open(t)) })
	t.Run("InteractionQueries", func(t *testing.T) { testInteractionQueries(t, open(t)) })
	t.Run("Matches", func(t *testing.T) { testMatches(t, open(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, open(t)) })
}

// clock hands out strictly increasing timestamps at database precision.
type clock struct{ now time.Time }

func newClock() *clock {
	return &clock{now: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *clock) next() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newUser(t *testing.T, r Repos, name string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		Email:        name + "-" + uuid.NewString() + "@example.com",
		DisplayName:  name,
		PasswordHash: "x",
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, r.Users.Create(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func pending(from, to int64, typ domain.InteractionType, at time.Time) *domain.Interaction {
	return &domain.Interaction{FromUserID: from, ToUserID: to, Type: typ, Status: domain.StatusPending, CreatedAt: at}
}

func testUsers(t *testing.T, r Repos) {
	ctx := context.Background()
	u := newUser(t, r, "asha")

	got, err := r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.Email, got.Email)

	got, err = r.Users.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	dup := *u
	dup.ID = 0
	assert.ErrorIs(t, r.Users.Create(ctx, &dup), repository.ErrConflict)

	missing, err := r.Users.GetByID(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, r.Users.TouchLogin(ctx, u.ID, at))
	got, err = r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))
}

func testPhotos(t *testing.T, r Repos) {
	ctx := context.Background()
	c := newClock()
	u := newUser(t, r, "ravi")
	other := newUser(t, r, "meera")
	key := func(name string) string { return domain.PhotoKeyPrefix(u.ID) + name }

	none, err := r.Photos.GetPrimary(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	first := &domain.ProfilePhoto{UserID: u.ID, ObjectKey: key("a.jpg"), CreatedAt: c.next()}
	require.NoError(t, r.Photos.Add(ctx, first))
	assert.True(t, first.IsPrimary, "the first photo becomes primary")
	second := &domain.ProfilePhoto{UserID: u.ID, ObjectKey: key("b.jpg"), CreatedAt: c.next()}
	require.NoError(t, r.Photos.Add(ctx, second))
	assert.False(t, second.IsPrimary)
	third := &domain.ProfilePhoto{UserID: u.ID, ObjectKey: key("c.jpg"), CreatedAt: c.next()}
	require.NoError(t, r.Photos.Add(ctx, third))

	dup := &domain.ProfilePhoto{UserID: u.ID, ObjectKey: key("a.jpg"), CreatedAt: c.next()}
	assert.ErrorIs(t, r.Photos.Add(ctx, dup), repository.ErrConflict)

	// Promoting a key already in the album reuses its row.
	promoted := &domain.ProfilePhoto{UserID: u.ID, ObjectKey: key("c.jpg"), CreatedAt: c.next()}
	require.NoError(t, r.Photos.SetPrimary(ctx, promoted))
	assert.Equal(t, third.ID, promoted.ID)

	album, err := r.Photos.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, album, 3)
	assert.Equal(t, []int64{third.ID, first.ID, second.ID}, []int64{album[0].ID, album[1].ID, album[2].ID})
	assert.True(t, album[0].IsPrimary)
	assert.False(t, album[1].IsPrimary)

	got, err := r.Photos.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, key("b.jpg"), got.ObjectKey)

	ok, err := r.Photos.Delete(ctx, second.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, ok, "only the owner deletes")

	ok, err = r.Photos.Delete(ctx, third.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	primary, err := r.Photos.GetPrimary(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.Equal(t, first.ID, primary.ID, "the oldest remaining photo is promoted")

	ok, err = r.Photos.Delete(ctx, third.ID, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := r.Photos.GetByID(ctx, third.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// A new key set as primary joins the album.
	fresh := &domain.ProfilePhoto{UserID: u.ID, ObjectKey: key("d.jpg"), CreatedAt: c.next()}
	require.NoError(t, r.Photos.SetPrimary(ctx, fresh))
	album, err = r.Photos.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, album, 3)
	assert.Equal(t, fresh.ID, album[0].ID)
}

func testInteractionUpsert(t *testing.T, r Repos) {
	ctx := context.Background()
	c := newClock()
	a, b := newUser(t, r, "a"), newUser(t, r, "b")

	in := pending(a.ID, b.ID, domain.InteractionConnect, c.next())
	reopened, err := r.Interactions.Upsert(ctx, in)
	require.NoError(t, err)
	assert.False(t, reopened)
	assert.Equal(t, domain.StatusPending, in.Status)

	_, err = r.Interactions.Upsert(ctx, pending(a.ID, b.ID, domain.InteractionConnect, c.next()))
	assert.ErrorIs(t, err, repository.ErrConflict, "pending row blocks a second one")

	// Only the recipient can move it, and only once.
	moved, err := r.Interactions.SetStatus(ctx, in.ID, a.ID, domain.StatusDeclined)
	require.NoError(t, err)
	assert.Nil(t, moved)
	moved, err = r.Interactions.SetStatus(ctx, in.ID, b.ID, domain.StatusDeclined)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, domain.StatusDeclined, moved.Status)
	moved, err = r.Interactions.SetStatus(ctx, in.ID, b.ID, domain.StatusAccepted)
	require.NoError(t, err)
	assert.Nil(t, moved)

	msg := "again"
	again := pending(a.ID, b.ID, domain.InteractionConnect, c.next())
	again.Message = &msg
	reopened, err = r.Interactions.Upsert(ctx, again)
	require.NoError(t, err)
	assert.True(t, reopened)
	assert.Equal(t, in.ID, again.ID)

	stored, err := r.Interactions.GetByTriple(ctx, a.ID, b.ID, domain.InteractionConnect)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusPending, stored.Status)
	require.NotNil(t, stored.Message)
	assert.Equal(t, "again", *stored.Message)

	// Another type is an independent row.
	view := pending(a.ID, b.ID, domain.InteractionView, c.next())
	_, err = r.Interactions.Upsert(ctx, view)
	require.NoError(t, err)
	assert.NotEqual(t, in.ID, view.ID)
}

func testInteractionQueries(t *testing.T, r Repos) {
	ctx := context.Background()
	c := newClock()
	a, b, x := newUser(t, r, "a"), newUser(t, r, "b"), newUser(t, r, "x")

	ab := pending(a.ID, b.ID, domain.InteractionConnect, c.next())
	_, err := r.Interactions.Upsert(ctx, ab)
	require.NoError(t, err)
	xb := pending(x.ID, b.ID, domain.InteractionConnect, c.next())
	_, err = r.Interactions.Upsert(ctx, xb)
	require.NoError(t, err)
	_, err = r.Interactions.Upsert(ctx, pending(a.ID, b.ID, domain.InteractionInterest, c.next()))
	require.NoError(t, err)
	_, err = r.Interactions.Upsert(ctx, pending(x.ID, b.ID, domain.InteractionInterest, c.next()))
	require.NoError(t, err)
	_, err = r.Interactions.Upsert(ctx, pending(b.ID, x.ID, domain.InteractionInterest, c.next()))
	require.NoError(t, err)

	received, err := r.Interactions.ListReceived(ctx, b.ID, domain.InteractionConnect, domain.StatusPending, 0)
	require.NoError(t, err)
	require.Len(t, received, 2)
	assert.Equal(t, xb.ID, received[0].ID, "newest first")
	assert.Equal(t, x.ID, received[0].OtherUserID)
	assert.Equal(t, "x", received[0].OtherDisplayName)

	limited, err := r.Interactions.ListReceived(ctx, b.ID, "", "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	sent, err := r.Interactions.ListSent(ctx, a.ID, "", domain.StatusPending, 0)
	require.NoError(t, err)
	assert.Len(t, sent, 2)
	assert.Equal(t, b.ID, sent[0].OtherUserID)

	n, err := r.Interactions.CountUnreciprocated(ctx, b.ID, domain.InteractionInterest)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "x's interest is returned by b")

	_, err = r.Interactions.SetStatus(ctx, ab.ID, b.ID, domain.StatusAccepted)
	require.NoError(t, err)

	found, err := r.Interactions.FindBetween(ctx, b.ID, a.ID, domain.InteractionConnect, domain.StatusAccepted)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ab.ID, found.ID)

	none, err := r.Interactions.FindBetween(ctx, x.ID, a.ID, domain.InteractionConnect, domain.StatusAccepted)
	require.NoError(t, err)
	assert.Nil(t, none)

	conns, err := r.Interactions.ListConnections(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, b.ID, conns[0].OtherUserID)
	conns, err = r.Interactions.ListConnections(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, a.ID, conns[0].OtherUserID)
}

func newMatch(t *testing.T, r Repos, a, b int64, at time.Time) *domain.Match {
	t.Helper()
	u1, u2 := domain.CanonicalPair(a, b)
	m := &domain.Match{User1ID: u1, User2ID: u2, Status: domain.MatchStatusActive, CreatedAt: at}
	created, err := r.Matches.InsertOrGet(context.Background(), m)
	require.NoError(t, err)
	require.True(t, created)
	return m
}

func testMatches(t *testing.T, r Repos) {
	ctx := context.Background()
	c := newClock()
	a, b, x := newUser(t, r, "a"), newUser(t, r, "b"), newUser(t, r, "x")

	m := newMatch(t, r, a.ID, b.ID, c.next())

	u1, u2 := domain.CanonicalPair(a.ID, b.ID)
	dup := &domain.Match{User1ID: u1, User2ID: u2, Status: domain.MatchStatusActive, CreatedAt: c.next()}
	created, err := r.Matches.InsertOrGet(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, dup.ID)

	got, err := r.Matches.GetByUsers(ctx, u1, u2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)

	newMatch(t, r, a.ID, x.ID, c.next())

	active, err := r.Matches.ListActive(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, x.ID, active[0].OtherUserID, "newest first")
	assert.Equal(t, "x", active[0].OtherDisplayName)

	n, err := r.Matches.CountActive(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := r.Matches.MarkUnmatched(ctx, m.ID, c.next())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Matches.MarkUnmatched(ctx, m.ID, c.next())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = r.Matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusUnmatched, got.Status)
	assert.NotNil(t, got.UnmatchedAt)

	n, err = r.Matches.CountActive(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	missing, err := r.Matches.GetByID(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func send(t *testing.T, r Repos, matchID, from int64, content string, at time.Time) *domain.Message {
	t.Helper()
	msg := &domain.Message{MatchID: matchID, FromUserID: from, Content: content, ContentType: "text", CreatedAt: at}
	require.NoError(t, r.Messages.Create(context.Background(), msg))
	return msg
}

func testMessages(t *testing.T, r Repos) {
	ctx := context.Background()
	c := newClock()
	a, b, x := newUser(t, r, "a"), newUser(t, r, "b"), newUser(t, r, "x")
	m := newMatch(t, r, a.ID, b.ID, c.next())
	quiet := newMatch(t, r, a.ID, x.ID, c.next())

	first := send(t, r, m.ID, a.ID, "hello", c.next())
	assert.Equal(t, b.ID, first.ToUserID)
	assert.False(t, first.IsRead)
	send(t, r, m.ID, a.ID, "how are you", c.next())
	reply := send(t, r, m.ID, b.ID, "fine", c.next())
	assert.Equal(t, a.ID, reply.ToUserID)

	err := r.Messages.Create(ctx, &domain.Message{MatchID: m.ID, FromUserID: x.ID, Content: "hi", ContentType: "text", CreatedAt: c.next()})
	assert.ErrorIs(t, err, repository.ErrPrecondition)

	thread, err := r.Messages.ListByMatch(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "hello", thread[0].Content)
	assert.Equal(t, "fine", thread[2].Content)

	n, err := r.Messages.CountUnread(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	convs, err := r.Messages.ListConversations(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].UnreadCount)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "fine", *convs[0].LastMessage)
	assert.Equal(t, a.ID, convs[0].Match.OtherUserID)

	convs, err = r.Messages.ListConversations(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, m.ID, convs[0].Match.ID, "latest activity first")
	assert.Equal(t, quiet.ID, convs[1].Match.ID)
	assert.Nil(t, convs[1].LastMessage)

	ok, err := r.Messages.MarkRead(ctx, first.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok, "the sender is not the recipient")
	ok, err = r.Messages.MarkRead(ctx, first.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	updated, err := r.Messages.MarkAllRead(ctx, m.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	updated, err = r.Messages.MarkAllRead(ctx, m.ID, b.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)

	thread, err = r.Messages.ListByMatch(ctx, m.ID)
	require.NoError(t, err)
	for _, msg := range thread {
		assert.Equal(t, msg.ToUserID == b.ID, msg.IsRead, msg.Content)
	}

	_, err = r.Matches.MarkUnmatched(ctx, m.ID, c.next())
	require.NoError(t, err)
	err = r.Messages.Create(ctx, &domain.Message{MatchID: m.ID, FromUserID: a.ID, Content: "bye", ContentType: "text", CreatedAt: c.next()})
	assert.ErrorIs(t, err, repository.ErrPrecondition)

	convs, err = r.Messages.ListConversations(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, convs)
}
