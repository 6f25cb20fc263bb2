package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/matrimony/internal/domain"
	"golang.org/x/sync/errgroup"
)

func TestConnectToConversationScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1, u2 := env.user(t, "one"), env.user(t, "two")
	require.Equal(t, int64(1), u1)
	require.Equal(t, int64(2), u2)

	sent, err := env.connections.SendRequest(ctx, u1, u2, "Hi")
	require.NoError(t, err)

	view, err := env.connections.ListRequests(ctx, u2)
	require.NoError(t, err)
	require.Len(t, view.Received, 1)
	assert.Equal(t, domain.StatusPending, view.Received[0].Status)
	require.NotNil(t, view.Received[0].Message)
	assert.Equal(t, "Hi", *view.Received[0].Message)

	_, err = env.connections.Accept(ctx, u2, sent.Request.ID)
	require.NoError(t, err)

	connected, err := env.connections.IsConnected(ctx, u1, u2)
	require.NoError(t, err)
	assert.True(t, connected)

	match, err := env.matches.GetOrCreate(ctx, u1, u2)
	require.NoError(t, err)
	assert.Equal(t, u1, match.User1ID)
	assert.Equal(t, u2, match.User2ID)

	msg, err := env.conversations.Send(ctx, match.ID, u1, "Hello")
	require.NoError(t, err)
	assert.Equal(t, u2, msg.ToUserID)
	assert.False(t, msg.IsRead)

	inbox, err := env.conversations.ListConversations(ctx, u2)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, 1, inbox[0].UnreadCount)
	assert.Equal(t, u1, inbox[0].OtherUserID)
	assert.False(t, inbox[0].LastMessageFromMe)
	require.NotNil(t, inbox[0].LastMessage)
	assert.Equal(t, "Hello", *inbox[0].LastMessage)

	msgs, err := env.conversations.ListMessages(ctx, match.ID, u2)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead)

	inbox, err = env.conversations.ListConversations(ctx, u2)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, 0, inbox[0].UnreadCount)

	senderInbox, err := env.conversations.ListConversations(ctx, u1)
	require.NoError(t, err)
	require.Len(t, senderInbox, 1)
	assert.True(t, senderInbox[0].LastMessageFromMe)
}

func TestSendRefusals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u4, u5, u6 := env.user(t, "four"), env.user(t, "five"), env.user(t, "six")
	m := env.match(t, u5, u6)

	_, err := env.conversations.Send(ctx, m.ID, u4, "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.conversations.Send(ctx, m.ID, u5, "  \t\n ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = env.conversations.Send(ctx, m.ID+1000, u5, "hi")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.matches.Unmatch(ctx, m.ID, u6))
	_, err = env.conversations.Send(ctx, m.ID, u5, "still there?")
	assert.ErrorIs(t, err, ErrMatchClosed)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Empty(t, env.notifier.messages)
}

func TestSendAccessCheckedBeforeContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b, outsider := env.user(t, "a"), env.user(t, "b"), env.user(t, "outsider")
	m := env.match(t, a, b)

	_, err := env.conversations.Send(ctx, m.ID, outsider, "   ")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrEmptyContent)

	_, err = env.conversations.Send(ctx, m.ID+1000, a, "")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.matches.Unmatch(ctx, m.ID, a))
	_, err = env.conversations.Send(ctx, m.ID, b, " ")
	assert.ErrorIs(t, err, ErrMatchClosed)
}

func TestSendNormalizesContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")
	m := env.match(t, a, b)

	msg, err := env.conversations.Send(ctx, m.ID, a, "  Cafe\u0301  ")
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", msg.Content)
	assert.Equal(t, domain.ContentTypeText, msg.ContentType)
	require.Len(t, env.notifier.messages, 1)
}

func TestListMessagesChronological(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")
	m := env.match(t, a, b)

	for i, from := range []int64{a, b, a, a, b} {
		_, err := env.conversations.Send(ctx, m.ID, from, string(rune('A'+i)))
		require.NoError(t, err)
	}

	msgs, err := env.conversations.ListMessages(ctx, m.ID, a)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt))
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
	}
	assert.Equal(t, "A", msgs[0].Content)
	assert.Equal(t, "E", msgs[4].Content)

	// a viewed: only messages addressed to a are read.
	for _, msg := range msgs {
		assert.Equal(t, msg.ToUserID == a, msg.IsRead, "message %d", msg.ID)
	}

	_, err = env.conversations.ListMessages(ctx, m.ID, env.user(t, "c"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMarkReadIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")
	m := env.match(t, a, b)

	msg, err := env.conversations.Send(ctx, m.ID, a, "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, env.conversations.MarkRead(ctx, msg.ID, a), ErrNotFound)
	assert.ErrorIs(t, env.conversations.MarkRead(ctx, msg.ID+1000, b), ErrNotFound)

	require.NoError(t, env.conversations.MarkRead(ctx, msg.ID, b))
	first, err := env.messageRepo.ListByMatch(ctx, m.ID)
	require.NoError(t, err)

	require.NoError(t, env.conversations.MarkRead(ctx, msg.ID, b))
	second, err := env.messageRepo.ListByMatch(ctx, m.ID)
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.True(t, first[0].IsRead)
	assert.Equal(t, first, second)
}

func TestMarkAllReadConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")
	m := env.match(t, a, b)

	for range 10 {
		_, err := env.conversations.Send(ctx, m.ID, a, "ping")
		require.NoError(t, err)
	}

	var flipped atomic.Int64
	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			n, err := env.conversations.MarkAllRead(ctx, m.ID, b)
			flipped.Add(int64(n))
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 10, flipped.Load())
	unread, err := env.conversations.UnreadTotal(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, unread)
	assert.Len(t, env.notifier.reads, 1)
}

func TestListConversationsOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b, c, d := env.user(t, "a"), env.user(t, "b"), env.user(t, "c"), env.user(t, "d")

	withB := env.match(t, a, b)
	withC := env.match(t, a, c)
	_, err := env.conversations.Send(ctx, withB.ID, b, "latest activity")
	require.NoError(t, err)
	withD := env.match(t, a, d)

	inbox, err := env.conversations.ListConversations(ctx, a)
	require.NoError(t, err)
	require.Len(t, inbox, 3)

	// d's match was created after b's message; c's match is older than both.
	assert.Equal(t, withD.ID, inbox[0].MatchID)
	assert.Nil(t, inbox[0].LastMessage)
	assert.Equal(t, withB.ID, inbox[1].MatchID)
	assert.Equal(t, 1, inbox[1].UnreadCount)
	assert.Equal(t, withC.ID, inbox[2].MatchID)

	require.NoError(t, env.matches.Unmatch(ctx, withC.ID, c))
	inbox, err = env.conversations.ListConversations(ctx, a)
	require.NoError(t, err)
	assert.Len(t, inbox, 2)
}

type onlineSet map[int64]bool

func (o onlineSet) IsOnline(userID int64) bool { return o[userID] }

func TestListConversationsPresence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b, c, outsider := env.user(t, "a"), env.user(t, "b"), env.user(t, "c"), env.user(t, "outsider")
	withB := env.match(t, a, b)
	withC := env.match(t, a, c)

	inbox, err := env.conversations.ListConversations(ctx, a)
	require.NoError(t, err)
	for _, sum := range inbox {
		assert.False(t, sum.OtherOnline)
	}

	env.conversations.SetPresence(onlineSet{b: true, outsider: true})
	inbox, err = env.conversations.ListConversations(ctx, a)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	online := map[int64]bool{}
	for _, sum := range inbox {
		online[sum.MatchID] = sum.OtherOnline
	}
	assert.Equal(t, map[int64]bool{withB.ID: true, withC.ID: false}, online)
}

func TestOpenConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b, c := env.user(t, "a"), env.user(t, "b"), env.user(t, "c")

	_, err := env.conversations.OpenConversation(ctx, a, OpenTarget{UserID: c})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = env.conversations.OpenConversation(ctx, a, OpenTarget{})
	assert.ErrorIs(t, err, ErrNotFound)

	env.connect(t, a, b)

	byUser, err := env.conversations.OpenConversation(ctx, a, OpenTarget{UserID: b})
	require.NoError(t, err)
	assert.Empty(t, byUser.Messages)
	assert.Equal(t, b, byUser.Match.OtherUserID)

	_, err = env.conversations.Send(ctx, byUser.Match.ID, a, "hi b")
	require.NoError(t, err)

	byID, err := env.conversations.OpenConversation(ctx, b, OpenTarget{MatchID: byUser.Match.ID})
	require.NoError(t, err)
	assert.Equal(t, byUser.Match.ID, byID.Match.ID)
	require.Len(t, byID.Messages, 1)
	assert.True(t, byID.Messages[0].IsRead)

	_, err = env.conversations.OpenConversation(ctx, c, OpenTarget{MatchID: byUser.Match.ID})
	assert.ErrorIs(t, err, ErrForbidden)
}
