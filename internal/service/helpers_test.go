package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository/memory"
)

// testClock advances one second on every read so timestamps never collide.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// staticURLs serves keys from a fixed base and records deletes.
type staticURLs struct {
	mu        sync.Mutex
	deleted   []string
	deleteErr error
}

func (*staticURLs) URL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (u *staticURLs) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.deleteErr != nil {
		return u.deleteErr
	}
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *staticURLs) deletedKeys() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.deleted...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	requests []domain.Interaction
	accepted []domain.Interaction
	messages []domain.Message
	reads    []int
}

func (n *recordingNotifier) NotifyConnectRequest(req *domain.Interaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, *req)
}

func (n *recordingNotifier) NotifyRequestAccepted(req *domain.Interaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, *req)
}

func (n *recordingNotifier) NotifyNewMessage(msg *domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, *msg)
}

func (n *recordingNotifier) NotifyMessagesRead(_, _, _ int64, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reads = append(n.reads, count)
}

type testEnv struct {
	users         *memory.UserRepo
	photoRepo     *memory.PhotoRepo
	interactions  *memory.InteractionRepo
	matchRepo     *memory.MatchRepo
	messageRepo   *memory.MessageRepo
	ledger        *Ledger
	connections   *ConnectionService
	matches       *MatchService
	conversations *ConversationService
	profiles      *ProfileService
	auth          *AuthService
	notifier      *recordingNotifier
	media         *staticURLs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	env := &testEnv{
		users:        memory.NewUserRepo(store),
		photoRepo:    memory.NewPhotoRepo(store),
		interactions: memory.NewInteractionRepo(store),
		matchRepo:    memory.NewMatchRepo(store),
		messageRepo:  memory.NewMessageRepo(store),
		notifier:     &recordingNotifier{},
	}
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	urls := &staticURLs{}
	env.media = urls

	env.ledger = NewLedger(env.interactions, env.users)
	env.ledger.now = clock.Now
	env.connections = NewConnectionService(env.ledger, env.interactions, env.matchRepo, urls)
	env.connections.SetNotifier(env.notifier)
	env.matches = NewMatchService(env.matchRepo, env.connections, urls)
	env.matches.now = clock.Now
	env.conversations = NewConversationService(env.messageRepo, env.matches, urls)
	env.conversations.SetNotifier(env.notifier)
	env.conversations.now = clock.Now
	env.profiles = NewProfileService(env.users, env.photoRepo, env.interactions,
		env.ledger, env.connections, env.matches, env.conversations, urls)
	env.profiles.now = clock.Now
	env.auth = NewAuthService(env.users, "test-secret", time.Hour)
	env.auth.now = clock.Now
	return env
}

func (e *testEnv) user(t *testing.T, name string) int64 {
	t.Helper()
	u := &domain.User{
		Email:       name + "@example.com",
		DisplayName: name,
		Status:      domain.UserStatusActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.ID
}

// connect makes a and b connected through an accepted request from a.
func (e *testEnv) connect(t *testing.T, a, b int64) {
	t.Helper()
	ctx := context.Background()
	res, err := e.connections.SendRequest(ctx, a, b, "")
	require.NoError(t, err)
	_, err = e.connections.Accept(ctx, b, res.Request.ID)
	require.NoError(t, err)
}

// match connects a and b and opens their match.
func (e *testEnv) match(t *testing.T, a, b int64) *domain.Match {
	t.Helper()
	e.connect(t, a, b)
	m, err := e.matches.GetOrCreate(context.Background(), a, b)
	require.NoError(t, err)
	return m
}
