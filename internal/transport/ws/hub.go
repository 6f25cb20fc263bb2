package ws

import (
	"context"
	"encoding/json"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/pkg/logger"
)

// MatchResolver checks that a user takes part in a match.
type MatchResolver interface {
	GetForParticipant(ctx context.Context, matchID, actor int64) (*domain.Match, error)
}

// Hub tracks connected clients per user and delivers events to them. All
// client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients map[int64]map[*Client]struct{}
	matches MatchResolver

	register   chan *Client
	unregister chan *Client
	direct     chan *directMsg
	queries    chan onlineQuery
	done       chan struct{}
}

type directMsg struct {
	userID int64
	data   []byte
	// only restricts delivery to one connection of userID.
	only *Client
}

type onlineQuery struct {
	userID int64
	reply  chan bool
}

func NewHub(matches MatchResolver) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		matches:    matches,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan *directMsg, 256),
		queries:    make(chan onlineQuery),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, after
// closing every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = nil
			return nil

		case c := <-h.register:
			set, ok := h.clients[c.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.userID] = set
			}
			set[c] = struct{}{}
			logger.Debug().Int64("user_id", c.userID).Str("conn_id", c.id).Int("connections", len(set)).Msg("ws client connected")

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.direct:
			for c := range h.clients[msg.userID] {
				if msg.only != nil && msg.only != c {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					// Client buffer full - disconnect
					logger.Warn().Int64("user_id", c.userID).Str("conn_id", c.id).Msg("ws client too slow, dropping")
					h.remove(c)
				}
			}

		case q := <-h.queries:
			q.reply <- len(h.clients[q.userID]) > 0
		}
	}
}

func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	logger.Debug().Int64("user_id", c.userID).Str("conn_id", c.id).Msg("ws client disconnected")
}

// Register adds c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendToUser delivers event to every connection of userID. Users without a
// connection simply miss it. It never blocks: when the hub is backed up the
// event is dropped.
func (h *Hub) SendToUser(userID int64, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("ws hub: marshal error")
		return
	}
	select {
	case h.direct <- &directMsg{userID: userID, data: data}:
	case <-h.done:
	default:
		logger.Warn().Int64("user_id", userID).Str("type", event.Type).Msg("ws hub: buffer full, dropping event")
	}
}

// IsOnline reports whether userID has at least one open connection.
func (h *Hub) IsOnline(userID int64) bool {
	q := onlineQuery{userID: userID, reply: make(chan bool, 1)}
	select {
	case h.queries <- q:
		return <-q.reply
	case <-h.done:
		return false
	}
}

// HandleTyping relays a typing indicator to the other participant of the
// match named in the event.
func (h *Hub) HandleTyping(ctx context.Context, sender *Client, event *Event) error {
	if event.Type != EventTypeTypingStart {
		return nil // typing.stop doesn't need relaying, frontend uses timeout
	}

	match, err := h.matches.GetForParticipant(ctx, *event.MatchID, sender.userID)
	if err != nil {
		return err
	}
	if match.Status != domain.MatchStatusActive {
		return nil
	}

	evt, err := NewEvent(EventTypeTyping, &match.ID, TypingPayload{UserID: sender.userID})
	if err != nil {
		return err
	}
	h.SendToUser(match.Other(sender.userID), evt)
	return nil
}
