package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/matrimony/pkg/logger"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client represents a single WebSocket connection.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	userID int64

	// send is closed by the hub only.
	send chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufSize),
	}
}

// ReadPump reads events from the WebSocket until the connection fails.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		var event Event
		err := wsjson.Read(ctx, c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				logger.Debug().Int64("user_id", c.userID).Msg("ws: client disconnected")
			} else {
				logger.Debug().Err(err).Int64("user_id", c.userID).Msg("ws: read error")
			}
			return
		}

		c.handleEvent(ctx, &event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(wctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				logger.Debug().Err(err).Int64("user_id", c.userID).Msg("ws: write error")
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				logger.Debug().Err(err).Int64("user_id", c.userID).Msg("ws: ping error")
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(ctx context.Context, event *Event) {
	switch event.Type {
	case EventTypeTypingStart, EventTypeTypingStop:
		if event.MatchID == nil {
			c.sendError("INVALID_PAYLOAD", "match_id required for typing events")
			return
		}
		tctx, cancel := context.WithTimeout(ctx, writeWait)
		defer cancel()
		if err := c.hub.HandleTyping(tctx, c, event); err != nil {
			c.sendError("FORBIDDEN", "not a participant of this match")
		}

	case EventTypePing:
		c.queue(&Event{Type: EventTypePong})

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, nil, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	c.queue(evt)
}

// queue replies to this connection only, through the hub so the send
// channel is never written after it was closed.
func (c *Client) queue(evt *Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.hub.direct <- &directMsg{userID: c.userID, data: data, only: c}:
	case <-c.hub.done:
	}
}
