package ws

import (
	"encoding/json"
	"time"

	"github.com/vedran77/matrimony/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeTypingStart = "typing.start"
	EventTypeTypingStop  = "typing.stop"
	EventTypePing        = "ping"
)

// Event types - Server → Client
const (
	EventTypeConnectRequest  = "connect_request.new"
	EventTypeRequestAccepted = "connect_request.accepted"
	EventTypeMessageNew      = "message.new"
	EventTypeMessagesRead    = "messages.read"
	EventTypeTyping          = "typing"
	EventTypePong            = "pong"
	EventTypeError           = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	MatchID   *int64          `json:"match_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Server → Client payloads ---

type RequestPayload struct {
	domain.Interaction
}

type MessagePayload struct {
	domain.Message
}

type MessagesReadPayload struct {
	ReaderID int64 `json:"reader_id"`
	Count    int   `json:"count"`
}

type TypingPayload struct {
	UserID int64 `json:"user_id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, matchID *int64, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		MatchID:   matchID,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
