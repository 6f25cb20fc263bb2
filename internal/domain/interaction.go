package domain

import (
	"time"
)

type InteractionType string

const (
	InteractionConnect  InteractionType = "connect"
	InteractionView     InteractionType = "view"
	InteractionInterest InteractionType = "interest"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionConnect, InteractionView, InteractionInterest:
		return true
	}
	return false
}

type InteractionStatus string

const (
	StatusPending  InteractionStatus = "pending"
	StatusAccepted InteractionStatus = "accepted"
	StatusDeclined InteractionStatus = "declined"
)

// Interaction is a directed action between two users. There is at most one
// row per (FromUserID, ToUserID, Type); a declined row is reopened in place.
type Interaction struct {
	ID         int64             `json:"id"`
	FromUserID int64             `json:"from_user_id"`
	ToUserID   int64             `json:"to_user_id"`
	Type       InteractionType   `json:"type"`
	Status     InteractionStatus `json:"status"`
	Message    *string           `json:"message,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	// Joined fields
	OtherUserID       int64   `json:"other_user_id,omitempty"`
	OtherDisplayName  string  `json:"other_display_name,omitempty"`
	OtherPhotoKey     *string `json:"-"`
	OtherUserPhotoURL *string `json:"other_photo_url,omitempty"`
}

// Relationship is what a viewer sees about another member on their profile.
type Relationship struct {
	UserID             int64  `json:"user_id"`
	IsConnected        bool   `json:"is_connected"`
	HasPendingRequest  bool   `json:"has_pending_request"`
	PendingRequestSent bool   `json:"pending_request_sent"`
	PendingRequestID   *int64 `json:"pending_request_id,omitempty"`
	MatchID            *int64 `json:"match_id,omitempty"`
}
