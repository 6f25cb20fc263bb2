package domain

import (
	"time"
)

const ContentTypeText = "text"

type Message struct {
	ID          int64     `json:"id"`
	MatchID     int64     `json:"match_id"`
	FromUserID  int64     `json:"from_user_id"`
	ToUserID    int64     `json:"to_user_id"`
	Content     string    `json:"content"`
	ContentType string    `json:"content_type"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConversationSummary is the inbox row for one active match. It is computed
// on read and never stored.
type ConversationSummary struct {
	MatchID           int64     `json:"match_id"`
	OtherUserID       int64     `json:"other_user_id"`
	OtherDisplayName  string    `json:"other_display_name"`
	OtherUserPhotoURL *string   `json:"other_photo_url,omitempty"`
	LastMessage       *string   `json:"last_message,omitempty"`
	LastMessageAt     time.Time `json:"last_message_at"`
	UnreadCount       int       `json:"unread_count"`
	LastMessageFromMe bool      `json:"last_message_from_me"`
	OtherOnline       bool      `json:"other_online"`
}

// ConversationRow is what the store returns for the inbox before photo
// decoration and ordering.
type ConversationRow struct {
	Match           Match
	LastMessageID   *int64
	LastMessageFrom *int64
	LastMessage     *string
	LastMessageAt   *time.Time
	UnreadCount     int
}
