package domain

import (
	"time"
)

const (
	MatchStatusActive    = "active"
	MatchStatusUnmatched = "unmatched"
)

// Match pairs two connected users. User1ID is always the smaller id.
type Match struct {
	ID          int64      `json:"id"`
	User1ID     int64      `json:"user1_id"`
	User2ID     int64      `json:"user2_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UnmatchedAt *time.Time `json:"unmatched_at,omitempty"`
	// Joined fields for frontend
	OtherUserID       int64   `json:"other_user_id,omitempty"`
	OtherDisplayName  string  `json:"other_display_name,omitempty"`
	OtherPhotoKey     *string `json:"-"`
	OtherUserPhotoURL *string `json:"other_photo_url,omitempty"`
}

// CanonicalPair orders two user ids so the smaller one comes first.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

func (m *Match) HasParticipant(userID int64) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// Other returns the participant that is not userID.
func (m *Match) Other(userID int64) int64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}
