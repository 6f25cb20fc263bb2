package domain

import (
	"fmt"
	"time"
)

const (
	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

// ProfilePhoto points at an object in the media store. A member's photos
// form an album; only the primary one is used by the connection and inbox
// read models.
type ProfilePhoto struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ObjectKey string    `json:"object_key"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	URL       *string   `json:"url,omitempty"`
}

// PhotoKeyPrefix is the object key prefix under which userID's uploads live.
func PhotoKeyPrefix(userID int64) string {
	return fmt.Sprintf("users/%d/photos/", userID)
}
