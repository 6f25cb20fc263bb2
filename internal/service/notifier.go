package service

import (
	"context"

	"github.com/vedran77/matrimony/internal/domain"
)

// Notifier pushes real-time events to connected clients. Calls happen after
// the write has been committed and must not block.
type Notifier interface {
	NotifyConnectRequest(req *domain.Interaction)
	NotifyRequestAccepted(req *domain.Interaction)
	NotifyNewMessage(msg *domain.Message)
	NotifyMessagesRead(matchID, readerID, senderID int64, count int)
}

// Presence reports whether a user has a live real-time connection.
type Presence interface {
	IsOnline(userID int64) bool
}

// PhotoURLer resolves a stored object key to a URL a client can load.
type PhotoURLer interface {
	URL(ctx context.Context, key string) (string, error)
}

// PhotoStore is the media store as the profile service needs it.
type PhotoStore interface {
	PhotoURLer
	Delete(ctx context.Context, key string) error
}

// photoURL returns nil when there is no photo or it cannot be resolved; a
// missing avatar never fails a read.
func photoURL(ctx context.Context, urls PhotoURLer, key *string) *string {
	if urls == nil || key == nil || *key == "" {
		return nil
	}
	u, err := urls.URL(ctx, *key)
	if err != nil {
		return nil
	}
	return &u
}
