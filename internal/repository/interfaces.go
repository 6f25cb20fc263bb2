package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vedran77/matrimony/internal/domain"
)

var (
	// ErrConflict is returned when a write loses against a unique constraint.
	ErrConflict = errors.New("repository: conflict")
	// ErrPrecondition is returned when a guarded write matched no row.
	ErrPrecondition = errors.New("repository: precondition failed")
	// ErrTransient wraps driver failures that are safe to retry once.
	ErrTransient = errors.New("repository: transient failure")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}

type PhotoRepository interface {
	// Add appends photo to the user's album. The first photo becomes primary.
	// Returns ErrConflict when the key is already in the album.
	Add(ctx context.Context, photo *domain.ProfilePhoto) error
	// SetPrimary makes photo.ObjectKey the primary photo, adding it to the
	// album when it is not there yet.
	SetPrimary(ctx context.Context, photo *domain.ProfilePhoto) error
	GetPrimary(ctx context.Context, userID int64) (*domain.ProfilePhoto, error)
	GetByID(ctx context.Context, id int64) (*domain.ProfilePhoto, error)
	// ListByUser returns the primary photo first, then the rest oldest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.ProfilePhoto, error)
	// Delete removes a photo owned by userID. When it was primary, the oldest
	// remaining photo is promoted.
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

type InteractionRepository interface {
	// Upsert inserts a pending row or reopens a declined one for the same
	// (from, to, type). Returns ErrConflict when a pending or accepted row
	// already exists.
	Upsert(ctx context.Context, in *domain.Interaction) (reopened bool, err error)
	GetByID(ctx context.Context, id int64) (*domain.Interaction, error)
	GetByTriple(ctx context.Context, fromUserID, toUserID int64, typ domain.InteractionType) (*domain.Interaction, error)
	// SetStatus moves a pending row addressed to toUserID to status.
	// Returns nil, nil when no such pending row exists.
	SetStatus(ctx context.Context, id, toUserID int64, status domain.InteractionStatus) (*domain.Interaction, error)
	// FindBetween returns the most recent row in either direction.
	FindBetween(ctx context.Context, userA, userB int64, typ domain.InteractionType, status domain.InteractionStatus) (*domain.Interaction, error)
	// ListReceived and ListSent accept an empty type or status as "any".
	// A limit of zero means no limit.
	ListReceived(ctx context.Context, userID int64, typ domain.InteractionType, status domain.InteractionStatus, limit int) ([]domain.Interaction, error)
	ListSent(ctx context.Context, userID int64, typ domain.InteractionType, status domain.InteractionStatus, limit int) ([]domain.Interaction, error)
	ListConnections(ctx context.Context, userID int64) ([]domain.Interaction, error)
	CountUnreciprocated(ctx context.Context, userID int64, typ domain.InteractionType) (int, error)
}

type MatchRepository interface {
	// InsertOrGet inserts match or, when the pair already exists, loads the
	// stored row into match.
	InsertOrGet(ctx context.Context, match *domain.Match) (created bool, err error)
	GetByID(ctx context.Context, id int64) (*domain.Match, error)
	GetByUsers(ctx context.Context, user1ID, user2ID int64) (*domain.Match, error)
	MarkUnmatched(ctx context.Context, id int64, at time.Time) (bool, error)
	ListActive(ctx context.Context, userID int64) ([]domain.Match, error)
	CountActive(ctx context.Context, userID int64) (int, error)
}

type MessageRepository interface {
	// Create inserts msg only if its match is active and msg.FromUserID is a
	// participant; ToUserID is derived by the store. Returns ErrPrecondition
	// otherwise.
	Create(ctx context.Context, msg *domain.Message) error
	MarkRead(ctx context.Context, id, toUserID int64) (bool, error)
	MarkAllRead(ctx context.Context, matchID, toUserID int64) (int, error)
	ListByMatch(ctx context.Context, matchID int64) ([]domain.Message, error)
	ListConversations(ctx context.Context, userID int64) ([]domain.ConversationRow, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
}
