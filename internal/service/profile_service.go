package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
	"github.com/vedran77/matrimony/pkg/logger"
)

const recentLimit = 10

// ProfileCard is the public view of a member together with how the viewer
// relates to them.
type ProfileCard struct {
	ID           int64                `json:"id"`
	DisplayName  string               `json:"display_name"`
	PhotoURL     *string              `json:"photo_url,omitempty"`
	Relationship *domain.Relationship `json:"relationship"`
}

type ProfileService struct {
	users         repository.UserRepository
	photoRepo     repository.PhotoRepository
	interactions  repository.InteractionRepository
	ledger        *Ledger
	connections   *ConnectionService
	matches       *MatchService
	conversations *ConversationService
	photos        PhotoStore
	now           func() time.Time
}

func NewProfileService(
	users repository.UserRepository,
	photoRepo repository.PhotoRepository,
	interactions repository.InteractionRepository,
	ledger *Ledger,
	connections *ConnectionService,
	matches *MatchService,
	conversations *ConversationService,
	photos PhotoStore,
) *ProfileService {
	return &ProfileService{
		users:         users,
		photoRepo:     photoRepo,
		interactions:  interactions,
		ledger:        ledger,
		connections:   connections,
		matches:       matches,
		conversations: conversations,
		photos:        photos,
		now:           time.Now,
	}
}

// View returns target's card and records that viewer looked at it. Only the
// first visit is stored.
func (s *ProfileService) View(ctx context.Context, viewer, target int64) (*ProfileCard, error) {
	user, err := retryOnce(ctx, func() (*domain.User, error) {
		return s.users.GetByID(ctx, target)
	})
	if err != nil {
		return nil, storageErr("loading user", err)
	}
	if !user.IsActive() {
		return nil, ErrNotFound
	}

	if viewer != target {
		_, err := s.ledger.Record(ctx, viewer, target, domain.InteractionView, "")
		if err != nil && !errors.Is(err, ErrDuplicate) {
			return nil, err
		}
	}

	rel, err := s.connections.Relationship(ctx, viewer, target)
	if err != nil {
		return nil, err
	}

	photo, err := retryOnce(ctx, func() (*domain.ProfilePhoto, error) {
		return s.photoRepo.GetPrimary(ctx, target)
	})
	if err != nil {
		return nil, storageErr("loading photo", err)
	}

	card := &ProfileCard{
		ID:           user.ID,
		DisplayName:  user.DisplayName,
		Relationship: rel,
	}
	if photo != nil {
		card.PhotoURL = photoURL(ctx, s.photos, &photo.ObjectKey)
	}
	return card, nil
}

// ExpressInterest records a one-way interest from actor in target.
func (s *ProfileService) ExpressInterest(ctx context.Context, actor, target int64, message string) (*domain.Interaction, error) {
	return s.ledger.Record(ctx, actor, target, domain.InteractionInterest, message)
}

// Dashboard summarises what is waiting for user.
func (s *ProfileService) Dashboard(ctx context.Context, user int64) (*domain.Dashboard, error) {
	var d domain.Dashboard

	interests, err := retryOnce(ctx, func() (int, error) {
		return s.interactions.CountUnreciprocated(ctx, user, domain.InteractionInterest)
	})
	if err != nil {
		return nil, storageErr("counting interests", err)
	}
	d.PendingInterests = interests

	if d.ActiveMatches, err = s.matches.CountActive(ctx, user); err != nil {
		return nil, err
	}
	if d.UnreadMessages, err = s.conversations.UnreadTotal(ctx, user); err != nil {
		return nil, err
	}

	requests, err := retryOnce(ctx, func() ([]domain.Interaction, error) {
		return s.interactions.ListReceived(ctx, user, domain.InteractionConnect, domain.StatusPending, 0)
	})
	if err != nil {
		return nil, storageErr("listing requests", err)
	}
	d.PendingRequests = len(requests)

	visitors, err := retryOnce(ctx, func() ([]domain.Interaction, error) {
		return s.interactions.ListReceived(ctx, user, domain.InteractionView, "", recentLimit)
	})
	if err != nil {
		return nil, storageErr("listing visitors", err)
	}
	d.RecentVisitors = s.decorate(ctx, visitors)

	activity, err := retryOnce(ctx, func() ([]domain.Interaction, error) {
		return s.interactions.ListReceived(ctx, user, "", "", recentLimit)
	})
	if err != nil {
		return nil, storageErr("listing activity", err)
	}
	d.RecentActivity = s.decorate(ctx, activity)

	return &d, nil
}

// ownKey reports whether key lies under user's upload prefix.
func ownKey(user int64, key string) bool {
	return strings.HasPrefix(key, domain.PhotoKeyPrefix(user))
}

// AddPhoto registers an uploaded object in user's album. The first photo
// becomes the primary one.
func (s *ProfileService) AddPhoto(ctx context.Context, user int64, key string) (*domain.ProfilePhoto, error) {
	key = strings.TrimSpace(key)
	if !ownKey(user, key) {
		return nil, ErrForbidden
	}
	photo := &domain.ProfilePhoto{
		UserID:    user,
		ObjectKey: key,
		CreatedAt: s.now().UTC(),
	}
	err := s.photoRepo.Add(ctx, photo)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, storageErr("adding photo", err)
	}
	photo.URL = photoURL(ctx, s.photos, &photo.ObjectKey)
	return photo, nil
}

// SetPrimaryPhoto makes key the user's primary photo, adding it to the album
// if needed.
func (s *ProfileService) SetPrimaryPhoto(ctx context.Context, user int64, key string) (*domain.ProfilePhoto, error) {
	key = strings.TrimSpace(key)
	if !ownKey(user, key) {
		return nil, ErrForbidden
	}
	photo := &domain.ProfilePhoto{
		UserID:    user,
		ObjectKey: key,
		CreatedAt: s.now().UTC(),
	}
	if err := s.photoRepo.SetPrimary(ctx, photo); err != nil {
		return nil, storageErr("setting primary photo", err)
	}
	photo.URL = photoURL(ctx, s.photos, &photo.ObjectKey)
	return photo, nil
}

// ListPhotos returns user's album, primary photo first.
func (s *ProfileService) ListPhotos(ctx context.Context, user int64) ([]domain.ProfilePhoto, error) {
	photos, err := retryOnce(ctx, func() ([]domain.ProfilePhoto, error) {
		return s.photoRepo.ListByUser(ctx, user)
	})
	if err != nil {
		return nil, storageErr("listing photos", err)
	}
	if photos == nil {
		photos = []domain.ProfilePhoto{}
	}
	for i := range photos {
		photos[i].URL = photoURL(ctx, s.photos, &photos[i].ObjectKey)
	}
	return photos, nil
}

// DeletePhoto removes one of user's photos and its stored object. A failed
// object delete leaves an orphan in the bucket but does not fail the call.
func (s *ProfileService) DeletePhoto(ctx context.Context, user, photoID int64) error {
	photo, err := retryOnce(ctx, func() (*domain.ProfilePhoto, error) {
		return s.photoRepo.GetByID(ctx, photoID)
	})
	if err != nil {
		return storageErr("loading photo", err)
	}
	if photo == nil {
		return ErrNotFound
	}
	if photo.UserID != user {
		return ErrForbidden
	}

	deleted, err := retryOnce(ctx, func() (bool, error) {
		return s.photoRepo.Delete(ctx, photoID, user)
	})
	if err != nil {
		return storageErr("deleting photo", err)
	}
	if !deleted {
		return ErrNotFound
	}

	if err := s.photos.Delete(ctx, photo.ObjectKey); err != nil {
		logger.Warn().Err(err).
			Int64("user_id", user).
			Str("key", photo.ObjectKey).
			Msg("photo object delete failed")
	}
	return nil
}

func (s *ProfileService) decorate(ctx context.Context, rows []domain.Interaction) []domain.Interaction {
	if rows == nil {
		return []domain.Interaction{}
	}
	for i := range rows {
		rows[i].OtherUserPhotoURL = photoURL(ctx, s.photos, rows[i].OtherPhotoKey)
	}
	return rows
}
