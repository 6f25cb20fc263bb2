package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
	"golang.org/x/text/unicode/norm"
)

type ConversationService struct {
	messages repository.MessageRepository
	matches  *MatchService
	photos   PhotoURLer
	notifier Notifier
	presence Presence
	now      func() time.Time
}

func NewConversationService(messages repository.MessageRepository, matches *MatchService, photos PhotoURLer) *ConversationService {
	return &ConversationService{
		messages: messages,
		matches:  matches,
		photos:   photos,
		now:      time.Now,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ConversationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetPresence lets the inbox show whether the other member is connected.
func (s *ConversationService) SetPresence(p Presence) {
	s.presence = p
}

// OpenTarget names a conversation either by match id or by the other member.
// MatchID wins when both are set.
type OpenTarget struct {
	MatchID int64
	UserID  int64
}

type ConversationView struct {
	Match    *domain.Match    `json:"match"`
	Messages []domain.Message `json:"messages"`
}

// Send stores a message from a participant of an active match. The store
// re-checks the match inside the insert, so an unmatch racing with a send
// cannot leave a message behind.
func (s *ConversationService) Send(ctx context.Context, matchID, from int64, content string) (*domain.Message, error) {
	content = norm.NFC.String(strings.TrimSpace(content))
	if content == "" {
		// Access errors outrank the content check.
		if err := s.checkSender(ctx, matchID, from); err != nil {
			return nil, err
		}
		return nil, ErrEmptyContent
	}

	msg := &domain.Message{
		MatchID:     matchID,
		FromUserID:  from,
		Content:     content,
		ContentType: domain.ContentTypeText,
		CreatedAt:   s.now().UTC(),
	}

	err := s.messages.Create(ctx, msg)
	if errors.Is(err, repository.ErrPrecondition) {
		return nil, s.sendRefused(ctx, matchID, from)
	}
	if err != nil {
		return nil, storageErr("sending message", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
	}
	return msg, nil
}

// sendRefused explains why the guarded insert matched no row.
func (s *ConversationService) sendRefused(ctx context.Context, matchID, from int64) error {
	if err := s.checkSender(ctx, matchID, from); err != nil {
		return err
	}
	return ErrForbidden
}

// checkSender returns nil when from may post in matchID right now.
func (s *ConversationService) checkSender(ctx context.Context, matchID, from int64) error {
	match, err := s.matches.GetForParticipant(ctx, matchID, from)
	if err != nil {
		return err
	}
	if match.Status != domain.MatchStatusActive {
		return ErrMatchClosed
	}
	return nil
}

// MarkRead marks one message addressed to actor as read. Repeating it is a
// no-op.
func (s *ConversationService) MarkRead(ctx context.Context, messageID, actor int64) error {
	ok, err := retryOnce(ctx, func() (bool, error) {
		return s.messages.MarkRead(ctx, messageID, actor)
	})
	if err != nil {
		return storageErr("marking message read", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread message addressed to actor in the match and
// returns how many changed.
func (s *ConversationService) MarkAllRead(ctx context.Context, matchID, actor int64) (int, error) {
	match, err := s.matches.GetForParticipant(ctx, matchID, actor)
	if err != nil {
		return 0, err
	}

	n, err := retryOnce(ctx, func() (int, error) {
		return s.messages.MarkAllRead(ctx, matchID, actor)
	})
	if err != nil {
		return 0, storageErr("marking conversation read", err)
	}

	if n > 0 && s.notifier != nil {
		s.notifier.NotifyMessagesRead(matchID, actor, match.Other(actor), n)
	}
	return n, nil
}

// ListConversations builds the inbox: one row per active match, most recent
// activity first. A match with no messages counts from its creation.
func (s *ConversationService) ListConversations(ctx context.Context, user int64) ([]domain.ConversationSummary, error) {
	rows, err := retryOnce(ctx, func() ([]domain.ConversationRow, error) {
		return s.messages.ListConversations(ctx, user)
	})
	if err != nil {
		return nil, storageErr("listing conversations", err)
	}

	out := make([]domain.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		sum := domain.ConversationSummary{
			MatchID:           row.Match.ID,
			OtherUserID:       row.Match.OtherUserID,
			OtherDisplayName:  row.Match.OtherDisplayName,
			OtherUserPhotoURL: photoURL(ctx, s.photos, row.Match.OtherPhotoKey),
			LastMessage:       row.LastMessage,
			LastMessageAt:     row.Match.CreatedAt,
			UnreadCount:       row.UnreadCount,
			LastMessageFromMe: row.LastMessageFrom != nil && *row.LastMessageFrom == user,
		}
		if row.LastMessageAt != nil {
			sum.LastMessageAt = *row.LastMessageAt
		}
		if s.presence != nil {
			sum.OtherOnline = s.presence.IsOnline(sum.OtherUserID)
		}
		out = append(out, sum)
	}

	slices.SortStableFunc(out, func(a, b domain.ConversationSummary) int {
		if c := b.LastMessageAt.Compare(a.LastMessageAt); c != 0 {
			return c
		}
		return cmp.Compare(b.MatchID, a.MatchID)
	})
	return out, nil
}

// ListMessages returns the chat log oldest first. Viewing marks the viewer's
// incoming messages read, and the returned messages reflect that.
func (s *ConversationService) ListMessages(ctx context.Context, matchID, actor int64) ([]domain.Message, error) {
	if _, err := s.MarkAllRead(ctx, matchID, actor); err != nil {
		return nil, err
	}

	msgs, err := retryOnce(ctx, func() ([]domain.Message, error) {
		return s.messages.ListByMatch(ctx, matchID)
	})
	if err != nil {
		return nil, storageErr("listing messages", err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// OpenConversation resolves the match for target, creating it for a
// connected member when needed, and returns its messages.
func (s *ConversationService) OpenConversation(ctx context.Context, actor int64, target OpenTarget) (*ConversationView, error) {
	var (
		match *domain.Match
		err   error
	)
	switch {
	case target.MatchID != 0:
		match, err = s.matches.GetForParticipant(ctx, target.MatchID, actor)
	case target.UserID != 0:
		match, err = s.matches.GetOrCreate(ctx, actor, target.UserID)
	default:
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	msgs, err := s.ListMessages(ctx, match.ID, actor)
	if err != nil {
		return nil, err
	}
	return &ConversationView{Match: match, Messages: msgs}, nil
}

// UnreadTotal counts unread messages addressed to user across all matches.
func (s *ConversationService) UnreadTotal(ctx context.Context, user int64) (int, error) {
	n, err := retryOnce(ctx, func() (int, error) {
		return s.messages.CountUnread(ctx, user)
	})
	return n, storageErr("counting unread messages", err)
}
