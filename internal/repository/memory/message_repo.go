package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

type MessageRepo struct {
	s *Store
}

func NewMessageRepo(s *Store) *MessageRepo {
	return &MessageRepo{s: s}
}

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.matches[msg.MatchID]
	if !ok || m.Status != domain.MatchStatusActive || !m.HasParticipant(msg.FromUserID) {
		return repository.ErrPrecondition
	}
	msg.ID = r.s.nextID()
	msg.ToUserID = m.Other(msg.FromUserID)
	msg.IsRead = false
	cp := *msg
	r.s.messages[msg.ID] = &cp
	return nil
}

func (r *MessageRepo) MarkRead(_ context.Context, id, toUserID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	msg, ok := r.s.messages[id]
	if !ok || msg.ToUserID != toUserID {
		return false, nil
	}
	msg.IsRead = true
	return true, nil
}

func (r *MessageRepo) MarkAllRead(_ context.Context, matchID, toUserID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, msg := range r.s.messages {
		if msg.MatchID == matchID && msg.ToUserID == toUserID && !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) ListByMatch(_ context.Context, matchID int64) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.byMatch(matchID), nil
}

func (r *MessageRepo) ListConversations(_ context.Context, userID int64) ([]domain.ConversationRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.ConversationRow
	for _, m := range r.s.activeFor(userID) {
		other := m.Other(userID)
		if _, ok := r.s.users[other]; !ok {
			continue
		}
		row := domain.ConversationRow{Match: *m}
		row.Match.OtherUserID = other
		row.Match.OtherDisplayName, row.Match.OtherPhotoKey = r.s.userCard(other)

		msgs := r.byMatch(m.ID)
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			row.LastMessageID = &last.ID
			row.LastMessageFrom = &last.FromUserID
			row.LastMessage = &last.Content
			row.LastMessageAt = &last.CreatedAt
		}
		for _, msg := range msgs {
			if msg.ToUserID == userID && !msg.IsRead {
				row.UnreadCount++
			}
		}
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b domain.ConversationRow) int {
		if c := activityAt(b).Compare(activityAt(a)); c != 0 {
			return c
		}
		return cmp.Compare(b.Match.ID, a.Match.ID)
	})
	return out, nil
}

func (r *MessageRepo) CountUnread(_ context.Context, userID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, msg := range r.s.messages {
		if msg.ToUserID == userID && !msg.IsRead {
			n++
		}
	}
	return n, nil
}

// byMatch returns copies of the match's messages oldest first.
func (r *MessageRepo) byMatch(matchID int64) []domain.Message {
	var out []domain.Message
	for _, msg := range r.s.messages {
		if msg.MatchID == matchID {
			out = append(out, *msg)
		}
	}
	slices.SortFunc(out, func(a, b domain.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func activityAt(row domain.ConversationRow) time.Time {
	if row.LastMessageAt != nil {
		return *row.LastMessageAt
	}
	return row.Match.CreatedAt
}
