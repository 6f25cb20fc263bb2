package service

import (
	"context"

	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/repository"
)

// RequestOutcome says which branch SendRequest took.
type RequestOutcome string

const (
	// RequestCreated is a first request from the sender to the target.
	RequestCreated RequestOutcome = "created"
	// RequestReopened is the sender's own declined request made pending again.
	RequestReopened RequestOutcome = "reopened"
	// RequestReversed is a new request from someone who earlier declined the
	// target's request. It is a separate row from the declined one.
	RequestReversed RequestOutcome = "reversed"
)

type SendRequestResult struct {
	Request *domain.Interaction `json:"request"`
	Outcome RequestOutcome      `json:"outcome"`
}

type RequestsView struct {
	Received    []domain.Interaction `json:"received"`
	Sent        []domain.Interaction `json:"sent"`
	Connections []domain.Interaction `json:"connections"`
}

type ConnectionService struct {
	ledger       *Ledger
	interactions repository.InteractionRepository
	matches      repository.MatchRepository
	photos       PhotoURLer
	notifier     Notifier
}

func NewConnectionService(
	ledger *Ledger,
	interactions repository.InteractionRepository,
	matches repository.MatchRepository,
	photos PhotoURLer,
) *ConnectionService {
	return &ConnectionService{
		ledger:       ledger,
		interactions: interactions,
		matches:      matches,
		photos:       photos,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ConnectionService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *ConnectionService) SendRequest(ctx context.Context, actor, target int64, message string) (*SendRequestResult, error) {
	if actor == target {
		return nil, ErrSelfTarget
	}

	connected, err := s.IsConnected(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if connected {
		return nil, ErrAlreadyConnected
	}

	reverse, err := s.ledger.FindActive(ctx, target, actor, domain.InteractionConnect)
	if err != nil {
		return nil, err
	}
	if reverse != nil && reverse.Status == domain.StatusPending {
		return nil, ErrIncomingRequest
	}

	req, reopened, err := s.ledger.record(ctx, actor, target, domain.InteractionConnect, message)
	if err != nil {
		return nil, err
	}

	outcome := RequestCreated
	switch {
	case reopened:
		outcome = RequestReopened
	case reverse != nil && reverse.Status == domain.StatusDeclined:
		outcome = RequestReversed
	}

	if s.notifier != nil {
		s.notifier.NotifyConnectRequest(req)
	}
	return &SendRequestResult{Request: req, Outcome: outcome}, nil
}

func (s *ConnectionService) Accept(ctx context.Context, actor, requestID int64) (*domain.Interaction, error) {
	req, err := s.transition(ctx, actor, requestID, domain.StatusAccepted)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyRequestAccepted(req)
	}
	return req, nil
}

func (s *ConnectionService) Decline(ctx context.Context, actor, requestID int64) (*domain.Interaction, error) {
	return s.transition(ctx, actor, requestID, domain.StatusDeclined)
}

// transition hides rows that are not connect requests addressed to actor.
func (s *ConnectionService) transition(ctx context.Context, actor, requestID int64, to domain.InteractionStatus) (*domain.Interaction, error) {
	req, err := retryOnce(ctx, func() (*domain.Interaction, error) {
		return s.interactions.GetByID(ctx, requestID)
	})
	if err != nil {
		return nil, storageErr("loading request", err)
	}
	if req == nil || req.Type != domain.InteractionConnect || req.ToUserID != actor {
		return nil, ErrNotFound
	}
	return s.ledger.Transition(ctx, requestID, actor, to)
}

// IsConnected reports whether an accepted connect request exists in either
// direction.
func (s *ConnectionService) IsConnected(ctx context.Context, x, y int64) (bool, error) {
	in, err := retryOnce(ctx, func() (*domain.Interaction, error) {
		return s.interactions.FindBetween(ctx, x, y, domain.InteractionConnect, domain.StatusAccepted)
	})
	if err != nil {
		return false, storageErr("checking connection", err)
	}
	return in != nil, nil
}

// ListRequests returns pending requests in both directions and the user's
// accepted connections, newest first.
func (s *ConnectionService) ListRequests(ctx context.Context, user int64) (*RequestsView, error) {
	received, err := retryOnce(ctx, func() ([]domain.Interaction, error) {
		return s.interactions.ListReceived(ctx, user, domain.InteractionConnect, domain.StatusPending, 0)
	})
	if err != nil {
		return nil, storageErr("listing received requests", err)
	}

	sent, err := retryOnce(ctx, func() ([]domain.Interaction, error) {
		return s.interactions.ListSent(ctx, user, domain.InteractionConnect, domain.StatusPending, 0)
	})
	if err != nil {
		return nil, storageErr("listing sent requests", err)
	}

	accepted, err := retryOnce(ctx, func() ([]domain.Interaction, error) {
		return s.interactions.ListConnections(ctx, user)
	})
	if err != nil {
		return nil, storageErr("listing connections", err)
	}

	// Both directions can end up accepted; show each member once.
	seen := make(map[int64]bool, len(accepted))
	connections := make([]domain.Interaction, 0, len(accepted))
	for _, c := range accepted {
		if seen[c.OtherUserID] {
			continue
		}
		seen[c.OtherUserID] = true
		connections = append(connections, c)
	}

	return &RequestsView{
		Received:    s.decorate(ctx, received),
		Sent:        s.decorate(ctx, sent),
		Connections: s.decorate(ctx, connections),
	}, nil
}

// Relationship describes what viewer sees about target on a profile page.
func (s *ConnectionService) Relationship(ctx context.Context, viewer, target int64) (*domain.Relationship, error) {
	rel := &domain.Relationship{UserID: target}
	if viewer == target {
		return rel, nil
	}

	connected, err := s.IsConnected(ctx, viewer, target)
	if err != nil {
		return nil, err
	}
	rel.IsConnected = connected

	pending, err := retryOnce(ctx, func() (*domain.Interaction, error) {
		return s.interactions.FindBetween(ctx, viewer, target, domain.InteractionConnect, domain.StatusPending)
	})
	if err != nil {
		return nil, storageErr("checking pending request", err)
	}
	if pending != nil {
		rel.HasPendingRequest = true
		rel.PendingRequestSent = pending.FromUserID == viewer
		rel.PendingRequestID = &pending.ID
	}

	u1, u2 := domain.CanonicalPair(viewer, target)
	match, err := retryOnce(ctx, func() (*domain.Match, error) {
		return s.matches.GetByUsers(ctx, u1, u2)
	})
	if err != nil {
		return nil, storageErr("loading match", err)
	}
	if match != nil && match.Status == domain.MatchStatusActive {
		rel.MatchID = &match.ID
	}
	return rel, nil
}

func (s *ConnectionService) decorate(ctx context.Context, rows []domain.Interaction) []domain.Interaction {
	if rows == nil {
		return []domain.Interaction{}
	}
	for i := range rows {
		rows[i].OtherUserPhotoURL = photoURL(ctx, s.photos, rows[i].OtherPhotoKey)
	}
	return rows
}
