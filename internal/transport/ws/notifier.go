package ws

import (
	"github.com/vedran77/matrimony/internal/domain"
	"github.com/vedran77/matrimony/internal/service"
	"github.com/vedran77/matrimony/pkg/logger"
)

// HubNotifier pushes service events to connected users.
type HubNotifier struct {
	hub *Hub
}

var _ service.Notifier = (*HubNotifier)(nil)

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyConnectRequest(req *domain.Interaction) {
	n.send(req.ToUserID, EventTypeConnectRequest, nil, RequestPayload{Interaction: *req})
}

func (n *HubNotifier) NotifyRequestAccepted(req *domain.Interaction) {
	n.send(req.FromUserID, EventTypeRequestAccepted, nil, RequestPayload{Interaction: *req})
}

// NotifyNewMessage reaches the sender too, so their other devices stay in sync.
func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	evt, err := NewEvent(EventTypeMessageNew, &msg.MatchID, MessagePayload{Message: *msg})
	if err != nil {
		logger.Error().Err(err).Msg("ws notifier: failed to create event")
		return
	}
	n.hub.SendToUser(msg.ToUserID, evt)
	n.hub.SendToUser(msg.FromUserID, evt)
}

func (n *HubNotifier) NotifyMessagesRead(matchID, readerID, senderID int64, count int) {
	n.send(senderID, EventTypeMessagesRead, &matchID, MessagesReadPayload{ReaderID: readerID, Count: count})
}

func (n *HubNotifier) send(userID int64, eventType string, matchID *int64, payload any) {
	evt, err := NewEvent(eventType, matchID, payload)
	if err != nil {
		logger.Error().Err(err).Str("type", eventType).Msg("ws notifier: failed to create event")
		return
	}
	n.hub.SendToUser(userID, evt)
}
