package ws

import (
	"context"

	"smartparking/internal/common/ws"
	"smartparking/internal/navigation/domain"
)

// Ensure Talker implements the domain.Notifier interface.
var _ domain.Notifier = (*Talker)(nil)

// Talker is the outbound WebSocket adapter used by the application layer to
// push snapshots and events to connected driver clients via the shared Hub.
type Talker struct {
	hub *ws.Hub
}

func NewTalker(hub *ws.Hub) *Talker {
	return &Talker{hub: hub}
}

// SendToUser sends a message to the given user through the Hub. Users without
// an open socket are skipped silently.
func (t *Talker) SendToUser(ctx context.Context, userID string, msg any) error {
	return t.hub.Send(userID, msg)
}
