package notify

import (
	"context"
	"log/slog"

	"github.com/Dominicksam/SmartLiving/internal/fanout"
)

// UserPublisher delivers an event to one user's live connections
type UserPublisher interface {
	PublishToUser(userID, event string, payload any)
}

// FanoutNotifier delivers notifications to the user's connected dashboard
// sessions. Delivery is best-effort; an offline user misses the message.
type FanoutNotifier struct {
	fanout UserPublisher
}

func NewFanoutNotifier(fan UserPublisher) *FanoutNotifier {
	return &FanoutNotifier{fanout: fan}
}

func (n *FanoutNotifier) Notify(ctx context.Context, userID, message string) error {
	slog.Info("notification", "user_id", userID, "message", message)
	n.fanout.PublishToUser(userID, fanout.EventNotification, fanout.Notification{Message: message})
	return nil
}
