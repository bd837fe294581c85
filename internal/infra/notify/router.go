package notify

import (
	"context"
	"fmt"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
)

// Router dispatches a notification to the sender registered for its channel.
// Unregistered channels go to the fallback when one is set.
type Router struct {
	senders  map[string]port.NotificationSender
	fallback port.NotificationSender
}

// NewRouter returns a router with no channels registered.
func NewRouter(fallback port.NotificationSender) *Router {
	return &Router{
		senders:  make(map[string]port.NotificationSender),
		fallback: fallback,
	}
}

// Register binds sender to channel, replacing any previous binding.
func (r *Router) Register(channel string, sender port.NotificationSender) *Router {
	if sender != nil {
		r.senders[channel] = sender
	}
	return r
}

// Send implements port.NotificationSender.
func (r *Router) Send(ctx context.Context, n domain.Notification) error {
	if sender, ok := r.senders[n.Channel]; ok {
		return sender.Send(ctx, n)
	}
	if r.fallback != nil {
		return r.fallback.Send(ctx, n)
	}
	return fmt.Errorf("%w: %s", ErrChannelUnavailable, n.Channel)
}

var _ port.NotificationSender = (*Router)(nil)
