package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SummaryHandler processes one inbound notification.
// Returning an error leaves the event unacknowledged where the transport supports it.
type SummaryHandler func(ctx context.Context, n domain.SummaryNotification) error

// NotificationSource delivers "summary ready" events.
type NotificationSource interface {
	// Listen blocks, invoking handler for every event, until ctx is cancelled.
	Listen(ctx context.Context, handler SummaryHandler) error

	// Close releases transport resources.
	Close() error
}
