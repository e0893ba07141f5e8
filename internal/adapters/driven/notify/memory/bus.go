// Package memory provides an in-process driven.NotificationSource.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// ErrBusClosed is returned when publishing to or listening on a closed bus.
var ErrBusClosed = errors.New("notification bus closed")

// Ensure Bus implements the interface.
var _ driven.NotificationSource = (*Bus)(nil)

// Bus is a buffered channel of notifications.
type Bus struct {
	events chan domain.SummaryNotification
	done   chan struct{}
	once   sync.Once
}

// NewBus creates a bus holding up to buffer undelivered events.
func NewBus(buffer int) *Bus {
	if buffer < 0 {
		buffer = 0
	}
	return &Bus{
		events: make(chan domain.SummaryNotification, buffer),
		done:   make(chan struct{}),
	}
}

// Publish queues n, blocking while the buffer is full.
func (b *Bus) Publish(ctx context.Context, n domain.SummaryNotification) error {
	select {
	case <-b.done:
		return ErrBusClosed
	default:
	}
	select {
	case b.events <- n:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Listen delivers events to handler until ctx is cancelled or the bus is
// closed. Handler errors are logged; the event is not redelivered.
func (b *Bus) Listen(ctx context.Context, handler driven.SummaryHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return ErrBusClosed
		case n := <-b.events:
			if err := handler(ctx, n); err != nil {
				logger.Debug("notify/memory: event for %s failed: %v", n.FileID, err)
			}
		}
	}
}

// Close stops the bus. Safe to call more than once.
func (b *Bus) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}
