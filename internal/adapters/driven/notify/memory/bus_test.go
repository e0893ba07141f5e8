package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Publish(ctx, domain.SummaryNotification{FileID: "a"}))
	require.NoError(t, bus.Publish(ctx, domain.SummaryNotification{FileID: "b"}))

	got := make(chan string, 2)
	go func() {
		_ = bus.Listen(ctx, func(_ context.Context, n domain.SummaryNotification) error {
			got <- n.FileID
			return nil
		})
	}()

	assert.Equal(t, "a", <-got)
	assert.Equal(t, "b", <-got)
}

func TestBus_HandlerErrorDoesNotStop(t *testing.T) {
	bus := NewBus(2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Publish(ctx, domain.SummaryNotification{FileID: "bad"}))
	require.NoError(t, bus.Publish(ctx, domain.SummaryNotification{FileID: "good"}))

	seen := make(chan string, 2)
	go func() {
		_ = bus.Listen(ctx, func(_ context.Context, n domain.SummaryNotification) error {
			seen <- n.FileID
			if n.FileID == "bad" {
				return errors.New("boom")
			}
			return nil
		})
	}()

	assert.Equal(t, "bad", <-seen)
	assert.Equal(t, "good", <-seen)
}

func TestBus_ListenStopsOnCancel(t *testing.T) {
	bus := NewBus(0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- bus.Listen(ctx, func(context.Context, domain.SummaryNotification) error { return nil })
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listen did not return")
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus(1)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), domain.SummaryNotification{FileID: "x"})
	assert.ErrorIs(t, err, ErrBusClosed)

	err = bus.Listen(context.Background(), func(context.Context, domain.SummaryNotification) error { return nil })
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBus_PublishRespectsContext(t *testing.T) {
	bus := NewBus(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := bus.Publish(ctx, domain.SummaryNotification{FileID: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
