// Package kafka provides a driven.NotificationSource that consumes summary
// events from a Kafka topic as part of a consumer group.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Handler retry policy for transient failures.
const (
	defaultAttempts = 3
	defaultBackoff  = time.Second
)

// Ensure Source implements the interface.
var _ driven.NotificationSource = (*Source)(nil)

// Config selects the topic to consume.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// messageReader is the subset of *kafka.Reader the source uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Source consumes summary events. A message is committed once handled,
// once it is known to be undeliverable, or once retries are exhausted.
type Source struct {
	reader   messageReader
	attempts int
	backoff  time.Duration
}

// NewSource creates a consumer-group reader for cfg.
func NewSource(cfg Config) (*Source, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka: brokers, topic and group id are required: %w", domain.ErrInvalidInput)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newSource(reader), nil
}

func newSource(reader messageReader) *Source {
	return &Source{
		reader:   reader,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
}

// Listen fetches messages until ctx is cancelled.
func (s *Source) Listen(ctx context.Context, handler driven.SummaryHandler) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka: fetch: %w", err)
		}

		s.deliver(ctx, msg, handler)

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.WithFields(logger.Fields{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).WithError(err).Error("failed to commit kafka message")
		}
	}
}

// deliver decodes msg and hands it to handler, retrying transient failures.
func (s *Source) deliver(ctx context.Context, msg kafka.Message, handler driven.SummaryHandler) {
	log := logger.WithFields(logger.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	n, err := Decode(msg.Value)
	if err != nil {
		log.WithError(err).Warn("skipping undecodable summary event")
		return
	}

	for attempt := 1; ; attempt++ {
		err := handler(ctx, n)
		if err == nil {
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) || attempt >= s.attempts {
			log.WithError(err).WithField("file", n.FileID).Error("dropping summary event")
			return
		}
		log.WithError(err).Debugf("summary event attempt %d failed, retrying", attempt)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.backoff):
		}
	}
}

// Close closes the underlying reader.
func (s *Source) Close() error {
	return s.reader.Close()
}

// Decode parses a summary event body.
func Decode(value []byte) (domain.SummaryNotification, error) {
	var n domain.SummaryNotification
	if err := json.Unmarshal(value, &n); err != nil {
		return n, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := n.Validate(); err != nil {
		return n, err
	}
	return n, nil
}
