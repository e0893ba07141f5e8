package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// fakeReader serves queued messages, then blocks until ctx is cancelled.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	fetchErr  error
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErr != nil {
		err := r.fetchErr
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func listenUntil(t *testing.T, s *Source, handler func(context.Context, domain.SummaryNotification) error, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- s.Listen(ctx, handler) }()

	require.Eventually(t, done, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-result)
}

func TestNewSource_Validation(t *testing.T) {
	_, err := NewSource(Config{Topic: "t", GroupID: "g"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s, err := NewSource(Config{Brokers: []string{"localhost:9092"}, Topic: "t", GroupID: "g"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestSource_HandlesAndCommits(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte(`{"fileId":"f1","summary":"one"}`)},
		{Offset: 2, Value: []byte(`{"fileId":"f2","summary":"two","timestamp":"2026-01-02T03:04:05Z"}`)},
	}}
	s := newSource(reader)

	var mu sync.Mutex
	var got []domain.SummaryNotification
	listenUntil(t, s, func(_ context.Context, n domain.SummaryNotification) error {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		return nil
	}, func() bool { return len(reader.commits()) == 2 })

	require.Len(t, got, 2)
	assert.Equal(t, "f1", got[0].FileID)
	assert.Equal(t, "two", got[1].Summary)
	assert.Equal(t, 2026, got[1].Timestamp.Year())
	assert.Equal(t, []int64{1, 2}, reader.commits())
}

func TestSource_PoisonMessagesAreCommitted(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte(`not json`)},
		{Offset: 2, Value: []byte(`{"summary":"no file"}`)},
	}}
	s := newSource(reader)

	calls := 0
	listenUntil(t, s, func(context.Context, domain.SummaryNotification) error {
		calls++
		return nil
	}, func() bool { return len(reader.commits()) == 2 })

	assert.Zero(t, calls)
}

func TestSource_RetriesTransientFailures(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 7, Value: []byte(`{"fileId":"f1","summary":"s"}`)},
	}}
	s := newSource(reader)
	s.backoff = time.Millisecond

	var mu sync.Mutex
	calls := 0
	listenUntil(t, s, func(context.Context, domain.SummaryNotification) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 2 {
			return errors.New("store busy")
		}
		return nil
	}, func() bool { return len(reader.commits()) == 1 })

	assert.Equal(t, 2, calls)
}

func TestSource_InvalidInputNotRetried(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte(`{"fileId":"f1","summary":"s"}`)},
	}}
	s := newSource(reader)
	s.backoff = time.Millisecond

	calls := 0
	listenUntil(t, s, func(context.Context, domain.SummaryNotification) error {
		calls++
		return domain.ErrInvalidInput
	}, func() bool { return len(reader.commits()) == 1 })

	assert.Equal(t, 1, calls)
}

func TestSource_FetchError(t *testing.T) {
	s := newSource(&fakeReader{fetchErr: errors.New("broker gone")})

	err := s.Listen(context.Background(), func(context.Context, domain.SummaryNotification) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker gone")
}

func TestSource_Close(t *testing.T) {
	reader := &fakeReader{}
	require.NoError(t, newSource(reader).Close())
	assert.True(t, reader.closed)
}

func TestDecode(t *testing.T) {
	n, err := Decode([]byte(`{"fileId":"f","summary":"s"}`))
	require.NoError(t, err)
	assert.Equal(t, "f", n.FileID)

	n, err = Decode([]byte(`{"fileId":"f","summary":"s","timestamp":1709294400000}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1709294400), n.Timestamp.Unix())

	_, err = Decode([]byte(`{`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Decode([]byte(`{"summary":"s"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
