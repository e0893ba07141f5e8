package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
// Values are copied on the way in and out so callers never share buffers.
type RecordStore struct {
	mu     sync.RWMutex
	tables map[string]map[string][]byte
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		tables: make(map[string]map[string][]byte),
	}
}

// Put stores or replaces the value under key.
func (s *RecordStore) Put(_ context.Context, table, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(table)[key] = slices.Clone(value)
	return nil
}

// Get retrieves the value under key.
func (s *RecordStore) Get(_ context.Context, table, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tables[table][key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(v), nil
}

// Delete removes key.
func (s *RecordStore) Delete(_ context.Context, table, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables[table], key)
	return nil
}

// Rename moves oldKey to newKey under a single lock.
func (s *RecordStore) Rename(_ context.Context, table, oldKey, newKey string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(table)
	if _, ok := t[oldKey]; !ok {
		return domain.ErrNotFound
	}
	delete(t, oldKey)
	t[newKey] = slices.Clone(value)
	return nil
}

// List returns every record of the table ordered by key.
func (s *RecordStore) List(_ context.Context, table string) ([]driven.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.tables[table]
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]driven.Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, driven.Record{Key: k, Value: slices.Clone(t[k])})
	}
	return out, nil
}

// Close is a no-op.
func (s *RecordStore) Close() error {
	return nil
}

// table returns the named table, creating it. Caller holds the write lock.
func (s *RecordStore) table(name string) map[string][]byte {
	t, ok := s.tables[name]
	if !ok {
		t = make(map[string][]byte)
		s.tables[name] = t
	}
	return t
}
