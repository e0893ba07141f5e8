package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Logical tables on the Record Store.
const (
	TableFiles             = "files"
	TableChatSessions      = "chat_sessions"
	TableWorkspaceSessions = "workspace_sessions"
	TableMeta              = "meta"
)

// Keyed is a record that knows its own key and can be re-keyed.
type Keyed[T any] interface {
	RecordID() string
	WithID(id string) T
}

// Table is a typed JSON view over one logical table of a RecordStore.
type Table[T Keyed[T]] struct {
	store driven.RecordStore
	name  string
}

// NewTable creates a typed view over table name.
func NewTable[T Keyed[T]](store driven.RecordStore, name string) *Table[T] {
	return &Table[T]{store: store, name: name}
}

// Put stores rec under its own key.
func (t *Table[T]) Put(ctx context.Context, rec T) error {
	key := rec.RecordID()
	if key == "" {
		return fmt.Errorf("%s: %w: empty key", t.name, domain.ErrInvalidInput)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s: encode %s: %w", t.name, key, err)
	}
	return t.store.Put(ctx, t.name, key, data)
}

// Get returns the record under key, or domain.ErrNotFound.
func (t *Table[T]) Get(ctx context.Context, key string) (T, error) {
	var rec T
	data, err := t.store.Get(ctx, t.name, key)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("%s: decode %s: %w", t.name, key, err)
	}
	return rec, nil
}

// Delete removes key. Absent keys are ignored.
func (t *Table[T]) Delete(ctx context.Context, key string) error {
	return t.store.Delete(ctx, t.name, key)
}

// Rename moves the record under oldKey to newKey and rewrites its id.
// It is a no-op when oldKey is absent.
func (t *Table[T]) Rename(ctx context.Context, oldKey, newKey string) error {
	if oldKey == newKey {
		return nil
	}
	rec, err := t.Get(ctx, oldKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec.WithID(newKey))
	if err != nil {
		return fmt.Errorf("%s: encode %s: %w", t.name, newKey, err)
	}
	err = t.store.Rename(ctx, t.name, oldKey, newKey, data)
	if errors.Is(err, domain.ErrNotFound) {
		// removed between read and rename
		return nil
	}
	return err
}

// ListAll returns every record ordered by key.
func (t *Table[T]) ListAll(ctx context.Context) ([]T, error) {
	raw, err := t.store.List(ctx, t.name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var rec T
		if err := json.Unmarshal(r.Value, &rec); err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", t.name, r.Key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// metaEntry is a sentinel value in the meta table.
type metaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (m metaEntry) RecordID() string { return m.Key }

func (m metaEntry) WithID(id string) metaEntry {
	m.Key = id
	return m
}

// keyedMutex serialises read-modify-write cycles per record key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the lock for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
