package driven

import "context"

// Record is one raw entry of a logical table.
type Record struct {
	Key   string
	Value []byte
}

// RecordStore is a durable key to JSON-document map, partitioned into
// logical tables (file metadata, chat sessions, workspace sessions, meta).
// Values are opaque bytes; typed views live in the core services.
type RecordStore interface {
	// Put stores or replaces the value under key.
	Put(ctx context.Context, table, key string, value []byte) error

	// Get retrieves the value under key.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, table, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, table, key string) error

	// Rename atomically removes oldKey and stores value under newKey.
	// Returns domain.ErrNotFound if oldKey does not exist; nothing is written.
	Rename(ctx context.Context, table, oldKey, newKey string, value []byte) error

	// List returns every record in the table ordered by key.
	List(ctx context.Context, table string) ([]Record, error)

	// Close releases the underlying resources.
	Close() error
}
