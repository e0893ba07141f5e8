// Package redis provides a driven.RecordStore backed by a shared Redis
// instance. Each logical table is one hash under "<prefix>:<table>".
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// maxRenameAttempts bounds optimistic retries when another client touches
// the hash between WATCH and EXEC.
const maxRenameAttempts = 5

var _ driven.RecordStore = (*RecordStore)(nil)

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every hash. Defaults to "docchat".
	Prefix string
}

// RecordStore implements driven.RecordStore with Redis hashes.
type RecordStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRecordStore connects to Redis and verifies the connection with PING.
func NewRecordStore(ctx context.Context, opts Options) (*RecordStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	logger.Debug("redis: connected to %s db=%d", opts.Addr, opts.DB)
	return newRecordStore(rdb, opts.Prefix), nil
}

func newRecordStore(rdb *redis.Client, prefix string) *RecordStore {
	if prefix == "" {
		prefix = "docchat"
	}
	return &RecordStore{rdb: rdb, prefix: prefix}
}

// Put stores or replaces the value under key.
func (s *RecordStore) Put(ctx context.Context, table, key string, value []byte) error {
	if err := s.rdb.HSet(ctx, s.hashKey(table), key, value).Err(); err != nil {
		return fmt.Errorf("put %s/%s: %w", table, key, err)
	}
	return nil
}

// Get retrieves the value under key.
func (s *RecordStore) Get(ctx context.Context, table, key string) ([]byte, error) {
	v, err := s.rdb.HGet(ctx, s.hashKey(table), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, key, err)
	}
	return v, nil
}

// Delete removes key.
func (s *RecordStore) Delete(ctx context.Context, table, key string) error {
	if err := s.rdb.HDel(ctx, s.hashKey(table), key).Err(); err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, key, err)
	}
	return nil
}

// Rename moves oldKey to newKey inside a WATCH/MULTI/EXEC transaction.
func (s *RecordStore) Rename(ctx context.Context, table, oldKey, newKey string, value []byte) error {
	hash := s.hashKey(table)

	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, hash, oldKey).Result()
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, hash, oldKey)
			pipe.HSet(ctx, hash, newKey, value)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxRenameAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, hash)
		if errors.Is(err, redis.TxFailedErr) {
			logger.Debug("redis: rename %s/%s lost a race, retrying", table, oldKey)
			continue
		}
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err != nil {
			return fmt.Errorf("rename %s/%s -> %s: %w", table, oldKey, newKey, err)
		}
		return nil
	}
	return fmt.Errorf("rename %s/%s -> %s: %w", table, oldKey, newKey, redis.TxFailedErr)
}

// List returns every record of the table ordered by key.
func (s *RecordStore) List(ctx context.Context, table string) ([]driven.Record, error) {
	all, err := s.rdb.HGetAll(ctx, s.hashKey(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return sortedRecords(all), nil
}

// Close closes the client.
func (s *RecordStore) Close() error {
	return s.rdb.Close()
}

func (s *RecordStore) hashKey(table string) string {
	return s.prefix + ":" + table
}

func sortedRecords(all map[string]string) []driven.Record {
	out := make([]driven.Record, 0, len(all))
	for k, v := range all {
		out = append(out, driven.Record{Key: k, Value: []byte(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
