package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var errDisk = errors.New("disk unavailable")

// faultyStore wraps a memory store and fails selected operations.
type faultyStore struct {
	*memory.RecordStore

	mu         sync.Mutex
	putErr     error
	failPutsAt int // fail the n-th Put (1-based) when > 0
	puts       int
	renameErr  error
	listErr    error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{RecordStore: memory.NewRecordStore()}
}

func (s *faultyStore) Put(ctx context.Context, table, key string, value []byte) error {
	s.mu.Lock()
	s.puts++
	fail := s.putErr != nil || (s.failPutsAt > 0 && s.puts == s.failPutsAt)
	s.mu.Unlock()
	if fail {
		return errDisk
	}
	return s.RecordStore.Put(ctx, table, key, value)
}

func (s *faultyStore) Rename(ctx context.Context, table, oldKey, newKey string, value []byte) error {
	if s.renameErr != nil {
		return s.renameErr
	}
	return s.RecordStore.Rename(ctx, table, oldKey, newKey, value)
}

func (s *faultyStore) List(ctx context.Context, table string) ([]driven.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.RecordStore.List(ctx, table)
}

// ctxStore wraps a memory store and refuses work on a done context, the way
// the SQLite and Redis backends do.
type ctxStore struct {
	*memory.RecordStore

	renameErr error
}

func newCtxStore() *ctxStore {
	return &ctxStore{RecordStore: memory.NewRecordStore()}
}

func (s *ctxStore) Put(ctx context.Context, table, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.RecordStore.Put(ctx, table, key, value)
}

func (s *ctxStore) Get(ctx context.Context, table, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.RecordStore.Get(ctx, table, key)
}

func (s *ctxStore) Delete(ctx context.Context, table, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.RecordStore.Delete(ctx, table, key)
}

func (s *ctxStore) Rename(ctx context.Context, table, oldKey, newKey string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.renameErr != nil {
		return s.renameErr
	}
	return s.RecordStore.Rename(ctx, table, oldKey, newKey, value)
}

func (s *ctxStore) List(ctx context.Context, table string) ([]driven.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.RecordStore.List(ctx, table)
}

// fakeIndexer is a scripted driven.IndexingService.
type fakeIndexer struct {
	mu sync.Mutex

	uploadResp *driven.UploadResponse
	uploadErr  error
	uploadFn   func(ctx context.Context, req driven.UploadRequest) (*driven.UploadResponse, error)
	uploads    []driven.UploadRequest

	deleteErr        error
	deleted          []string
	deletedWorkspace []string

	answer  *driven.QueryAnswer
	askErr  error
	queries []driven.QueryRequest
}

func (f *fakeIndexer) UploadBatch(ctx context.Context, req driven.UploadRequest) (*driven.UploadResponse, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, req)
	fn := f.uploadFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return f.uploadResp, f.uploadErr
}

func (f *fakeIndexer) DeleteFile(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileID)
	return f.deleteErr
}

func (f *fakeIndexer) DeleteWorkspace(_ context.Context, workspaceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedWorkspace = append(f.deletedWorkspace, workspaceID)
	return f.deleteErr
}

func (f *fakeIndexer) Query(_ context.Context, req driven.QueryRequest) (*driven.QueryAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, req)
	if f.askErr != nil {
		return nil, f.askErr
	}
	return f.answer, nil
}

// echoUpload answers every item with a canonical id derived from its position.
func echoUpload(ids ...string) func(context.Context, driven.UploadRequest) (*driven.UploadResponse, error) {
	return func(_ context.Context, req driven.UploadRequest) (*driven.UploadResponse, error) {
		files := make([]domain.CanonicalFile, len(req.Items))
		for i, item := range req.Items {
			files[i] = domain.CanonicalFile{ID: ids[i], OriginalName: item.Name, UploadDate: time.Now()}
		}
		return &driven.UploadResponse{Success: true, FilesProcessed: len(files), Files: files}, nil
	}
}

// stubInspector returns fixed content info.
type stubInspector struct {
	info driven.ContentInfo
	err  error
}

func (s stubInspector) Inspect(_ context.Context, _ string) (driven.ContentInfo, error) {
	return s.info, s.err
}

// fixedClock returns a controllable clock.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func deviceIntent(path string) domain.AttachmentIntent {
	return domain.AttachmentIntent{Source: domain.FileSourceDevice, Location: path}
}

func urlIntent(u string) domain.AttachmentIntent {
	return domain.AttachmentIntent{Source: domain.FileSourceURL, Location: u}
}

func webpageIntent(u string) domain.AttachmentIntent {
	return domain.AttachmentIntent{Source: domain.FileSourceWebpage, Location: u}
}
