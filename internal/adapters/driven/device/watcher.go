package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// DefaultSettle is how long a directory must stay quiet before the files
// that appeared in it are uploaded.
const DefaultSettle = 500 * time.Millisecond

// ErrWatcherClosed is returned by Run after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher uploads regular files created in a directory. Files arriving
// close together are sent as one batch once writes have settled.
type Watcher struct {
	dir         string
	workspaceID string
	attachments driving.AttachmentService

	// Settle is the quiet period before a batch is sent.
	Settle time.Duration

	mu     sync.Mutex
	closed bool
	fsw    *fsnotify.Watcher
}

// NewWatcher creates a watcher of dir. Uploads go to workspaceID, or to
// single-file mode when it is empty.
func NewWatcher(dir, workspaceID string, attachments driving.AttachmentService) *Watcher {
	return &Watcher{
		dir:         dir,
		workspaceID: workspaceID,
		attachments: attachments,
		Settle:      DefaultSettle,
	}
}

// Run watches until ctx is cancelled or the watcher is closed.
// Upload failures are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch dir error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch dir error: %s is not a directory: %w", w.dir, domain.ErrInvalidInput)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		w.mu.Unlock()
		_ = fsw.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.fsw = fsw
	w.mu.Unlock()
	defer fsw.Close()

	logger.Info("Watching %s", w.dir)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.Settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flush(ctx, pending)
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return ErrWatcherClosed
			}
			path, arrived := handleFsEvent(ev)
			if !arrived {
				if _, waiting := pending[ev.Name]; !waiting || !ev.Has(fsnotify.Write) {
					continue
				}
				path = ev.Name
			}
			pending[path] = struct{}{}
			timer.Reset(w.Settle)

		case err, ok := <-fsw.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			logger.Warn("watch: %v", err)

		case <-timer.C:
			w.flush(ctx, pending)
		}
	}
}

// Close stops a running watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// flush uploads every pending file as one batch and clears the set.
func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for p := range pending {
		delete(pending, p)
		if isRegularFile(p) {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	intents := make([]domain.AttachmentIntent, len(paths))
	for i, p := range paths {
		intents[i] = domain.AttachmentIntent{Source: domain.FileSourceDevice, Location: p}
	}

	// The batch is settled even when ctx is already cancelled.
	batch, err := w.attachments.Upload(context.WithoutCancel(ctx), w.workspaceID, intents)
	if err != nil {
		logger.Error("watch: upload of %d file(s) failed: %v", len(paths), err)
		return
	}
	logger.Info("Uploaded %d file(s) from %s", len(batch.Files), w.dir)
}

// handleFsEvent reports whether ev brings a new visible regular file.
func handleFsEvent(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) {
		return "", false
	}
	if isHidden(ev.Name) || !isRegularFile(ev.Name) {
		return "", false
	}
	return ev.Name, true
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
