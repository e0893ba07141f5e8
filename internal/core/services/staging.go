package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// FileLedger tracks attachments from staging through promotion to deletion.
type FileLedger struct {
	files     *Table[domain.FileRecord]
	inspector driven.ContentInspector
	now       func() time.Time
	newID     func() string
}

// NewFileLedger creates a ledger over the files table of store.
// inspector may be nil.
func NewFileLedger(store driven.RecordStore, inspector driven.ContentInspector) *FileLedger {
	return &FileLedger{
		files:     NewTable[domain.FileRecord](store, TableFiles),
		inspector: inspector,
		now:       time.Now,
		newID:     func() string { return domain.TempIDPrefix + uuid.NewString() },
	}
}

// Stage writes one provisional record per intent and returns them in input
// order. Every intent is validated before the first write; if a write fails
// the records already written are discarded and ErrStaging is returned.
func (l *FileLedger) Stage(
	ctx context.Context,
	workspaceID string,
	intents []domain.AttachmentIntent,
) ([]domain.StagedFile, error) {
	if len(intents) == 0 {
		return nil, fmt.Errorf("%w: empty batch", domain.ErrInvalidInput)
	}

	staged := make([]domain.StagedFile, 0, len(intents))
	for i, intent := range intents {
		rec, err := l.buildRecord(ctx, intent)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		rec.ID = l.newID()
		rec.WorkspaceID = workspaceID
		staged = append(staged, domain.StagedFile{TempID: rec.ID, Record: rec})
	}

	for i, s := range staged {
		if err := l.files.Put(ctx, s.Record); err != nil {
			for _, written := range staged[:i] {
				if derr := l.files.Delete(ctx, written.TempID); derr != nil {
					logger.Warn("staging: cleanup of %s failed: %v", written.TempID, derr)
				}
			}
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrStaging, s.TempID, err)
		}
	}

	logger.Debug("staging: %d record(s) staged for workspace %q", len(staged), workspaceID)
	return staged, nil
}

func (l *FileLedger) buildRecord(ctx context.Context, intent domain.AttachmentIntent) (domain.FileRecord, error) {
	rec := domain.FileRecord{
		Source:       intent.Source,
		OriginalName: intent.DisplayName,
		UploadDate:   l.now().UTC(),
	}

	switch {
	case intent.Source == domain.FileSourceDevice:
		if strings.TrimSpace(intent.Location) == "" {
			return rec, fmt.Errorf("%w: device file without a path", domain.ErrInvalidInput)
		}
		rec.LocalURI = intent.Location
		if rec.OriginalName == "" {
			rec.OriginalName = filepath.Base(intent.Location)
		}
		if l.inspector == nil {
			break
		}
		info, err := l.inspector.Inspect(ctx, intent.Location)
		if err != nil {
			return rec, fmt.Errorf("%w: inspect %s: %w", domain.ErrInvalidInput, intent.Location, err)
		}
		if intent.DisplayName == "" && info.Name != "" {
			rec.OriginalName = info.Name
		}
		rec.MimeType = info.MimeType
		rec.Size = info.Size

	case intent.Source.IsRemote():
		u, err := url.Parse(intent.Location)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return rec, fmt.Errorf("%w: not an http(s) url: %q", domain.ErrInvalidInput, intent.Location)
		}
		rec.OriginalURL = u.String()
		if rec.OriginalName == "" {
			rec.OriginalName = nameFromURL(u)
		}
		if intent.Source == domain.FileSourceWebpage {
			rec.MimeType = "text/html"
		} else {
			rec.MimeType = mime.TypeByExtension(path.Ext(u.Path))
		}

	default:
		return rec, fmt.Errorf("%w: unknown source %q", domain.ErrInvalidInput, intent.Source)
	}

	return rec, nil
}

func nameFromURL(u *url.URL) string {
	if base := path.Base(u.Path); base != "/" && base != "." && base != "" {
		return base
	}
	return u.Host
}

// Promote re-keys a staged record under its canonical id.
// An unknown tempID is a caller bug: it is logged and ignored.
func (l *FileLedger) Promote(ctx context.Context, tempID, canonicalID string) error {
	if canonicalID == "" {
		return fmt.Errorf("%w: empty canonical id for %s", domain.ErrInvalidInput, tempID)
	}
	if _, err := l.files.Get(ctx, tempID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("staging: promote of unknown record %s ignored", tempID)
			return nil
		}
		return err
	}
	return l.files.Rename(ctx, tempID, canonicalID)
}

// MarkIndexed flips isIndexed on a record. Unknown ids are logged and ignored.
func (l *FileLedger) MarkIndexed(ctx context.Context, id string) error {
	rec, err := l.files.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("staging: mark indexed of unknown record %s ignored", id)
		return nil
	}
	if err != nil {
		return err
	}
	if rec.IsIndexed {
		return nil
	}
	rec.IsIndexed = true
	return l.files.Put(ctx, rec)
}

// Discard deletes a staged record. Used for rollback.
func (l *FileLedger) Discard(ctx context.Context, tempID string) error {
	return l.files.Delete(ctx, tempID)
}

// Get returns one record.
func (l *FileLedger) Get(ctx context.Context, id string) (*domain.FileRecord, error) {
	rec, err := l.files.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all records ordered by id.
func (l *FileLedger) List(ctx context.Context) ([]domain.FileRecord, error) {
	return l.files.ListAll(ctx)
}

// ListByWorkspace returns the records belonging to workspaceID.
func (l *FileLedger) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.FileRecord, error) {
	all, err := l.files.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.FileRecord, 0, len(all))
	for _, rec := range all {
		if rec.WorkspaceID == workspaceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// DeleteByID removes one record.
func (l *FileLedger) DeleteByID(ctx context.Context, id string) error {
	return l.files.Delete(ctx, id)
}

// DeleteByWorkspace removes every record of workspaceID and returns their ids.
func (l *FileLedger) DeleteByWorkspace(ctx context.Context, workspaceID string) ([]string, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: empty workspace id", domain.ErrInvalidInput)
	}
	members, err := l.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, rec := range members {
		if err := l.files.Delete(ctx, rec.ID); err != nil {
			return ids, err
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// Rename changes the display name only.
func (l *FileLedger) Rename(ctx context.Context, id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: empty name", domain.ErrInvalidInput)
	}
	rec, err := l.files.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.OriginalName = newName
	return l.files.Put(ctx, rec)
}

// SweepUnindexed deletes every unindexed record regardless of age.
// Run it at process start, before any batch is in flight.
func (l *FileLedger) SweepUnindexed(ctx context.Context) (int, error) {
	return l.sweep(ctx, func(domain.FileRecord) bool { return true })
}

// SweepUnindexedOlderThan deletes unindexed records staged more than maxAge
// ago. Records of a batch still in flight are younger and survive.
func (l *FileLedger) SweepUnindexedOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := l.now().Add(-maxAge)
	return l.sweep(ctx, func(rec domain.FileRecord) bool {
		return rec.UploadDate.Before(cutoff)
	})
}

func (l *FileLedger) sweep(ctx context.Context, eligible func(domain.FileRecord) bool) (int, error) {
	all, err := l.files.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range all {
		if rec.IsIndexed || !eligible(rec) {
			continue
		}
		if err := l.files.Delete(ctx, rec.ID); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		logger.Info("staging: swept %d unindexed record(s)", n)
	}
	return n, nil
}
