package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// DefaultRemoteTimeout bounds a batch submission when none is configured.
const DefaultRemoteTimeout = 120 * time.Second

// settleTimeout bounds the local promote or rollback writes and the remote
// cleanup that follow a submission. It starts after the remote call returns.
const settleTimeout = 30 * time.Second

// Reconciler drives one upload batch through
// Staged -> Submitted -> {Promoted | RolledBack}.
type Reconciler struct {
	files   *FileLedger
	remote  driven.IndexingService
	userID  string
	timeout time.Duration
}

// NewReconciler creates a coordinator. A non-positive timeout selects
// DefaultRemoteTimeout.
func NewReconciler(files *FileLedger, remote driven.IndexingService, userID string, timeout time.Duration) *Reconciler {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &Reconciler{
		files:   files,
		remote:  remote,
		userID:  userID,
		timeout: timeout,
	}
}

// Submit stages intents, sends them in one request and settles the batch.
//
// Once the request is sent the batch runs to completion even if ctx is
// cancelled; only the configured timeout forces the rollback path. On any
// failure after staging, the returned batch is RolledBack and no record of
// it remains.
func (r *Reconciler) Submit(
	ctx context.Context,
	workspaceID string,
	intents []domain.AttachmentIntent,
) (*domain.UploadBatch, error) {
	logger.Section("Upload")

	staged, err := r.files.Stage(ctx, workspaceID, intents)
	if err != nil {
		return nil, err
	}
	batch := &domain.UploadBatch{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		State:       domain.BatchStaged,
		Staged:      staged,
	}
	log := logger.WithFields(logger.Fields{"batch": batch.ID, "workspace": workspaceID, "items": len(staged)})

	if err := batch.Advance(domain.BatchSubmitted); err != nil {
		return batch, err
	}
	remoteCtx, cancelRemote := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	resp, err := r.remote.UploadBatch(remoteCtx, r.request(batch))
	cancelRemote()
	if err == nil {
		err = checkUploadResponse(resp, len(staged))
	}

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if err != nil {
		r.rollback(settleCtx, batch, nil)
		log.WithError(err).WithField("remote", domain.IsRemoteFailure(err)).Warn("upload rolled back")
		return batch, err
	}

	if err := r.promote(settleCtx, batch, resp.Files); err != nil {
		r.rollback(settleCtx, batch, resp.Files)
		r.forgetRemote(settleCtx, resp.Files)
		log.WithError(err).Error("promotion failed, batch rolled back")
		return batch, fmt.Errorf("%w: %w", domain.ErrPromotion, err)
	}

	batch.Files = resp.Files
	if err := batch.Advance(domain.BatchPromoted); err != nil {
		return batch, err
	}
	log.Info("upload promoted")
	return batch, nil
}

func (r *Reconciler) request(batch *domain.UploadBatch) driven.UploadRequest {
	items := make([]driven.UploadItem, len(batch.Staged))
	for i, s := range batch.Staged {
		items[i] = driven.UploadItem{
			TempID:   s.TempID,
			Source:   s.Record.Source,
			LocalURI: s.Record.LocalURI,
			URL:      s.Record.OriginalURL,
			Name:     s.Record.OriginalName,
			MimeType: s.Record.MimeType,
		}
	}
	return driven.UploadRequest{
		WorkspaceID: batch.WorkspaceID,
		UserID:      r.userID,
		Items:       items,
	}
}

// checkUploadResponse accepts only a successful reply carrying exactly one
// usable descriptor per submitted item.
func checkUploadResponse(resp *driven.UploadResponse, submitted int) error {
	if resp == nil {
		return fmt.Errorf("%w: empty response", domain.ErrProtocol)
	}
	if !resp.Success {
		if len(resp.Errors) > 0 {
			return fmt.Errorf("%w: %s", domain.ErrUploadRejected, strings.Join(resp.Errors, "; "))
		}
		return domain.ErrUploadRejected
	}
	if len(resp.Files) == 0 {
		return fmt.Errorf("%w: success without file details (filesProcessed=%d)",
			domain.ErrProtocol, resp.FilesProcessed)
	}
	if len(resp.Files) != submitted {
		return fmt.Errorf("%w: %d file(s) returned for %d submitted",
			domain.ErrProtocol, len(resp.Files), submitted)
	}
	seen := make(map[string]struct{}, len(resp.Files))
	for i, f := range resp.Files {
		if f.ID == "" || domain.IsTempID(f.ID) {
			return fmt.Errorf("%w: file %d has no canonical id", domain.ErrProtocol, i)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("%w: duplicate canonical id %s", domain.ErrProtocol, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// promote pairs staged records with canonical files by position.
func (r *Reconciler) promote(ctx context.Context, batch *domain.UploadBatch, files []domain.CanonicalFile) error {
	for i, s := range batch.Staged {
		canonical := files[i].ID
		if err := r.files.Promote(ctx, s.TempID, canonical); err != nil {
			return fmt.Errorf("promote %s: %w", s.TempID, err)
		}
		if err := r.files.MarkIndexed(ctx, canonical); err != nil {
			return fmt.Errorf("mark %s indexed: %w", canonical, err)
		}
	}
	return nil
}

// rollback discards every record of the batch, under both its temporary and,
// when known, its canonical id.
func (r *Reconciler) rollback(ctx context.Context, batch *domain.UploadBatch, files []domain.CanonicalFile) {
	for i, tempID := range batch.TempIDs() {
		if err := r.files.Discard(ctx, tempID); err != nil {
			logger.Warn("reconcile: discard %s: %v", tempID, err)
		}
		if i < len(files) {
			if err := r.files.Discard(ctx, files[i].ID); err != nil {
				logger.Warn("reconcile: discard %s: %v", files[i].ID, err)
			}
		}
	}
	if err := batch.Advance(domain.BatchRolledBack); err != nil {
		logger.Warn("reconcile: batch %s: %v", batch.ID, err)
	}
}

// forgetRemote asks the service to drop files it accepted but that could not
// be kept locally. Best effort.
func (r *Reconciler) forgetRemote(ctx context.Context, files []domain.CanonicalFile) {
	for _, f := range files {
		err := r.remote.DeleteFile(ctx, f.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("reconcile: remote delete of %s: %v", f.ID, err)
		}
	}
}
