package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Attachments implements the interface.
var _ driving.AttachmentService = (*Attachments)(nil)

// Attachments keeps the file ledger and the conversation ledger consistent
// with each other and with the remote service. Neither ledger knows about
// the other; every cross-ledger rule lives here.
type Attachments struct {
	files        *FileLedger
	conversation *ConversationLedger
	reconciler   *Reconciler
	remote       driven.IndexingService
}

// NewAttachments creates the attachment service.
func NewAttachments(
	files *FileLedger,
	conversation *ConversationLedger,
	reconciler *Reconciler,
	remote driven.IndexingService,
) *Attachments {
	return &Attachments{
		files:        files,
		conversation: conversation,
		reconciler:   reconciler,
		remote:       remote,
	}
}

// Upload submits one batch. After a workspace batch is promoted the
// workspace session membership is synced with the ledger.
func (a *Attachments) Upload(
	ctx context.Context,
	workspaceID string,
	intents []domain.AttachmentIntent,
) (*domain.UploadBatch, error) {
	batch, err := a.reconciler.Submit(ctx, workspaceID, intents)
	if err != nil {
		return batch, err
	}
	if workspaceID == "" {
		return batch, nil
	}
	ids, err := a.memberIDs(ctx, workspaceID)
	if err != nil {
		return batch, err
	}
	if _, err := a.conversation.GetOrCreateWorkspaceSession(ctx, workspaceID, ids); err != nil {
		return batch, fmt.Errorf("sync workspace %s: %w", workspaceID, err)
	}
	return batch, nil
}

// Files lists records, optionally restricted to one workspace.
func (a *Attachments) Files(ctx context.Context, workspaceID string) ([]domain.FileRecord, error) {
	if workspaceID == "" {
		return a.files.List(ctx)
	}
	return a.files.ListByWorkspace(ctx, workspaceID)
}

// File returns one record.
func (a *Attachments) File(ctx context.Context, id string) (*domain.FileRecord, error) {
	return a.files.Get(ctx, id)
}

// DeleteFile removes the file remotely, then locally with its chat. If it
// belonged to a workspace the remaining members are synced.
func (a *Attachments) DeleteFile(ctx context.Context, id string) error {
	rec, err := a.files.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.IsIndexed {
		if err := a.remote.DeleteFile(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}

	if err := a.files.DeleteByID(ctx, id); err != nil {
		return err
	}
	if err := a.conversation.DeleteSession(ctx, id); err != nil {
		return err
	}
	if rec.WorkspaceID == "" {
		return nil
	}
	ids, err := a.memberIDs(ctx, rec.WorkspaceID)
	if err != nil {
		return err
	}
	return a.conversation.SyncWorkspaceFiles(ctx, rec.WorkspaceID, ids)
}

// DeleteWorkspace removes the workspace remotely, then its records, its
// session and the per-file sessions of its members.
func (a *Attachments) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	if workspaceID == "" {
		return domain.ErrInvalidInput
	}
	if err := a.remote.DeleteWorkspace(ctx, workspaceID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete workspace %s: %w", workspaceID, err)
	}

	ids, err := a.files.DeleteByWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := a.conversation.DeleteSession(ctx, id); err != nil {
			return err
		}
	}
	if err := a.conversation.DeleteWorkspaceSession(ctx, workspaceID); err != nil {
		return err
	}
	logger.Info("workspace %s deleted with %d file(s)", workspaceID, len(ids))
	return nil
}

// Rename changes the display name locally. The remote copy keeps its name.
func (a *Attachments) Rename(ctx context.Context, id, name string) error {
	return a.files.Rename(ctx, id, name)
}

// Recover discards records of batches that never settled. Call it at
// process start, before any upload.
func (a *Attachments) Recover(ctx context.Context) (int, error) {
	n, err := a.files.SweepUnindexed(ctx)
	if err != nil {
		return n, fmt.Errorf("recover staging: %w", err)
	}
	return n, nil
}

// SweepOrphans discards unindexed records older than maxAge.
func (a *Attachments) SweepOrphans(ctx context.Context, maxAge time.Duration) (int, error) {
	return a.files.SweepUnindexedOlderThan(ctx, maxAge)
}

// memberIDs returns the promoted file ids of a workspace.
func (a *Attachments) memberIDs(ctx context.Context, workspaceID string) ([]string, error) {
	members, err := a.files.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, rec := range members {
		if !rec.IsTemporary() {
			ids = append(ids, rec.ID)
		}
	}
	return ids, nil
}
