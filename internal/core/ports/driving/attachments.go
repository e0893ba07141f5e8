package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// AttachmentService manages the files attached to chats.
// Used by the CLI, the directory watcher and MCP adapters.
type AttachmentService interface {
	// Upload stages intents, submits them as one batch and settles it.
	// Either every item is promoted or none is kept.
	Upload(ctx context.Context, workspaceID string, intents []domain.AttachmentIntent) (*domain.UploadBatch, error)

	// Files lists file records, restricted to a workspace when one is given.
	Files(ctx context.Context, workspaceID string) ([]domain.FileRecord, error)

	// File returns one file record.
	File(ctx context.Context, id string) (*domain.FileRecord, error)

	// DeleteFile removes a file remotely and locally, including its chat.
	DeleteFile(ctx context.Context, id string) error

	// DeleteWorkspace removes a workspace, its files and all related chats.
	DeleteWorkspace(ctx context.Context, workspaceID string) error

	// Rename changes a file's display name. Local only.
	Rename(ctx context.Context, id, name string) error

	// Recover discards every unindexed record left by an interrupted batch.
	Recover(ctx context.Context) (int, error)

	// SweepOrphans discards unindexed records older than maxAge.
	SweepOrphans(ctx context.Context, maxAge time.Duration) (int, error)
}
