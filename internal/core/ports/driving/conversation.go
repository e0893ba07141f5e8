package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ConversationService answers questions and exposes chat transcripts.
type ConversationService interface {
	// Ask sends a question about a file or workspace and records the exchange.
	Ask(ctx context.Context, ref domain.ConversationRef, question string) (*domain.ChatMessage, error)

	// History returns the full ordered transcript of a conversation.
	// An unknown conversation yields an empty transcript.
	History(ctx context.Context, ref domain.ConversationRef) ([]domain.ChatMessage, error)

	// Summary returns the stored summary for a file. For a workspace
	// reference, FileID selects the member file.
	Summary(ctx context.Context, ref domain.ConversationRef, fileID string) (string, error)
}

// RetentionService prunes old chat messages.
type RetentionService interface {
	// Sweep prunes expired messages. Unless force is set, the call is a
	// no-op when the previous sweep is too recent.
	Sweep(ctx context.Context, force bool) (*domain.SweepReport, error)
}
