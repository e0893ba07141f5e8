package mcp

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Attachments lists and describes attached files.
	Attachments driving.AttachmentService

	// Conversations reads transcripts and answers questions.
	Conversations driving.ConversationService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Attachments == nil {
		return ErrMissingAttachmentService
	}
	if p.Conversations == nil {
		return ErrMissingConversationService
	}
	return nil
}
