// Package mcp provides an MCP (Model Context Protocol) server adapter for
// docchat. It lets AI assistants list attached files, read chat history and
// ask questions about indexed content.
package mcp

import "errors"

var (
	// ErrMissingAttachmentService is returned when the attachment service is not provided.
	ErrMissingAttachmentService = errors.New("mcp: attachment service is required")

	// ErrMissingConversationService is returned when the conversation service is not provided.
	ErrMissingConversationService = errors.New("mcp: conversation service is required")

	// ErrConversationRef is returned when a tool gets neither or both of
	// file_id and workspace_id.
	ErrConversationRef = errors.New("mcp: exactly one of file_id and workspace_id is required")
)
