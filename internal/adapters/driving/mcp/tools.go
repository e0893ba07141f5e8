package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/services"
)

// ListFilesInput is the input schema for the list_files tool.
type ListFilesInput struct {
	WorkspaceID string `json:"workspace_id,omitempty" jsonschema:"only list files of this workspace"`
}

// ListFilesOutput is the output schema for the list_files tool.
type ListFilesOutput struct {
	Files []FileOutput `json:"files"`
	Count int          `json:"count"`
}

// FileOutput represents one attached file.
type FileOutput struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Indexed     bool      `json:"indexed"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	UploadDate  time.Time `json:"upload_date"`
}

// ChatHistoryInput is the input schema for the chat_history tool.
type ChatHistoryInput struct {
	FileID      string `json:"file_id,omitempty" jsonschema:"the file whose conversation to read"`
	WorkspaceID string `json:"workspace_id,omitempty" jsonschema:"the workspace whose conversation to read"`
	Window      int    `json:"window,omitempty" jsonschema:"number of pages of recent messages to return (default 1)"`
}

// ChatHistoryOutput is the output schema for the chat_history tool.
type ChatHistoryOutput struct {
	Messages []MessageOutput `json:"messages"`
	Count    int             `json:"count"`
	Total    int             `json:"total"`
	HasMore  bool            `json:"has_more"`
}

// MessageOutput represents one question and answer.
type MessageOutput struct {
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Sources   []domain.Citation `json:"sources,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	FileID      string `json:"file_id,omitempty" jsonschema:"ask about this file"`
	WorkspaceID string `json:"workspace_id,omitempty" jsonschema:"ask about every file in this workspace"`
	Question    string `json:"question" jsonschema:"the question to ask"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_files",
		Description: "List attached files and whether they are indexed",
	}, s.handleListFiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat_history",
		Description: "Read the most recent messages of a file or workspace conversation",
	}, s.handleChatHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question about an indexed file or workspace",
	}, s.handleAsk)
}

// handleListFiles handles the list_files tool invocation.
func (s *Server) handleListFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListFilesInput,
) (*mcp.CallToolResult, ListFilesOutput, error) {
	files, err := s.ports.Attachments.Files(ctx, input.WorkspaceID)
	if err != nil {
		return nil, ListFilesOutput{}, fmt.Errorf("listing files: %w", err)
	}

	output := ListFilesOutput{
		Files: make([]FileOutput, len(files)),
		Count: len(files),
	}
	for i := range files {
		output.Files[i] = toFileOutput(files[i])
	}
	return nil, output, nil
}

// handleChatHistory handles the chat_history tool invocation.
func (s *Server) handleChatHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatHistoryInput,
) (*mcp.CallToolResult, ChatHistoryOutput, error) {
	ref := domain.ConversationRef{FileID: input.FileID, WorkspaceID: input.WorkspaceID}
	if err := ref.Validate(); err != nil {
		return nil, ChatHistoryOutput{}, ErrConversationRef
	}

	chats, err := s.ports.Conversations.History(ctx, ref)
	if err != nil {
		return nil, ChatHistoryOutput{}, fmt.Errorf("reading history: %w", err)
	}

	window := services.NewSessionWindow(chats)
	for page := 1; page < input.Window && window.HasMore(); page++ {
		window.LoadMore()
	}

	visible := window.Visible()
	output := ChatHistoryOutput{
		Messages: make([]MessageOutput, len(visible)),
		Count:    len(visible),
		Total:    window.Len(),
		HasMore:  window.HasMore(),
	}
	for i, m := range visible {
		output.Messages[i] = toMessageOutput(m)
	}
	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, MessageOutput, error) {
	ref := domain.ConversationRef{FileID: input.FileID, WorkspaceID: input.WorkspaceID}
	if err := ref.Validate(); err != nil {
		return nil, MessageOutput{}, ErrConversationRef
	}

	msg, err := s.ports.Conversations.Ask(ctx, ref, input.Question)
	if err != nil {
		return nil, MessageOutput{}, fmt.Errorf("asking: %w", err)
	}
	return nil, toMessageOutput(*msg), nil
}

func toFileOutput(f domain.FileRecord) FileOutput {
	return FileOutput{
		ID:          f.ID,
		Name:        f.OriginalName,
		Source:      f.Source.String(),
		MimeType:    f.MimeType,
		Size:        f.Size,
		Indexed:     f.IsIndexed,
		WorkspaceID: f.WorkspaceID,
		URL:         f.OriginalURL,
		UploadDate:  f.UploadDate,
	}
}

func toMessageOutput(m domain.ChatMessage) MessageOutput {
	return MessageOutput{
		Question:  m.User,
		Answer:    m.AI,
		Sources:   m.Sources,
		Timestamp: m.Timestamp,
	}
}
