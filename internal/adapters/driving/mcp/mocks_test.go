package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// mockAttachmentService is a mock implementation of driving.AttachmentService.
type mockAttachmentService struct {
	files         []domain.FileRecord
	file          *domain.FileRecord
	err           error
	lastWorkspace string
}

func (m *mockAttachmentService) Upload(
	_ context.Context,
	_ string,
	_ []domain.AttachmentIntent,
) (*domain.UploadBatch, error) {
	return nil, m.err
}

func (m *mockAttachmentService) Files(_ context.Context, workspaceID string) ([]domain.FileRecord, error) {
	m.lastWorkspace = workspaceID
	return m.files, m.err
}

func (m *mockAttachmentService) File(_ context.Context, _ string) (*domain.FileRecord, error) {
	if m.file == nil && m.err == nil {
		return nil, domain.ErrNotFound
	}
	return m.file, m.err
}

func (m *mockAttachmentService) DeleteFile(_ context.Context, _ string) error {
	return m.err
}

func (m *mockAttachmentService) DeleteWorkspace(_ context.Context, _ string) error {
	return m.err
}

func (m *mockAttachmentService) Rename(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockAttachmentService) Recover(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockAttachmentService) SweepOrphans(_ context.Context, _ time.Duration) (int, error) {
	return 0, m.err
}

// mockConversationService is a mock implementation of driving.ConversationService.
type mockConversationService struct {
	history []domain.ChatMessage
	answer  *domain.ChatMessage
	summary string
	err     error

	lastRef      domain.ConversationRef
	lastQuestion string
}

func (m *mockConversationService) Ask(
	_ context.Context,
	ref domain.ConversationRef,
	question string,
) (*domain.ChatMessage, error) {
	m.lastRef = ref
	m.lastQuestion = question
	return m.answer, m.err
}

func (m *mockConversationService) History(
	_ context.Context,
	ref domain.ConversationRef,
) ([]domain.ChatMessage, error) {
	m.lastRef = ref
	return m.history, m.err
}

func (m *mockConversationService) Summary(
	_ context.Context,
	ref domain.ConversationRef,
	_ string,
) (string, error) {
	m.lastRef = ref
	return m.summary, m.err
}

func newTestServer(attachments *mockAttachmentService, conversations *mockConversationService) *Server {
	if attachments == nil {
		attachments = &mockAttachmentService{}
	}
	if conversations == nil {
		conversations = &mockConversationService{}
	}
	s, err := NewServer(&Ports{Attachments: attachments, Conversations: conversations})
	if err != nil {
		panic(err)
	}
	return s
}
