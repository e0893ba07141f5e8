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
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Conversations implements the interface.
var _ driving.ConversationService = (*Conversations)(nil)

// Conversations runs the question/answer flow over the conversation ledger.
type Conversations struct {
	files        *FileLedger
	conversation *ConversationLedger
	remote       driven.IndexingService
	userID       string
	now          func() time.Time
}

// NewConversations creates the conversation service.
func NewConversations(
	files *FileLedger,
	conversation *ConversationLedger,
	remote driven.IndexingService,
	userID string,
) *Conversations {
	return &Conversations{
		files:        files,
		conversation: conversation,
		remote:       remote,
		userID:       userID,
		now:          time.Now,
	}
}

// Ask queries the remote service and appends the exchange to the transcript.
// Nothing is recorded when the query fails.
func (c *Conversations) Ask(
	ctx context.Context,
	ref domain.ConversationRef,
	question string,
) (*domain.ChatMessage, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	req := driven.QueryRequest{Question: question, UserID: c.userID}
	if ref.IsWorkspace() {
		members, err := c.files.ListByWorkspace(ctx, ref.WorkspaceID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(members))
		for _, rec := range members {
			if rec.IsIndexed {
				ids = append(ids, rec.ID)
			}
		}
		session, err := c.conversation.GetOrCreateWorkspaceSession(ctx, ref.WorkspaceID, ids)
		if err != nil {
			return nil, err
		}
		req.WorkspaceID = ref.WorkspaceID
		req.FileIDs = session.ActiveFiles
	} else {
		if _, err := c.files.Get(ctx, ref.FileID); err != nil {
			return nil, err
		}
		if _, err := c.conversation.GetOrCreateSession(ctx, ref.FileID); err != nil {
			return nil, err
		}
		req.FileIDs = []string{ref.FileID}
	}

	logger.Debug("chat: asking %q over %d file(s)", question, len(req.FileIDs))
	answer, err := c.remote.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		User:      question,
		AI:        answer.Answer,
		Sources:   answer.Sources,
		Timestamp: c.now().UTC(),
	}
	if ref.IsWorkspace() {
		err = c.conversation.AppendWorkspaceMessage(ctx, ref.WorkspaceID, msg)
	} else {
		err = c.conversation.AppendMessage(ctx, ref.FileID, msg)
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// History returns the transcript in order. Unknown conversations are empty.
func (c *Conversations) History(ctx context.Context, ref domain.ConversationRef) ([]domain.ChatMessage, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	var (
		chats []domain.ChatMessage
		err   error
	)
	if ref.IsWorkspace() {
		var s *domain.WorkspaceChatSession
		if s, err = c.conversation.GetWorkspaceSession(ctx, ref.WorkspaceID); err == nil {
			chats = s.Chats
		}
	} else {
		var s *domain.ChatSession
		if s, err = c.conversation.GetSession(ctx, ref.FileID); err == nil {
			chats = s.Chats
		}
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return chats, nil
}

// Summary returns the stored summary, or "" when none has arrived yet.
func (c *Conversations) Summary(ctx context.Context, ref domain.ConversationRef, fileID string) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}
	if ref.IsWorkspace() {
		s, err := c.conversation.GetWorkspaceSession(ctx, ref.WorkspaceID)
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return s.FileSummaries[fileID], nil
	}
	s, err := c.conversation.GetSession(ctx, ref.FileID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.Summary, nil
}
