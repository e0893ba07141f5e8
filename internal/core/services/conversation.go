package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// ConversationLedger stores per-file and per-workspace transcripts and summaries.
//
// Every read-modify-write of a session document holds a per-key lock, so the
// CLI, the notification listener and the scheduler may share one ledger.
// Writers in other processes are not serialised.
type ConversationLedger struct {
	sessions   *Table[domain.ChatSession]
	workspaces *Table[domain.WorkspaceChatSession]

	fileLocks      keyedMutex
	workspaceLocks keyedMutex

	now   func() time.Time
	newID func() string
}

// NewConversationLedger creates a ledger over the session tables of store.
func NewConversationLedger(store driven.RecordStore) *ConversationLedger {
	return &ConversationLedger{
		sessions:   NewTable[domain.ChatSession](store, TableChatSessions),
		workspaces: NewTable[domain.WorkspaceChatSession](store, TableWorkspaceSessions),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// --- single-file sessions ---

// GetOrCreateSession returns the session of fileID, creating an empty one.
func (l *ConversationLedger) GetOrCreateSession(ctx context.Context, fileID string) (*domain.ChatSession, error) {
	if fileID == "" {
		return nil, domain.ErrInvalidInput
	}
	unlock := l.fileLocks.Lock(fileID)
	defer unlock()

	s, err := l.sessions.Get(ctx, fileID)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	s = l.newSession(fileID)
	if err := l.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession returns the session of fileID or domain.ErrNotFound.
func (l *ConversationLedger) GetSession(ctx context.Context, fileID string) (*domain.ChatSession, error) {
	s, err := l.sessions.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AppendMessage appends msg to an existing session. A missing session is
// logged and the message dropped.
func (l *ConversationLedger) AppendMessage(ctx context.Context, fileID string, msg domain.ChatMessage) error {
	unlock := l.fileLocks.Lock(fileID)
	defer unlock()

	s, err := l.sessions.Get(ctx, fileID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("conversation: append to missing session %s dropped: %v", fileID, domain.ErrSessionMissing)
		return nil
	}
	if err != nil {
		return err
	}
	s.Chats = append(s.Chats, l.stamp(msg))
	s.UpdatedAt = l.now().UTC()
	return l.sessions.Put(ctx, s)
}

// SetSummary replaces the summary of fileID, creating the session if needed.
func (l *ConversationLedger) SetSummary(ctx context.Context, fileID, summary string) error {
	if fileID == "" {
		return domain.ErrInvalidInput
	}
	unlock := l.fileLocks.Lock(fileID)
	defer unlock()

	s, err := l.sessions.Get(ctx, fileID)
	if errors.Is(err, domain.ErrNotFound) {
		s = l.newSession(fileID)
	} else if err != nil {
		return err
	}
	s.Summary = summary
	s.UpdatedAt = l.now().UTC()
	return l.sessions.Put(ctx, s)
}

// ListSessions returns every single-file session.
func (l *ConversationLedger) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	return l.sessions.ListAll(ctx)
}

// DeleteSession removes the session of fileID.
func (l *ConversationLedger) DeleteSession(ctx context.Context, fileID string) error {
	unlock := l.fileLocks.Lock(fileID)
	defer unlock()
	return l.sessions.Delete(ctx, fileID)
}

// --- workspace sessions ---

// GetOrCreateWorkspaceSession returns the session of workspaceID. Its active
// files are always overwritten with currentFileIDs.
func (l *ConversationLedger) GetOrCreateWorkspaceSession(
	ctx context.Context,
	workspaceID string,
	currentFileIDs []string,
) (*domain.WorkspaceChatSession, error) {
	if workspaceID == "" {
		return nil, domain.ErrInvalidInput
	}
	unlock := l.workspaceLocks.Lock(workspaceID)
	defer unlock()

	s, err := l.workspaces.Get(ctx, workspaceID)
	if errors.Is(err, domain.ErrNotFound) {
		s = l.newWorkspaceSession(workspaceID)
	} else if err != nil {
		return nil, err
	}
	s.ActiveFiles = domain.UniqueIDs(currentFileIDs)
	if err := l.workspaces.Put(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetWorkspaceSession returns the session of workspaceID or domain.ErrNotFound.
func (l *ConversationLedger) GetWorkspaceSession(
	ctx context.Context,
	workspaceID string,
) (*domain.WorkspaceChatSession, error) {
	s, err := l.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SyncWorkspaceFiles sets the membership of workspaceID to currentFileIDs and
// drops summaries of files that left. A missing session is left alone.
func (l *ConversationLedger) SyncWorkspaceFiles(ctx context.Context, workspaceID string, currentFileIDs []string) error {
	unlock := l.workspaceLocks.Lock(workspaceID)
	defer unlock()

	s, err := l.workspaces.Get(ctx, workspaceID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("conversation: no session for workspace %s, nothing to sync", workspaceID)
		return nil
	}
	if err != nil {
		return err
	}

	members := domain.UniqueIDs(currentFileIDs)
	keep := make(map[string]struct{}, len(members))
	for _, id := range members {
		keep[id] = struct{}{}
	}
	for id := range s.FileSummaries {
		if _, ok := keep[id]; !ok {
			delete(s.FileSummaries, id)
		}
	}
	s.ActiveFiles = members
	s.UpdatedAt = l.now().UTC()
	return l.workspaces.Put(ctx, s)
}

// SetWorkspaceFileSummary stores the summary of one member file. The file
// joins the active set if it was not there yet; nobody is removed.
func (l *ConversationLedger) SetWorkspaceFileSummary(ctx context.Context, workspaceID, fileID, summary string) error {
	if workspaceID == "" || fileID == "" {
		return domain.ErrInvalidInput
	}
	unlock := l.workspaceLocks.Lock(workspaceID)
	defer unlock()

	s, err := l.workspaces.Get(ctx, workspaceID)
	if errors.Is(err, domain.ErrNotFound) {
		s = l.newWorkspaceSession(workspaceID)
	} else if err != nil {
		return err
	}
	if s.FileSummaries == nil {
		s.FileSummaries = map[string]string{}
	}
	s.FileSummaries[fileID] = summary
	if !s.HasFile(fileID) {
		s.ActiveFiles = append(s.ActiveFiles, fileID)
	}
	s.UpdatedAt = l.now().UTC()
	return l.workspaces.Put(ctx, s)
}

// AppendWorkspaceMessage appends msg to an existing workspace session.
// A missing session is logged and the message dropped.
func (l *ConversationLedger) AppendWorkspaceMessage(
	ctx context.Context,
	workspaceID string,
	msg domain.ChatMessage,
) error {
	unlock := l.workspaceLocks.Lock(workspaceID)
	defer unlock()

	s, err := l.workspaces.Get(ctx, workspaceID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("conversation: append to missing workspace session %s dropped: %v",
			workspaceID, domain.ErrSessionMissing)
		return nil
	}
	if err != nil {
		return err
	}
	s.Chats = append(s.Chats, l.stamp(msg))
	s.UpdatedAt = l.now().UTC()
	return l.workspaces.Put(ctx, s)
}

// ListWorkspaceSessions returns every workspace session.
func (l *ConversationLedger) ListWorkspaceSessions(ctx context.Context) ([]domain.WorkspaceChatSession, error) {
	return l.workspaces.ListAll(ctx)
}

// DeleteWorkspaceSession removes the session of workspaceID.
func (l *ConversationLedger) DeleteWorkspaceSession(ctx context.Context, workspaceID string) error {
	unlock := l.workspaceLocks.Lock(workspaceID)
	defer unlock()
	return l.workspaces.Delete(ctx, workspaceID)
}

// --- retention ---

// PruneMessages drops messages that expired before cutoff from every session.
// Sessions, summaries and membership are kept even when no message remains.
func (l *ConversationLedger) PruneMessages(ctx context.Context, cutoff time.Time) (scanned, pruned int, err error) {
	files, err := l.sessions.ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, listed := range files {
		n, err := l.pruneSession(ctx, listed.FileID, cutoff)
		if err != nil {
			return scanned, pruned, err
		}
		scanned++
		pruned += n
	}

	workspaces, err := l.workspaces.ListAll(ctx)
	if err != nil {
		return scanned, pruned, err
	}
	for _, listed := range workspaces {
		n, err := l.pruneWorkspaceSession(ctx, listed.WorkspaceID, cutoff)
		if err != nil {
			return scanned, pruned, err
		}
		scanned++
		pruned += n
	}
	return scanned, pruned, nil
}

func (l *ConversationLedger) pruneSession(ctx context.Context, fileID string, cutoff time.Time) (int, error) {
	unlock := l.fileLocks.Lock(fileID)
	defer unlock()

	s, err := l.sessions.Get(ctx, fileID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	kept, n := retainSince(s.Chats, cutoff)
	if n == 0 {
		return 0, nil
	}
	s.Chats = kept
	return n, l.sessions.Put(ctx, s)
}

func (l *ConversationLedger) pruneWorkspaceSession(ctx context.Context, workspaceID string, cutoff time.Time) (int, error) {
	unlock := l.workspaceLocks.Lock(workspaceID)
	defer unlock()

	s, err := l.workspaces.Get(ctx, workspaceID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	kept, n := retainSince(s.Chats, cutoff)
	if n == 0 {
		return 0, nil
	}
	s.Chats = kept
	return n, l.workspaces.Put(ctx, s)
}

// retainSince keeps the messages not expired at cutoff, in order.
func retainSince(chats []domain.ChatMessage, cutoff time.Time) ([]domain.ChatMessage, int) {
	kept := make([]domain.ChatMessage, 0, len(chats))
	for _, m := range chats {
		if !m.ExpiredBefore(cutoff) {
			kept = append(kept, m)
		}
	}
	return kept, len(chats) - len(kept)
}

// --- helpers ---

func (l *ConversationLedger) newSession(fileID string) domain.ChatSession {
	now := l.now().UTC()
	return domain.ChatSession{
		ID:        l.newID(),
		FileID:    fileID,
		Chats:     []domain.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (l *ConversationLedger) newWorkspaceSession(workspaceID string) domain.WorkspaceChatSession {
	now := l.now().UTC()
	return domain.WorkspaceChatSession{
		ID:            l.newID(),
		WorkspaceID:   workspaceID,
		FileSummaries: map[string]string{},
		Chats:         []domain.ChatMessage{},
		ActiveFiles:   []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// stamp fills a missing id and timestamp on a new message.
func (l *ConversationLedger) stamp(msg domain.ChatMessage) domain.ChatMessage {
	if msg.ID == "" {
		msg.ID = l.newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = l.now().UTC()
	}
	return msg
}
