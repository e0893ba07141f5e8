package domain

import (
	"slices"
	"time"
)

// Citation describes one source the answer was drawn from.
type Citation struct {
	FileID  string  `json:"fileId,omitempty"`
	Title   string  `json:"title,omitempty"`
	Page    int     `json:"page,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// ChatMessage is one question/answer exchange. Immutable once appended.
type ChatMessage struct {
	ID        string     `json:"id"`
	User      string     `json:"user"`
	AI        string     `json:"ai"`
	Sources   []Citation `json:"sources,omitempty"`
	Timestamp time.Time  `json:"timestamp,omitzero"`
}

// ExpiredBefore reports whether the message falls outside the retention window.
// A message without a timestamp is treated as infinitely old.
func (m ChatMessage) ExpiredBefore(cutoff time.Time) bool {
	if m.Timestamp.IsZero() {
		return true
	}
	return m.Timestamp.Before(cutoff)
}

// ChatSession is the conversation attached to a single file.
type ChatSession struct {
	ID        string        `json:"id"`
	FileID    string        `json:"fileId"`
	Summary   string        `json:"summary"`
	Chats     []ChatMessage `json:"chats"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// RecordID returns the key the session is stored under.
func (s ChatSession) RecordID() string {
	return s.FileID
}

// WithID returns a copy keyed by fileID.
func (s ChatSession) WithID(fileID string) ChatSession {
	s.FileID = fileID
	return s
}

// WorkspaceChatSession is the shared conversation of a workspace.
type WorkspaceChatSession struct {
	ID            string            `json:"id"`
	WorkspaceID   string            `json:"workspaceId"`
	FileSummaries map[string]string `json:"fileSummaries"`
	Chats         []ChatMessage     `json:"chats"`
	ActiveFiles   []string          `json:"activeFiles"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// RecordID returns the key the session is stored under.
func (s WorkspaceChatSession) RecordID() string {
	return s.WorkspaceID
}

// WithID returns a copy keyed by workspaceID.
func (s WorkspaceChatSession) WithID(workspaceID string) WorkspaceChatSession {
	s.WorkspaceID = workspaceID
	return s
}

// HasFile reports whether fileID is an active member.
func (s WorkspaceChatSession) HasFile(fileID string) bool {
	return slices.Contains(s.ActiveFiles, fileID)
}

// UniqueIDs returns ids with duplicates and empty entries removed,
// keeping first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ConversationRef selects either a single-file or a workspace conversation.
type ConversationRef struct {
	FileID      string
	WorkspaceID string
}

// IsWorkspace returns true for a workspace conversation.
func (r ConversationRef) IsWorkspace() bool {
	return r.WorkspaceID != ""
}

// Validate requires exactly one of FileID and WorkspaceID.
func (r ConversationRef) Validate() error {
	if (r.FileID == "") == (r.WorkspaceID == "") {
		return ErrInvalidInput
	}
	return nil
}
