package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

type chatFixture struct {
	files        *FileLedger
	conversation *ConversationLedger
	remote       *fakeIndexer
	svc          *Conversations
}

func newChatFixture(t *testing.T, workspaceID string, ids ...string) *chatFixture {
	t.Helper()
	store := memory.NewRecordStore()
	files := NewFileLedger(store, nil)
	conversation := NewConversationLedger(store)
	remote := &fakeIndexer{
		uploadFn: echoUpload(ids...),
		answer: &driven.QueryAnswer{
			Answer:  "forty-two",
			Sources: []domain.Citation{{FileID: "A", Page: 3}},
		},
	}
	if len(ids) > 0 {
		intents := make([]domain.AttachmentIntent, len(ids))
		for i := range ids {
			intents[i] = deviceIntent("/doc" + ids[i])
		}
		_, err := NewReconciler(files, remote, "", time.Second).Submit(context.Background(), workspaceID, intents)
		require.NoError(t, err)
	}
	svc := NewConversations(files, conversation, remote, "user-1")
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC) }
	return &chatFixture{files: files, conversation: conversation, remote: remote, svc: svc}
}

func TestConversations_AskSingleFile(t *testing.T) {
	f := newChatFixture(t, "", "A")
	ctx := context.Background()
	ref := domain.ConversationRef{FileID: "A"}

	msg, err := f.svc.Ask(ctx, ref, "  what is it?  ")
	require.NoError(t, err)
	assert.Equal(t, "what is it?", msg.User)
	assert.Equal(t, "forty-two", msg.AI)
	assert.NotEmpty(t, msg.ID)

	require.Len(t, f.remote.queries, 1)
	assert.Equal(t, []string{"A"}, f.remote.queries[0].FileIDs)
	assert.Equal(t, "user-1", f.remote.queries[0].UserID)
	assert.Empty(t, f.remote.queries[0].WorkspaceID)

	history, err := f.svc.History(ctx, ref)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
	assert.Equal(t, 3, history[0].Sources[0].Page)
}

func TestConversations_AskWorkspace(t *testing.T) {
	f := newChatFixture(t, "W1", "A", "B")
	ctx := context.Background()
	ref := domain.ConversationRef{WorkspaceID: "W1"}

	_, err := f.svc.Ask(ctx, ref, "compare them")
	require.NoError(t, err)

	require.Len(t, f.remote.queries, 1)
	assert.Equal(t, "W1", f.remote.queries[0].WorkspaceID)
	assert.Equal(t, []string{"A", "B"}, f.remote.queries[0].FileIDs)

	ws, err := f.conversation.GetWorkspaceSession(ctx, "W1")
	require.NoError(t, err)
	assert.Len(t, ws.Chats, 1)
}

func TestConversations_AskFailureRecordsNothing(t *testing.T) {
	f := newChatFixture(t, "", "A")
	f.remote.askErr = domain.ErrRemoteUnavailable
	ctx := context.Background()
	ref := domain.ConversationRef{FileID: "A"}

	_, err := f.svc.Ask(ctx, ref, "q")
	require.ErrorIs(t, err, domain.ErrRemoteUnavailable)

	history, err := f.svc.History(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestConversations_AskValidation(t *testing.T) {
	f := newChatFixture(t, "", "A")
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, domain.ConversationRef{}, "q")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.Ask(ctx, domain.ConversationRef{FileID: "A", WorkspaceID: "W"}, "q")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.Ask(ctx, domain.ConversationRef{FileID: "A"}, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.Ask(ctx, domain.ConversationRef{FileID: "ghost"}, "q")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.remote.queries)
}

func TestConversations_HistoryUnknownIsEmpty(t *testing.T) {
	f := newChatFixture(t, "")
	history, err := f.svc.History(context.Background(), domain.ConversationRef{WorkspaceID: "nope"})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestConversations_Summary(t *testing.T) {
	f := newChatFixture(t, "")
	ctx := context.Background()

	got, err := f.svc.Summary(ctx, domain.ConversationRef{FileID: "A"}, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, f.conversation.SetSummary(ctx, "A", "single"))
	require.NoError(t, f.conversation.SetWorkspaceFileSummary(ctx, "W1", "B", "member"))

	got, err = f.svc.Summary(ctx, domain.ConversationRef{FileID: "A"}, "")
	require.NoError(t, err)
	assert.Equal(t, "single", got)

	got, err = f.svc.Summary(ctx, domain.ConversationRef{WorkspaceID: "W1"}, "B")
	require.NoError(t, err)
	assert.Equal(t, "member", got)
}
