package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func newTestFileLedger(clock *fixedClock) *FileLedger {
	l := NewFileLedger(memory.NewRecordStore(), nil)
	if clock != nil {
		l.now = clock.Now
	}
	return l
}

func TestFileLedger_Stage(t *testing.T) {
	l := newTestFileLedger(nil)
	ctx := context.Background()

	staged, err := l.Stage(ctx, "W1", []domain.AttachmentIntent{
		deviceIntent("/docs/a.pdf"),
		urlIntent("https://example.com/paper.pdf"),
		webpageIntent("https://example.com/"),
	})
	require.NoError(t, err)
	require.Len(t, staged, 3)

	seen := map[string]bool{}
	for _, s := range staged {
		assert.True(t, domain.IsTempID(s.TempID))
		assert.False(t, seen[s.TempID], "temp ids must be unique")
		seen[s.TempID] = true

		rec, err := l.Get(ctx, s.TempID)
		require.NoError(t, err)
		assert.False(t, rec.IsIndexed)
		assert.Equal(t, "W1", rec.WorkspaceID)
		assert.True(t, rec.HasConsistentOrigin())
	}

	assert.Equal(t, "a.pdf", staged[0].Record.OriginalName)
	assert.Equal(t, "/docs/a.pdf", staged[0].Record.LocalURI)
	assert.Equal(t, "paper.pdf", staged[1].Record.OriginalName)
	assert.Equal(t, "application/pdf", staged[1].Record.MimeType)
	assert.Equal(t, "example.com", staged[2].Record.OriginalName)
	assert.Equal(t, "text/html", staged[2].Record.MimeType)
}

func TestFileLedger_Stage_UsesInspector(t *testing.T) {
	l := NewFileLedger(memory.NewRecordStore(), stubInspector{
		info: driven.ContentInfo{Name: "Report.docx", MimeType: "application/msword", Size: 42},
	})

	staged, err := l.Stage(context.Background(), "", []domain.AttachmentIntent{deviceIntent("/x/r.docx")})
	require.NoError(t, err)

	rec := staged[0].Record
	assert.Equal(t, "Report.docx", rec.OriginalName)
	assert.Equal(t, "application/msword", rec.MimeType)
	assert.Equal(t, int64(42), rec.Size)
	assert.Empty(t, rec.WorkspaceID)
}

func TestFileLedger_Stage_DisplayNameWins(t *testing.T) {
	l := NewFileLedger(memory.NewRecordStore(), stubInspector{info: driven.ContentInfo{Name: "inspected"}})

	staged, err := l.Stage(context.Background(), "", []domain.AttachmentIntent{{
		Source: domain.FileSourceDevice, Location: "/x/y", DisplayName: "Chosen",
	}})
	require.NoError(t, err)
	assert.Equal(t, "Chosen", staged[0].Record.OriginalName)
}

func TestFileLedger_Stage_InvalidIntentStagesNothing(t *testing.T) {
	cases := map[string]domain.AttachmentIntent{
		"device without path": {Source: domain.FileSourceDevice},
		"relative url":        urlIntent("example.com/a"),
		"ftp url":             urlIntent("ftp://example.com/a"),
		"unknown source":      {Source: "carrier-pigeon", Location: "x"},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			l := newTestFileLedger(nil)
			ctx := context.Background()

			_, err := l.Stage(ctx, "", []domain.AttachmentIntent{deviceIntent("/ok"), bad})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)

			all, err := l.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestFileLedger_Stage_InspectorFailure(t *testing.T) {
	l := NewFileLedger(memory.NewRecordStore(), stubInspector{err: errors.New("no such file")})

	_, err := l.Stage(context.Background(), "", []domain.AttachmentIntent{deviceIntent("/missing")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFileLedger_Stage_EmptyBatch(t *testing.T) {
	_, err := newTestFileLedger(nil).Stage(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFileLedger_Stage_StoreFailureCleansUp(t *testing.T) {
	store := newFaultyStore()
	store.failPutsAt = 3
	l := NewFileLedger(store, nil)
	ctx := context.Background()

	_, err := l.Stage(ctx, "W1", []domain.AttachmentIntent{
		deviceIntent("/a"), deviceIntent("/b"), deviceIntent("/c"),
	})
	require.ErrorIs(t, err, domain.ErrStaging)
	assert.ErrorIs(t, err, errDisk)

	all, err := l.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileLedger_PromoteAndMarkIndexed(t *testing.T) {
	l := newTestFileLedger(nil)
	ctx := context.Background()

	staged, err := l.Stage(ctx, "W1", []domain.AttachmentIntent{deviceIntent("/a.txt")})
	require.NoError(t, err)
	tempID := staged[0].TempID

	require.NoError(t, l.Promote(ctx, tempID, "f1"))

	_, err = l.Get(ctx, tempID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	rec, err := l.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", rec.ID)
	assert.False(t, rec.IsIndexed, "promotion does not imply indexed")
	assert.Equal(t, "a.txt", rec.OriginalName)

	require.NoError(t, l.MarkIndexed(ctx, "f1"))
	rec, err = l.Get(ctx, "f1")
	require.NoError(t, err)
	assert.True(t, rec.IsIndexed)
}

func TestFileLedger_PromoteUnknownIsIgnored(t *testing.T) {
	l := newTestFileLedger(nil)
	ctx := context.Background()

	require.NoError(t, l.Promote(ctx, "temp_never", "f1"))
	require.NoError(t, l.MarkIndexed(ctx, "f1"))

	_, err := l.Get(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileLedger_PromoteEmptyCanonical(t *testing.T) {
	l := newTestFileLedger(nil)
	err := l.Promote(context.Background(), "temp_x", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFileLedger_Discard(t *testing.T) {
	l := newTestFileLedger(nil)
	ctx := context.Background()

	staged, err := l.Stage(ctx, "", []domain.AttachmentIntent{deviceIntent("/a")})
	require.NoError(t, err)
	require.NoError(t, l.Discard(ctx, staged[0].TempID))
	require.NoError(t, l.Discard(ctx, staged[0].TempID))

	_, err = l.Get(ctx, staged[0].TempID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileLedger_DeleteByWorkspace(t *testing.T) {
	l := newTestFileLedger(nil)
	ctx := context.Background()

	_, err := l.Stage(ctx, "W1", []domain.AttachmentIntent{deviceIntent("/a"), deviceIntent("/b")})
	require.NoError(t, err)
	_, err = l.Stage(ctx, "W2", []domain.AttachmentIntent{deviceIntent("/c")})
	require.NoError(t, err)
	_, err = l.Stage(ctx, "", []domain.AttachmentIntent{deviceIntent("/d")})
	require.NoError(t, err)

	ids, err := l.DeleteByWorkspace(ctx, "W1")
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	w1, err := l.ListByWorkspace(ctx, "W1")
	require.NoError(t, err)
	assert.Empty(t, w1)

	all, err := l.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = l.DeleteByWorkspace(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFileLedger_DeleteByID(t *testing.T) {
	l := newTestFileLedger(nil)
	ctx := context.Background()

	staged, err := l.Stage(ctx, "", []domain.AttachmentIntent{deviceIntent("/a"), deviceIntent("/b")})
	require.NoError(t, err)
	require.NoError(t, l.DeleteByID(ctx, staged[0].TempID))

	all, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, staged[1].TempID, all[0].ID)
}

func TestFileLedger_Rename(t *testing.T) {
	l := newTestFileLedger(nil)
	ctx := context.Background()

	staged, err := l.Stage(ctx, "", []domain.AttachmentIntent{deviceIntent("/a")})
	require.NoError(t, err)
	id := staged[0].TempID
	require.NoError(t, l.Promote(ctx, id, "f1"))
	require.NoError(t, l.MarkIndexed(ctx, "f1"))

	require.NoError(t, l.Rename(ctx, "f1", "  Quarterly report  "))

	rec, err := l.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report", rec.OriginalName)
	assert.True(t, rec.IsIndexed)

	assert.ErrorIs(t, l.Rename(ctx, "f1", " "), domain.ErrInvalidInput)
	assert.ErrorIs(t, l.Rename(ctx, "ghost", "x"), domain.ErrNotFound)
}

func TestFileLedger_SweepUnindexed(t *testing.T) {
	l := newTestFileLedger(nil)
	ctx := context.Background()

	staged, err := l.Stage(ctx, "", []domain.AttachmentIntent{deviceIntent("/a"), deviceIntent("/b"), deviceIntent("/c")})
	require.NoError(t, err)
	require.NoError(t, l.Promote(ctx, staged[0].TempID, "f1"))
	require.NoError(t, l.MarkIndexed(ctx, "f1"))

	n, err := l.SweepUnindexed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "f1", all[0].ID)
}

func TestFileLedger_SweepUnindexedOlderThan(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := newTestFileLedger(clock)
	ctx := context.Background()

	old, err := l.Stage(ctx, "", []domain.AttachmentIntent{deviceIntent("/old")})
	require.NoError(t, err)
	clock.Advance(45 * time.Minute)
	fresh, err := l.Stage(ctx, "", []domain.AttachmentIntent{deviceIntent("/fresh")})
	require.NoError(t, err)

	n, err := l.SweepUnindexedOlderThan(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = l.Get(ctx, old[0].TempID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = l.Get(ctx, fresh[0].TempID)
	assert.NoError(t, err)
}

func TestFileLedger_SweepListFailure(t *testing.T) {
	store := newFaultyStore()
	store.listErr = errDisk
	l := NewFileLedger(store, nil)

	_, err := l.SweepUnindexed(context.Background())
	assert.ErrorIs(t, err, errDisk)
}

func TestNameFromURL(t *testing.T) {
	l := newTestFileLedger(nil)
	staged, err := l.Stage(context.Background(), "", []domain.AttachmentIntent{
		urlIntent("https://docs.example.org/specs/v2/"),
	})
	require.NoError(t, err)
	assert.True(t, strings.EqualFold("v2", staged[0].Record.OriginalName))
}
