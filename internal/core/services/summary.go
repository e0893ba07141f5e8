package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// SummaryRouter applies "summary ready" notifications to the conversation ledger.
//
// A notification names only a file. It is applied to:
//   - the workspace of the file's record, and every workspace session that
//     lists the file as active;
//   - the file's own session, when the record has no workspace or a
//     single-file session already exists.
//
// When neither matches (the event outran the upload), the summary is stored
// as a single-file summary so it is not lost.
type SummaryRouter struct {
	files        *FileLedger
	conversation *ConversationLedger
}

// NewSummaryRouter creates a router.
func NewSummaryRouter(files *FileLedger, conversation *ConversationLedger) *SummaryRouter {
	return &SummaryRouter{files: files, conversation: conversation}
}

// Handle routes one notification and reports where it was applied.
func (r *SummaryRouter) Handle(ctx context.Context, n domain.SummaryNotification) (*domain.SummaryRoute, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	var recordWorkspace string
	singleFile := false
	rec, err := r.files.Get(ctx, n.FileID)
	switch {
	case err == nil:
		recordWorkspace = rec.WorkspaceID
		singleFile = rec.WorkspaceID == ""
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	if !singleFile {
		_, err := r.conversation.GetSession(ctx, n.FileID)
		switch {
		case err == nil:
			singleFile = true
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	workspaces, err := r.workspacesFor(ctx, n.FileID, recordWorkspace)
	if err != nil {
		return nil, err
	}

	route := &domain.SummaryRoute{Workspaces: workspaces}
	if len(workspaces) == 0 {
		singleFile = true
	}
	if singleFile {
		if err := r.conversation.SetSummary(ctx, n.FileID, n.Summary); err != nil {
			return nil, fmt.Errorf("set summary %s: %w", n.FileID, err)
		}
		route.SingleFile = true
	}
	for _, ws := range workspaces {
		if err := r.conversation.SetWorkspaceFileSummary(ctx, ws, n.FileID, n.Summary); err != nil {
			return nil, fmt.Errorf("set workspace %s summary %s: %w", ws, n.FileID, err)
		}
	}

	logger.WithFields(logger.Fields{
		"file":       n.FileID,
		"singleFile": route.SingleFile,
		"workspaces": len(route.Workspaces),
	}).Debug("summary routed")
	return route, nil
}

// Listen consumes src until ctx is cancelled.
func (r *SummaryRouter) Listen(ctx context.Context, src driven.NotificationSource) error {
	return src.Listen(ctx, func(ctx context.Context, n domain.SummaryNotification) error {
		_, err := r.Handle(ctx, n)
		if err != nil {
			logger.Warn("summary for %s not applied: %v", n.FileID, err)
		}
		return err
	})
}

// SummaryListener binds a router to one notification source.
type SummaryListener struct {
	router *SummaryRouter
	source driven.NotificationSource
}

var _ driving.SummaryListener = (*SummaryListener)(nil)

// NewSummaryListener creates a listener applying events from source.
func NewSummaryListener(router *SummaryRouter, source driven.NotificationSource) *SummaryListener {
	return &SummaryListener{router: router, source: source}
}

// Run listens until ctx is cancelled, then closes the source.
func (l *SummaryListener) Run(ctx context.Context) error {
	defer func() {
		if err := l.source.Close(); err != nil {
			logger.Warn("closing notification source: %v", err)
		}
	}()
	return l.router.Listen(ctx, l.source)
}

func (r *SummaryRouter) workspacesFor(ctx context.Context, fileID, recordWorkspace string) ([]string, error) {
	ids := []string{recordWorkspace}
	sessions, err := r.conversation.ListWorkspaceSessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if s.HasFile(fileID) {
			ids = append(ids, s.WorkspaceID)
		}
	}
	return domain.UniqueIDs(ids), nil
}
