package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure RetentionSweeper implements the interface.
var _ driving.RetentionService = (*RetentionSweeper)(nil)

// KeyRetentionLastRun is the meta key holding the last effective sweep time.
const KeyRetentionLastRun = "retention.last_run_at"

// RetentionSweeper prunes expired chat messages at most once per policy interval.
type RetentionSweeper struct {
	ledger *ConversationLedger
	meta   *Table[metaEntry]
	policy domain.RetentionPolicy
	now    func() time.Time
}

// NewRetentionSweeper creates a sweeper. The sentinel lives in the meta table
// of store.
func NewRetentionSweeper(
	ledger *ConversationLedger,
	store driven.RecordStore,
	policy domain.RetentionPolicy,
) *RetentionSweeper {
	return &RetentionSweeper{
		ledger: ledger,
		meta:   NewTable[metaEntry](store, TableMeta),
		policy: policy,
		now:    time.Now,
	}
}

// Run prunes unless the previous sweep is more recent than the policy interval.
func (s *RetentionSweeper) Run(ctx context.Context) (*domain.SweepReport, error) {
	return s.Sweep(ctx, false)
}

// Sweep prunes expired messages. The sentinel is advanced only after every
// session was pruned, so a failed sweep is retried on the next call.
func (s *RetentionSweeper) Sweep(ctx context.Context, force bool) (*domain.SweepReport, error) {
	now := s.now().UTC()

	last, err := s.LastRun(ctx)
	if err != nil {
		logger.Error("retention: read last run: %v", err)
		return nil, err
	}
	if !force && !s.policy.Due(last, now) {
		logger.Debug("retention: last sweep at %s, skipping", last.Format(time.RFC3339))
		return &domain.SweepReport{Skipped: true, LastRunAt: last}, nil
	}

	scanned, pruned, err := s.ledger.PruneMessages(ctx, s.policy.Cutoff(now))
	if err != nil {
		logger.Error("retention: sweep failed after %d session(s): %v", scanned, err)
		return nil, fmt.Errorf("retention sweep: %w", err)
	}

	if err := s.meta.Put(ctx, metaEntry{Key: KeyRetentionLastRun, Value: now.Format(time.RFC3339Nano)}); err != nil {
		logger.Error("retention: record last run: %v", err)
		return nil, fmt.Errorf("retention sweep: %w", err)
	}

	logger.WithFields(logger.Fields{"sessions": scanned, "pruned": pruned}).Info("retention sweep complete")
	return &domain.SweepReport{
		LastRunAt:       now,
		SessionsScanned: scanned,
		MessagesPruned:  pruned,
	}, nil
}

// LastRun returns the time of the last effective sweep, zero if none.
func (s *RetentionSweeper) LastRun(ctx context.Context) (time.Time, error) {
	entry, err := s.meta.Get(ctx, KeyRetentionLastRun)
	if errors.Is(err, domain.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, entry.Value)
	if err != nil {
		logger.Warn("retention: unreadable sentinel %q, treating as never run", entry.Value)
		return time.Time{}, nil
	}
	return t, nil
}
