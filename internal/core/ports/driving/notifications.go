package driving

import "context"

// SummaryListener applies "summary ready" events as they arrive.
type SummaryListener interface {
	// Run blocks, applying events until ctx is cancelled.
	Run(ctx context.Context) error
}
