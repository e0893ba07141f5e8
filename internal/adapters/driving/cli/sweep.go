package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Prune expired chat messages",
	Long: `Remove chat messages older than the retention window.

The sweep runs at most once per retention interval; --force ignores the
interval. Sessions and summaries are always kept.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var sweepOrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Discard records left by interrupted uploads",
	Long: `Discard file records that were staged but never indexed.

By default only records older than --max-age are collected, so uploads in
progress elsewhere are left alone. --all collects every unindexed record.`,
	Args: cobra.NoArgs,
	RunE: runSweepOrphans,
}

var (
	sweepForce  bool
	sweepAll    bool
	sweepMaxAge time.Duration
)

func init() {
	sweepCmd.Flags().BoolVarP(&sweepForce, "force", "f", false, "ignore the retention interval")
	sweepOrphansCmd.Flags().BoolVar(&sweepAll, "all", false, "discard every unindexed record")
	sweepOrphansCmd.Flags().DurationVar(&sweepMaxAge, "max-age", 30*time.Minute, "minimum age of collected records")

	sweepCmd.AddCommand(sweepOrphansCmd)
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	if retentionService == nil {
		return errNotConfigured("retention")
	}

	report, err := retentionService.Sweep(cmd.Context(), sweepForce)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	if report.Skipped {
		cmd.Printf("Skipped: last sweep ran at %s (use --force)\n",
			report.LastRunAt.Local().Format("2006-01-02 15:04"))
		return nil
	}
	cmd.Printf("Pruned %d messages from %d sessions\n", report.MessagesPruned, report.SessionsScanned)
	return nil
}

func runSweepOrphans(cmd *cobra.Command, _ []string) error {
	if attachmentService == nil {
		return errNotConfigured("attachment")
	}

	var (
		n   int
		err error
	)
	if sweepAll {
		n, err = attachmentService.Recover(cmd.Context())
	} else {
		n, err = attachmentService.SweepOrphans(cmd.Context(), sweepMaxAge)
	}
	if err != nil {
		return fmt.Errorf("orphan sweep failed: %w", err)
	}
	cmd.Printf("Discarded %d unindexed records\n", n)
	return nil
}
