package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docchat/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run background sweeps and receive summaries",
	Long: `Run the scheduler (retention and orphan sweeps) and the summary
notification listener until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if schedulerService == nil && summaryListener == nil {
		return errNotConfigured("scheduler and summary listener")
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	if schedulerService != nil {
		g.Go(func() error {
			if err := schedulerService.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return schedulerService.Stop()
		})
	} else {
		logger.Info("scheduler disabled")
	}

	if summaryListener != nil {
		g.Go(func() error {
			if err := summaryListener.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	cmd.Println("docchat serving (Ctrl+C to stop)")
	return g.Wait()
}
