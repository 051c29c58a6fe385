package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rpe-analytics/quarterlies-cli/internal/jobs"
	"github.com/rpe-analytics/quarterlies-cli/internal/model"
)

var runTracked bool

var runCmd = &cobra.Command{
	Use:   "run <company>",
	Short: "Run the full pipeline: download, extract, merge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		company := args[0]

		p, closeCollab, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer closeCollab() //nolint:errcheck

		if !runTracked {
			result, err := p.Run(ctx, company)
			if err != nil {
				return err
			}
			return printJSON(result)
		}

		// Tracked runs still block until the job settles, but the run is
		// observable in the job store while it is in flight.
		js, err := initJobStore(ctx)
		if err != nil {
			return err
		}
		defer js.Close() //nolint:errcheck

		mgr := jobs.NewManager(js)
		job, err := mgr.Submit(ctx, "run", company, func(jctx context.Context) (*model.RunResult, error) {
			return p.Run(jctx, company)
		})
		if err != nil {
			return err
		}
		mgr.Wait()

		final, err := mgr.Get(ctx, job.ID)
		if err != nil {
			return err
		}
		return printJSON(final)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runTracked, "tracked", false, "record the run in the job store")
	rootCmd.AddCommand(runCmd)
}
