package main

import (
	"github.com/spf13/cobra"

	"lakemerge/internal/domain"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <job>",
		Short: "Execute one job immediately and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, logger, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			job, err := findJob(a.Jobs, args[0])
			if err != nil {
				return err
			}
			run, err := a.Runner.Run(cmd.Context(), job, domain.TriggerTypeManual)
			if err != nil {
				return err
			}
			logger.Info("run complete",
				"run_id", run.ID,
				"rows_read", run.Stats.RowsRead,
				"rows_written", run.Stats.RowsWritten,
				"inserted", run.Stats.Inserted,
				"updated", run.Stats.Updated,
				"unchanged", run.Stats.Unchanged,
			)
			return nil
		},
	}
}
