package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lakemerge/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate all job specs, printing a summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(rootFlags.envFile); err != nil {
				return err
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if rootFlags.jobsDir != "" {
				cfg.JobsDir = rootFlags.jobsDir
			}

			jobs, err := config.LoadJobs(cfg.JobsDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, j := range jobs {
				sources := make([]string, len(j.Sources))
				for i, s := range j.Sources {
					sources[i] = s.String()
				}
				fmt.Fprintf(out, "%s: %s -> %s (%s)\n",
					j.Name, strings.Join(sources, ", "), j.Target.String(), j.Strategy)
				for _, f := range j.TargetSchema {
					line := fmt.Sprintf("  %-24s %s", f.Name, f.Type)
					if !f.Nullable {
						line += " NOT NULL"
					}
					if f.HasDefault {
						line += fmt.Sprintf(" DEFAULT %v", f.Default)
					}
					fmt.Fprintln(out, line)
				}
			}
			fmt.Fprintf(out, "%d job(s) OK\n", len(jobs))
			return nil
		},
	}
}
