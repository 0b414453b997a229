// Command lakemerge runs the reconciliation engine: a long-running server
// with scheduler and control API, or one-shot job execution.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootFlags struct {
	envFile string
	jobsDir string
}

func main() {
	root := &cobra.Command{
		Use:           "lakemerge",
		Short:         "Schema-driven tabular reconciliation and incremental-merge engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addRootFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func addRootFlags(flags *pflag.FlagSet) {
	flags.StringVar(&rootFlags.envFile, "env-file", ".env", "path to an optional .env file")
	flags.StringVar(&rootFlags.jobsDir, "jobs-dir", "", "override the configured jobs directory")
}
