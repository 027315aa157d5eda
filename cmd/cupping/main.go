// Command cupping runs a coffee-quality study from the command line: it
// loads the dataset named by the study file (or the built-in default),
// executes the cleaning/splitting/modeling pipeline and prints the
// evaluation metrics.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/beanlab/cupping/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "cupping",
		Short:         "Coffee-quality dataset analysis pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Setup(logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newRunCmd())
	return cmd
}
