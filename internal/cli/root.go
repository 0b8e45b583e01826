// Package cli implements the hoopfuse command line: offline fusion of signal
// files, synthetic demos, the HTTP server and a load generator.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/hoopfuse/pkg/logger"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

// NewRootCommand builds the hoopfuse command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "hoopfuse",
		Short:         "Basketball event fusion",
		Long:          "Fuse per-frame detector signals from a basketball clip into a timeline of game events.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWithWriter(cmd.ErrOrStderr(), opts.logFormat); err != nil {
				return err
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newFuseCommand())
	root.AddCommand(newDemoCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newBenchCommand())
	return root
}
