package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/hoopfuse/internal/config"
	"github.com/okian/hoopfuse/internal/server"
	"github.com/okian/hoopfuse/pkg/logger"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Load configuration from defaults, the optional config file and HOOPFUSE_* variables, then serve until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if err := logger.InitWithWriter(cmd.OutOrStdout(), cfg.LogFormat); err != nil {
				return err
			}
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel))
				_ = logger.SetLevelString("info")
			}
			return server.Run(ctx, cfg, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the configured one")
	return cmd
}
