package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/okian/hoopfuse/internal/domain/fusion"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/internal/ingest"
	"github.com/okian/hoopfuse/internal/synth"
	"github.com/okian/hoopfuse/pkg/logger"
)

type demoOptions struct {
	seed    uint64
	plays   int
	format  string
	signals bool
}

func newDemoCommand() *cobra.Command {
	opts := &demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Fuse a generated game",
		Long:  "Generate a synthetic game from a seed, fuse it with default options and print the events.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, opts)
		},
	}
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&opts.plays, "plays", 6, "number of plays")
	cmd.Flags().StringVarP(&opts.format, "format", "o", formatTable, "output format: table or json")
	cmd.Flags().BoolVar(&opts.signals, "signals", false, "print the generated signals request instead of fusing it")
	return cmd
}

func runDemo(cmd *cobra.Command, opts *demoOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	s := synth.Game(opts.seed, opts.plays).Build()
	if opts.signals {
		enc := json.NewEncoder(cmd.OutOrStdout())
		return enc.Encode(ingest.Request{Signals: s, Options: model.DefaultOptions()})
	}

	ctx := cmd.Context()
	log := logger.Get().Named("cli")
	if _, err := ingest.Sanitize(ctx, s, ingest.WithLogger(log)); err != nil {
		return err
	}
	r, err := fusion.New(fusion.WithLogger(log.Named("fusion"))).Run(ctx, s, model.DefaultOptions())
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), r, opts.format)
}
