package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/hoopfuse/internal/domain/fusion"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/internal/ingest"
	"github.com/okian/hoopfuse/pkg/logger"
)

type fuseOptions struct {
	visual  bool
	threePT bool
	floor   float64
	strict  bool
	format  string
}

func newFuseCommand() *cobra.Command {
	opts := &fuseOptions{}
	cmd := &cobra.Command{
		Use:   "fuse [file]",
		Short: "Fuse a signals file into game events",
		Long: "Read a fusion request ({\"signals\":...,\"options\":...}) or a bare signals " +
			"document from a file, or stdin when the file is - or omitted, and print the events.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuse(cmd, args, opts)
		},
	}
	defaults := model.DefaultOptions()
	cmd.Flags().BoolVar(&opts.visual, "visual", defaults.EnableVisualScoring, "enable visual scoring")
	cmd.Flags().BoolVar(&opts.threePT, "3pt", defaults.Enable3PTEstimation, "enable three-point estimation")
	cmd.Flags().Float64Var(&opts.floor, "floor", defaults.ConfidenceFloor, "minimum event confidence")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "reject malformed records instead of dropping them")
	cmd.Flags().StringVarP(&opts.format, "format", "o", formatTable, "output format: table or json")
	return cmd
}

func runFuse(cmd *cobra.Command, args []string, opts *fuseOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	req, err := decodeInput(data)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("visual") {
		req.Options.EnableVisualScoring = opts.visual
	}
	if flags.Changed("3pt") {
		req.Options.Enable3PTEstimation = opts.threePT
	}
	if flags.Changed("floor") {
		req.Options.ConfidenceFloor = opts.floor
	}

	ctx := cmd.Context()
	log := logger.Get().Named("cli")
	report, err := ingest.Sanitize(ctx, req.Signals, ingest.WithStrict(opts.strict), ingest.WithLogger(log))
	if err != nil {
		return err
	}
	if n := report.Total(); n > 0 {
		log.Info(ctx, "dropped malformed records", logger.Int("count", n))
	}

	r, err := fusion.New(fusion.WithLogger(log.Named("fusion"))).Run(ctx, req.Signals, req.Options)
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), r, opts.format)
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read signals: %w", err)
	}
	return data, nil
}

// decodeInput accepts either a full request or a bare signals document.
func decodeInput(data []byte) (*ingest.Request, error) {
	var envelope struct {
		Signals json.RawMessage `json:"signals"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ingest.ErrInputData, err)
	}
	if len(envelope.Signals) > 0 {
		return ingest.Decode(bytes.NewReader(data))
	}
	var s model.Signals
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ingest.ErrInputData, err)
	}
	return &ingest.Request{Signals: &s, Options: model.DefaultOptions()}, nil
}
