package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/okian/hoopfuse/internal/loadtest"
)

func newBenchCommand() *cobra.Command {
	cfg := &loadtest.Config{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load test a running server",
		Long:  "Submit generated games to a running server, wait for the results and compare them with a local fusion run.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := loadtest.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := printStats(cmd, stats); err != nil {
				return err
			}
			if stats.Mismatched > 0 || stats.Unfinished > 0 {
				return fmt.Errorf("%d mismatched and %d unfinished jobs", stats.Mismatched, stats.Unfinished)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the server")
	cmd.Flags().IntVar(&cfg.Games, "games", 20, "number of games")
	cmd.Flags().IntVar(&cfg.Plays, "plays", 6, "plays per game")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", uint64(time.Now().Unix()), "seed of the first game")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 4, "concurrent submitters")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	cmd.Flags().DurationVar(&cfg.Wait, "wait", 2*time.Minute, "how long to wait for results")
	cmd.Flags().IntVar(&cfg.Retries, "retries", 10, "resubmissions after a 429")
	return cmd
}

func printStats(cmd *cobra.Command, s *loadtest.Stats) error {
	table := tablewriter.NewTable(cmd.OutOrStdout())
	table.Header("GAMES", "ACCEPTED", "DUPLICATE", "REJECTED", "FAILED", "COMPLETED", "MISMATCHED", "UNFINISHED", "GAMES/S")
	if err := table.Append(
		strconv.Itoa(s.Games),
		strconv.Itoa(s.Accepted),
		strconv.Itoa(s.Duplicate),
		strconv.Itoa(s.Rejected),
		strconv.Itoa(s.Failed),
		strconv.Itoa(s.Completed),
		strconv.Itoa(s.Mismatched),
		strconv.Itoa(s.Unfinished),
		fmt.Sprintf("%.1f", s.GamesPerSecond()),
	); err != nil {
		return err
	}
	return table.Render()
}
