package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/okian/hoopfuse/internal/domain/fusion"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

// printReport writes the events of r, plus a short summary in table mode.
func printReport(w io.Writer, r *fusion.Report, format string) error {
	if format == formatJSON {
		events := r.Events
		if events == nil {
			events = []model.GameEvent{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"events": events})
	}

	if err := printEventTable(w, r.Events); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d events (%d raw, %d merged, %d below floor) in %s\n",
		len(r.Events), len(r.Raw), r.Merged, r.Dropped, r.Elapsed.Round(time.Microsecond))
	for _, f := range r.Fallbacks {
		fmt.Fprintf(w, "fallback: %s\n", f.Error())
	}
	return nil
}

func printEventTable(w io.Writer, events []model.GameEvent) error {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
	table.Header("TIME", "TYPE", "TEAM", "PLAYER", "PTS", "CONF", "SOURCE")

	for _, e := range events {
		player := e.PlayerID
		if player == "" {
			player = "-"
		}
		points := "-"
		if e.ScoreDelta > 0 {
			points = strconv.Itoa(e.ScoreDelta)
		}
		if err := table.Append(
			fmt.Sprintf("%.2f", e.Timestamp),
			string(e.Kind),
			string(e.TeamID),
			player,
			points,
			fmt.Sprintf("%.2f", e.Confidence),
			e.Source,
		); err != nil {
			return err
		}
	}
	return table.Render()
}
