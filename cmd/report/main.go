// Command report prints the dashboard preview and per-state means to the
// terminal.
//
// Usage:
//
//	go run ./cmd/report --data Unemployment_Rate_upto_11_2020.csv --state Haryana --month All --rows 5
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/unemployment-dashboard/internal/adapter/csvfile"
	"github.com/couchcryptid/unemployment-dashboard/internal/config"
	"github.com/couchcryptid/unemployment-dashboard/internal/dashboard"
	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/couchcryptid/unemployment-dashboard/internal/observability"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type reportOptions struct {
	dataPath string
	state    string
	month    string
	rows     int
	timeout  time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the unemployment preview and state means",
		Long: `Load the unemployment CSV, apply the state and month filters and print
the preview rows followed by the mean unemployment rate of every state.

The state means always cover the full table, matching the dashboard's bar chart.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return runReport(ctx, cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.dataPath, "data", "Unemployment_Rate_upto_11_2020.csv", "path to the unemployment CSV")
	flags.StringVar(&opts.state, "state", domain.All, "state filter")
	flags.StringVar(&opts.month, "month", domain.All, "month filter (full English month name)")
	flags.IntVar(&opts.rows, "rows", 5, "number of preview rows")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "load timeout")

	return cmd
}

func runReport(ctx context.Context, out io.Writer, opts reportOptions) error {
	if opts.rows < config.MinPreviewRows || opts.rows > config.MaxPreviewRows {
		return fmt.Errorf("--rows must be between %d and %d", config.MinPreviewRows, config.MaxPreviewRows)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()

	source := dashboard.NewSource(csvfile.NewLoader(opts.dataPath, nil, logger, metrics))
	dash := dashboard.New(source, nil, logger, metrics, opts.rows)

	v, err := dash.Render(ctx, domain.NewSelection(opts.state, opts.month))
	if err != nil {
		return err
	}

	heading := color.New(color.FgCyan, color.Bold)
	section := color.New(color.FgYellow)

	heading.Fprintln(out, v.Title)
	fmt.Fprintf(out, "State: %s  Month: %s  (%d of %d rows)\n",
		v.Selection.State, v.Selection.Month, v.FilteredRows, v.TotalRows)

	section.Fprintln(out, "\n"+domain.HeadingPreview)
	if v.Preview.Len() == 0 {
		color.New(color.Faint).Fprintln(out, "No rows match the current filters.")
	} else {
		writePreview(out, v.Preview)
	}

	section.Fprintln(out, "\n"+domain.HeadingStateMeans)
	writeMeans(out, v.StateMeans)

	return nil
}

func writePreview(out io.Writer, ds *domain.Dataset) {
	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(ds.Columns)
	for _, obs := range ds.Rows {
		row := make([]string, len(ds.Columns))
		for i, col := range ds.Columns {
			row[i] = obs.Field(col)
		}
		table.Append(row)
	}
	table.Render()
}

func writeMeans(out io.Writer, means []domain.StateMean) {
	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{domain.ColState, "Mean " + domain.ColUnemploymentRate})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, m := range means {
		table.Append([]string{m.State, strconv.FormatFloat(m.Mean, 'f', 2, 64)})
	}
	table.Render()
}
