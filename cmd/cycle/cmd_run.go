package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"SignalDesk/internal/di"
	"SignalDesk/internal/domain/models"
)

var runOpts struct {
	tickers  []string
	start    string
	end      string
	language string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full decision cycle",
	Long: `Run fetches prices, computes technical signals, derives the allowed
actions for the configured portfolio and asks the proposer for decisions.

Example usage:
  signaldesk-cycle run --tickers AAPL,MSFT
  signaldesk-cycle run --tickers NVDA --start 2024-01-02 --end 2024-06-28 --format json`,
	RunE: runCycle,
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runOpts.tickers, "tickers", nil, "tickers to analyze (defaults to analysis.tickers)")
	f.StringVar(&runOpts.start, "start", "", "start date YYYY-MM-DD")
	f.StringVar(&runOpts.end, "end", "", "end date YYYY-MM-DD")
	f.StringVar(&runOpts.language, "language", "", "reasoning language, en or zh")
}

func runCycle(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, err := di.InitializeRunner(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer runner.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	res, err := runner.Cycle.Run(ctx, models.CycleRequest{
		Tickers:   splitTickers(runOpts.tickers),
		StartDate: runOpts.start,
		EndDate:   runOpts.end,
		Language:  runOpts.language,
	})
	if err != nil {
		return fmt.Errorf("cycle: %w", err)
	}
	if jsonOutput() {
		return writeJSON(os.Stdout, res)
	}
	return printCycle(res)
}

func printCycle(res *models.CycleResult) error {
	fmt.Printf("Cycle %s  %s .. %s  (%s)\n\n", res.ID, res.StartDate, res.EndDate, res.Duration)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tPRICE\tSIGNALS\tACTION\tQTY\tCONF\tREASON")
	for _, t := range res.Tickers {
		d := res.Decisions[t]
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%d\t%.1f\t%s\n",
			t, res.Prices[t], signalSummary(res.Signals[t]), d.Action, d.Quantity, d.Confidence, d.Reasoning)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(res.Mismatches) > 0 {
		fmt.Println("\nRejected proposals:")
		for _, m := range res.Mismatches {
			fmt.Printf("  %s %s %d: %s\n", m.Ticker, m.Action, m.Quantity, m.Reason)
		}
	}
	if len(res.Errors) > 0 {
		fmt.Println("\nErrors:")
		keys := make([]string, 0, len(res.Errors))
		for k := range res.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, res.Errors[k])
		}
	}
	return nil
}

func signalSummary(signals []models.AnalystSignal) string {
	if len(signals) == 0 {
		return "-"
	}
	out := ""
	for i, s := range signals {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%s(%.0f)", s.Agent, s.Direction, s.Confidence)
	}
	return out
}
