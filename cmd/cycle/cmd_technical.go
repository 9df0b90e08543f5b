package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"SignalDesk/internal/di"
	"SignalDesk/pkg/util"
)

var technicalOpts struct {
	tickers  []string
	start    string
	end      string
	language string
	lookback int
}

var technicalCmd = &cobra.Command{
	Use:   "technical",
	Short: "Print technical signals and reasoning without making decisions",
	RunE:  runTechnical,
}

func init() {
	f := technicalCmd.Flags()
	f.StringSliceVar(&technicalOpts.tickers, "tickers", nil, "tickers to analyze (defaults to analysis.tickers)")
	f.StringVar(&technicalOpts.start, "start", "", "start date YYYY-MM-DD")
	f.StringVar(&technicalOpts.end, "end", "", "end date YYYY-MM-DD")
	f.StringVar(&technicalOpts.language, "language", "", "reasoning language, en or zh")
	f.IntVar(&technicalOpts.lookback, "lookback", 0, "lookback days when --start is empty (defaults to analysis.lookback_days)")
}

func runTechnical(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tickers := splitTickers(technicalOpts.tickers)
	if len(tickers) == 0 {
		tickers = cfg.Analysis.Tickers
	}
	lookback := technicalOpts.lookback
	if lookback <= 0 {
		lookback = cfg.Analysis.LookbackDays
	}
	language := technicalOpts.language
	if language == "" {
		language = cfg.Analysis.Language
	}
	start, end, err := util.ResolveWindow(technicalOpts.start, technicalOpts.end, lookback, time.Now())
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

	res, err := runner.Analyst.Analyze(ctx, tickers, start, end, language)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if jsonOutput() {
		return writeJSON(os.Stdout, res)
	}
	for _, t := range tickers {
		sig := res.Signals[t]
		fmt.Printf("== %s  %s  confidence %.0f  last close %.2f\n", t, sig.Direction, sig.Confidence, res.Prices[t])
		if msg, ok := res.Errors[t]; ok {
			fmt.Printf("   error: %s\n\n", msg)
			continue
		}
		fmt.Printf("%s\n\n", sig.Reasoning)
	}
	return nil
}
