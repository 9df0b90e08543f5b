package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"SignalDesk/internal/di"
	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/services/portfolio"
	"SignalDesk/internal/services/risk"
)

var allowedOpts struct {
	prices     []string
	cash       float64
	margin     float64
	marginUsed float64
}

var allowedCmd = &cobra.Command{
	Use:   "allowed",
	Short: "Compute the allowed actions for the configured portfolio at given prices",
	Long: `Allowed runs the position constraint solver offline. No market data is
fetched: prices come from --price flags.

Example usage:
  signaldesk-cycle allowed --price AAPL=190.5 --price MSFT=410
  signaldesk-cycle allowed --price TSLA=250 --cash 50000 --margin 0.3`,
	RunE: runAllowed,
}

// Printed in this order.
var actionOrder = []models.Action{
	models.ActionBuy, models.ActionSell, models.ActionShort, models.ActionCover, models.ActionHold,
}

func init() {
	f := allowedCmd.Flags()
	f.StringArrayVar(&allowedOpts.prices, "price", nil, "TICKER=PRICE, repeatable")
	f.Float64Var(&allowedOpts.cash, "cash", 0, "override portfolio cash")
	f.Float64Var(&allowedOpts.margin, "margin", 0, "override margin requirement within [0,1]")
	f.Float64Var(&allowedOpts.marginUsed, "margin-used", 0, "override margin already in use")
	_ = allowedCmd.MarkFlagRequired("price")
}

func runAllowed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tickers, prices, err := parsePrices(allowedOpts.prices)
	if err != nil {
		return err
	}

	snap := di.PortfolioSnapshot(cfg)
	flags := cmd.Flags()
	if flags.Changed("cash") {
		snap.Cash = allowedOpts.cash
	}
	if flags.Changed("margin") {
		if allowedOpts.margin < 0 || allowedOpts.margin > 1 {
			return fmt.Errorf("--margin must be within [0,1], got %v", allowedOpts.margin)
		}
		m := allowedOpts.margin
		snap.MarginRequirement = &m
	}
	if flags.Changed("margin-used") {
		snap.MarginUsed = allowedOpts.marginUsed
	}

	limits := risk.PositionLimits(tickers, prices, snap, cfg.Risk.MaxPositionPct)
	maxShares := make(map[string]int, len(tickers))
	for _, t := range tickers {
		maxShares[t] = portfolio.MaxSharesFromLimit(limits[t], prices[t])
	}
	allowed := portfolio.ComputeAllowedActions(tickers, prices, maxShares, snap)

	if jsonOutput() {
		return writeJSON(os.Stdout, map[string]any{
			"limits":     limits,
			"max_shares": maxShares,
			"allowed":    allowed,
		})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tPRICE\tLIMIT\tMAX SHARES\tALLOWED")
	for _, t := range tickers {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%d\t%s\n", t, prices[t], limits[t], maxShares[t], formatAllowed(allowed[t]))
	}
	return w.Flush()
}

func parsePrices(values []string) ([]string, map[string]float64, error) {
	prices := make(map[string]float64, len(values))
	tickers := make([]string, 0, len(values))
	for _, v := range values {
		ticker, raw, ok := strings.Cut(v, "=")
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if !ok || ticker == "" {
			return nil, nil, fmt.Errorf("invalid --price %q, want TICKER=PRICE", v)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid price for %s: %w", ticker, err)
		}
		if _, seen := prices[ticker]; !seen {
			tickers = append(tickers, ticker)
		}
		prices[ticker] = price
	}
	return tickers, prices, nil
}

func formatAllowed(set models.AllowedActionSet) string {
	parts := make([]string, 0, len(set))
	for _, a := range actionOrder {
		if q, ok := set[a]; ok {
			parts = append(parts, fmt.Sprintf("%s:%d", a, q))
		}
	}
	return strings.Join(parts, " ")
}
