package risk

import (
	"math"

	"SignalDesk/internal/domain/models"
)

// DefaultMaxPositionPct caps any single position at a fifth of the portfolio.
const DefaultMaxPositionPct = 0.20

// PortfolioValue is cash plus the market value of every long and short position.
// Positions without a price contribute nothing.
func PortfolioValue(snap models.PortfolioSnapshot, prices map[string]float64) float64 {
	total := snap.Cash
	for ticker, pos := range snap.Positions {
		price := prices[ticker]
		total += float64(pos.Long)*price + float64(pos.Short)*price
	}
	return total
}

// PositionLimits returns the remaining dollar limit per ticker:
// maxPositionPct of the portfolio value minus the current exposure, floored at 0.
func PositionLimits(tickers []string, prices map[string]float64, snap models.PortfolioSnapshot, maxPositionPct float64) map[string]float64 {
	if maxPositionPct <= 0 {
		maxPositionPct = DefaultMaxPositionPct
	}
	value := PortfolioValue(snap, prices)
	out := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		pos := snap.Position(t)
		exposure := math.Abs(float64(pos.Long+pos.Short) * prices[t])
		out[t] = math.Max(0, maxPositionPct*value-exposure)
	}
	return out
}
