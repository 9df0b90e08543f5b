package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"SignalDesk/internal/domain/models"
)

func f64(v float64) *float64 { return &v }

func TestAllowedBuyCappedByRiskLimit(t *testing.T) {
	snap := models.PortfolioSnapshot{
		Cash:      10000,
		Positions: map[string]models.Position{"AAPL": {}},
	}
	got := ComputeAllowedActions([]string{"AAPL"}, map[string]float64{"AAPL": 100}, map[string]int{"AAPL": 50}, snap)
	// margin defaults to 0.5 so shorting is also feasible
	assert.Equal(t, 50, got["AAPL"][models.ActionBuy])
	assert.Equal(t, 0, got["AAPL"][models.ActionHold])
	assert.NotContains(t, got["AAPL"], models.ActionSell)
	assert.NotContains(t, got["AAPL"], models.ActionCover)
}

func TestAllowedBuyOnlyWhenShortingImpossible(t *testing.T) {
	snap := models.PortfolioSnapshot{
		Cash:              10000,
		Positions:         map[string]models.Position{"AAPL": {}},
		MarginRequirement: f64(0.5),
		MarginUsed:        1e9,
	}
	got := ComputeAllowedActions([]string{"AAPL"}, map[string]float64{"AAPL": 100}, map[string]int{"AAPL": 50}, snap)
	assert.Equal(t, models.AllowedActionSet{models.ActionHold: 0, models.ActionBuy: 50}, got["AAPL"])
}

func TestAllowedBuyCappedByCash(t *testing.T) {
	snap := models.PortfolioSnapshot{Cash: 1050, MarginUsed: 1e9}
	got := ComputeAllowedActions([]string{"X"}, map[string]float64{"X": 100}, map[string]int{"X": 500}, snap)
	assert.Equal(t, 10, got["X"][models.ActionBuy])
}

func TestAllowedSellAndCoverFromPositions(t *testing.T) {
	snap := models.PortfolioSnapshot{
		Cash:      0,
		Positions: map[string]models.Position{"TSLA": {Long: 7, Short: 3}},
	}
	got := ComputeAllowedActions([]string{"TSLA"}, map[string]float64{"TSLA": 0}, map[string]int{}, snap)
	assert.Equal(t, models.AllowedActionSet{
		models.ActionHold:  0,
		models.ActionSell:  7,
		models.ActionCover: 3,
	}, got["TSLA"])
}

func TestAllowedShortZeroMarginUsesRiskLimit(t *testing.T) {
	for _, equity := range []float64{0, 10, 1e6} {
		snap := models.PortfolioSnapshot{
			Cash:              0,
			MarginRequirement: f64(0),
			MarginUsed:        1e12,
			Equity:            f64(equity),
		}
		got := ComputeAllowedActions([]string{"A"}, map[string]float64{"A": 25}, map[string]int{"A": 40}, snap)
		assert.Equal(t, 40, got["A"][models.ActionShort], "equity %v", equity)
	}
}

func TestAllowedShortByMarginHeadroom(t *testing.T) {
	snap := models.PortfolioSnapshot{
		Cash:              5000,
		MarginRequirement: f64(0.5),
		MarginUsed:        4000,
		Equity:            f64(3000),
	}
	// 3000/0.5 - 4000 = 2000 of headroom at 30 per share -> 66
	got := ComputeAllowedActions([]string{"A"}, map[string]float64{"A": 30}, map[string]int{"A": 100}, snap)
	assert.Equal(t, 66, got["A"][models.ActionShort])

	snap.MarginUsed = 7000
	got = ComputeAllowedActions([]string{"A"}, map[string]float64{"A": 30}, map[string]int{"A": 100}, snap)
	assert.NotContains(t, got["A"], models.ActionShort)
}

func TestAllowedEquityDefaultsToCash(t *testing.T) {
	snap := models.PortfolioSnapshot{Cash: 1000}
	// 1000/0.5 = 2000 of headroom at 100 per share -> 20
	got := ComputeAllowedActions([]string{"A"}, map[string]float64{"A": 100}, map[string]int{"A": 100}, snap)
	assert.Equal(t, 20, got["A"][models.ActionShort])
	assert.Equal(t, 10, got["A"][models.ActionBuy])
}

func TestAllowedMissingPriceOnlyHolds(t *testing.T) {
	snap := models.PortfolioSnapshot{Cash: 1000}
	got := ComputeAllowedActions([]string{"GONE"}, nil, nil, snap)
	assert.Equal(t, models.AllowedActionSet{models.ActionHold: 0}, got["GONE"])
	assert.True(t, got["GONE"].HoldOnly())
}

func TestAllowedDeterministic(t *testing.T) {
	snap := models.PortfolioSnapshot{
		Cash:      12345.67,
		Positions: map[string]models.Position{"A": {Long: 3}, "B": {Short: 9}},
		Equity:    f64(20000),
	}
	tickers := []string{"A", "B", "C"}
	prices := map[string]float64{"A": 33.3, "B": 0.7, "C": 1234.5}
	limits := map[string]int{"A": 10, "B": 1000, "C": 3}

	first := ComputeAllowedActions(tickers, prices, limits, snap)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ComputeAllowedActions(tickers, prices, limits, snap))
	}
	assert.Equal(t, CompactAllowed(tickers, first), CompactAllowed(tickers, ComputeAllowedActions(tickers, prices, limits, snap)))
}

func TestSharesSaturateOnHugeQuotients(t *testing.T) {
	assert.Equal(t, math.MaxInt, MaxSharesFromLimit(2e19, 1))
	assert.Equal(t, math.MaxInt, MaxSharesFromLimit(1e25, 1))
	assert.Equal(t, 0, MaxSharesFromLimit(-1e25, 1))

	snap := models.PortfolioSnapshot{Cash: 1e25, MarginRequirement: f64(0.5)}
	got := ComputeAllowedActions([]string{"A"}, map[string]float64{"A": 1}, map[string]int{"A": math.MaxInt}, snap)
	assert.Equal(t, math.MaxInt, got["A"][models.ActionBuy])
	assert.Equal(t, math.MaxInt, got["A"][models.ActionShort])
}

func TestMaxSharesFromLimit(t *testing.T) {
	assert.Equal(t, 50, MaxSharesFromLimit(5000, 100))
	assert.Equal(t, 3, MaxSharesFromLimit(0.3, 0.1), "exact division")
	assert.Equal(t, 0, MaxSharesFromLimit(5000, 0))
	assert.Equal(t, 0, MaxSharesFromLimit(-10, 5))
	assert.Equal(t, 33, MaxSharesFromLimit(1000, 30))
}
