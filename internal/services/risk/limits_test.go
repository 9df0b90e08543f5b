package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SignalDesk/internal/domain/models"
)

func TestPortfolioValue(t *testing.T) {
	snap := models.PortfolioSnapshot{
		Cash: 1000,
		Positions: map[string]models.Position{
			"AAPL": {Long: 10},
			"TSLA": {Short: 2},
			"GONE": {Long: 100},
		},
	}
	got := PortfolioValue(snap, map[string]float64{"AAPL": 100, "TSLA": 50})
	assert.InDelta(t, 1000+1000+100, got, 1e-9)
}

func TestPositionLimits(t *testing.T) {
	snap := models.PortfolioSnapshot{
		Cash:      8000,
		Positions: map[string]models.Position{"AAPL": {Long: 10}},
	}
	prices := map[string]float64{"AAPL": 100, "MSFT": 50}
	limits := PositionLimits([]string{"AAPL", "MSFT"}, prices, snap, 0.2)

	// portfolio value 9000, 20% is 1800
	assert.InDelta(t, 800, limits["AAPL"], 1e-9)
	assert.InDelta(t, 1800, limits["MSFT"], 1e-9)
}

func TestPositionLimitsFloorAtZero(t *testing.T) {
	snap := models.PortfolioSnapshot{
		Cash:      100,
		Positions: map[string]models.Position{"AAPL": {Long: 50}},
	}
	limits := PositionLimits([]string{"AAPL"}, map[string]float64{"AAPL": 100}, snap, 0.1)
	assert.Equal(t, 0.0, limits["AAPL"])
}

func TestPositionLimitsDefaultPct(t *testing.T) {
	snap := models.PortfolioSnapshot{Cash: 1000}
	limits := PositionLimits([]string{"X"}, map[string]float64{"X": 10}, snap, 0)
	assert.InDelta(t, 200, limits["X"], 1e-9)
}
