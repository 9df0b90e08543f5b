package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
	domsvc "SignalDesk/internal/domain/service"
)

func sig(d models.Direction, conf float64) models.AnalystSignal {
	return models.AnalystSignal{Agent: "a", Direction: d, Confidence: conf}
}

func TestRuleProposer(t *testing.T) {
	in := domsvc.PromptInput{
		Tickers: []string{"BULL", "BEARLONG", "BEARFLAT", "TIE", "BLOCKED"},
		Signals: map[string][]models.AnalystSignal{
			"BULL":     {sig(models.Bullish, 80), sig(models.Bullish, 60), sig(models.Neutral, 10)},
			"BEARLONG": {sig(models.Bearish, 50)},
			"BEARFLAT": {sig(models.Bearish, 90), sig(models.Neutral, 20), sig(models.Bearish, 70)},
			"TIE":      {sig(models.Bullish, 80), sig(models.Bearish, 80)},
			"BLOCKED":  {sig(models.Bullish, 40)},
		},
		Allowed: map[string]models.AllowedActionSet{
			"BULL":     {models.ActionBuy: 12, models.ActionShort: 5, models.ActionHold: 0},
			"BEARLONG": {models.ActionSell: 7, models.ActionShort: 3, models.ActionHold: 0},
			"BEARFLAT": {models.ActionBuy: 4, models.ActionShort: 9, models.ActionHold: 0},
			"TIE":      {models.ActionBuy: 4, models.ActionHold: 0},
			"BLOCKED":  {models.ActionShort: 4, models.ActionHold: 0},
		},
		Portfolio: models.PortfolioSnapshot{
			Positions: map[string]models.Position{"BEARLONG": {Long: 7}},
		},
	}
	got, err := NewRuleProposer().Propose(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, models.ActionBuy, got["BULL"].Action)
	assert.Equal(t, 12, got["BULL"].Quantity)
	assert.InDelta(t, 70, got["BULL"].Confidence, 1e-9)

	assert.Equal(t, models.ActionSell, got["BEARLONG"].Action)
	assert.Equal(t, 7, got["BEARLONG"].Quantity)

	assert.Equal(t, models.ActionShort, got["BEARFLAT"].Action)
	assert.Equal(t, 9, got["BEARFLAT"].Quantity)
	assert.InDelta(t, 80, got["BEARFLAT"].Confidence, 1e-9)

	assert.Equal(t, models.ActionHold, got["TIE"].Action)
	assert.Zero(t, got["TIE"].Quantity)

	assert.Equal(t, models.ActionHold, got["BLOCKED"].Action)
	assert.Zero(t, got["BLOCKED"].Quantity)
}
