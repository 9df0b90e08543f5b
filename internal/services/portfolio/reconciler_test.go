package portfolio

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
)

func allowedFixture() map[string]models.AllowedActionSet {
	return map[string]models.AllowedActionSet{
		"AAPL": {models.ActionHold: 0, models.ActionBuy: 50, models.ActionShort: 20},
		"MSFT": {models.ActionHold: 0, models.ActionSell: 10},
		"IBM":  {models.ActionHold: 0},
	}
}

func TestPrefillHoldOnly(t *testing.T) {
	r := NewReconciler(nil)
	prefilled, pending := r.Prefill([]string{"AAPL", "IBM", "MSFT", "NOPE"}, allowedFixture())

	assert.Equal(t, []string{"AAPL", "MSFT"}, pending)
	require.Contains(t, prefilled, "IBM")
	assert.Equal(t, models.TradingDecision{Action: models.ActionHold, Quantity: 0, Confidence: 100, Reasoning: "No valid trade available"}, prefilled["IBM"])
	assert.Equal(t, models.NoTradeDecision(), prefilled["NOPE"])
}

func TestReconcileAcceptsValidAndRejectsInvalid(t *testing.T) {
	r := NewReconciler(nil)
	proposed := map[string]models.TradingDecision{
		"AAPL": {Action: models.ActionBuy, Quantity: 50, Confidence: 80, Reasoning: "bullish"},
		"MSFT": {Action: models.ActionBuy, Quantity: 1, Confidence: 60},
	}
	res := r.Reconcile([]string{"AAPL", "MSFT", "IBM"}, allowedFixture(), proposed, nil)

	assert.Equal(t, proposed["AAPL"], res.Decisions["AAPL"])
	assert.Equal(t, models.DefaultHoldDecision(), res.Decisions["MSFT"])
	assert.Equal(t, models.NoTradeDecision(), res.Decisions["IBM"])
	assert.Equal(t, []string{"IBM"}, res.Prefilled)

	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, "MSFT", res.Mismatches[0].Ticker)
	assert.Equal(t, "action not allowed", res.Mismatches[0].Reason)
	assert.Equal(t, []models.DecisionMismatch{{Ticker: "MSFT", Action: models.ActionBuy, Quantity: 1, Reason: "action not allowed"}}, res.MismatchRecords())
}

func TestValidate(t *testing.T) {
	set := allowedFixture()["AAPL"]
	cases := []struct {
		name string
		d    models.TradingDecision
		ok   bool
	}{
		{"at cap", models.TradingDecision{Action: models.ActionBuy, Quantity: 50, Confidence: 100}, true},
		{"hold", models.TradingDecision{Action: models.ActionHold}, true},
		{"over cap", models.TradingDecision{Action: models.ActionBuy, Quantity: 51}, false},
		{"hold with quantity", models.TradingDecision{Action: models.ActionHold, Quantity: 1}, false},
		{"negative", models.TradingDecision{Action: models.ActionShort, Quantity: -1}, false},
		{"unknown action", models.TradingDecision{Action: "yolo"}, false},
		{"not allowed", models.TradingDecision{Action: models.ActionCover, Quantity: 1}, false},
		{"confidence out of range", models.TradingDecision{Action: models.ActionBuy, Quantity: 1, Confidence: 120}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate("AAPL", tc.d, set)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var me *MismatchError
			assert.True(t, errors.As(err, &me))
		})
	}
}

func TestReconcileClampsConfidence(t *testing.T) {
	proposed := map[string]models.TradingDecision{
		"AAPL": {Action: models.ActionBuy, Quantity: 10, Confidence: 120, Reasoning: "very sure"},
		"MSFT": {Action: models.ActionHold, Confidence: -5},
	}
	res := NewReconciler(nil).Reconcile([]string{"AAPL", "MSFT"}, allowedFixture(), proposed, nil)

	assert.Empty(t, res.Mismatches)
	assert.Equal(t, models.TradingDecision{Action: models.ActionBuy, Quantity: 10, Confidence: 100, Reasoning: "very sure"}, res.Decisions["AAPL"])
	assert.Equal(t, 0.0, res.Decisions["MSFT"].Confidence)
}

func TestReconcileMissingProposalDefaultsToHold(t *testing.T) {
	res := NewReconciler(nil).Reconcile([]string{"AAPL"}, allowedFixture(), nil, nil)
	assert.Equal(t, models.DefaultHoldDecision(), res.Decisions["AAPL"])
	assert.Empty(t, res.Mismatches)
}

func TestReconcileDropsUnknownTickers(t *testing.T) {
	proposed := map[string]models.TradingDecision{
		"ZZZZ": {Action: models.ActionBuy, Quantity: 5},
		"AAPL": {Action: models.ActionHold},
	}
	res := NewReconciler(nil).Reconcile([]string{"AAPL"}, allowedFixture(), proposed, nil)
	assert.Equal(t, []string{"ZZZZ"}, res.Dropped)
	assert.NotContains(t, res.Decisions, "ZZZZ")
	assert.Len(t, res.Decisions, 1)
}

func TestReconcileNeutralOverride(t *testing.T) {
	proposed := map[string]models.TradingDecision{
		"AAPL": {Action: models.ActionBuy, Quantity: 10, Confidence: 72, Reasoning: "looks good"},
		"MSFT": {Action: models.ActionSell, Quantity: 10, Confidence: 55},
	}
	summaries := map[string]models.SignalSummary{
		"AAPL": {Neutral: 3},
		"MSFT": {Neutral: 2, Bearish: 1},
	}
	res := NewReconciler(nil).Reconcile([]string{"AAPL", "MSFT"}, allowedFixture(), proposed, summaries)

	got := res.Decisions["AAPL"]
	assert.Equal(t, models.ActionHold, got.Action)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, 72.0, got.Confidence)
	assert.Equal(t, "All 3 analyst(s) are NEUTRAL. Following rule: NEUTRAL signals → HOLD. Original decision was buy, but corrected to HOLD per system rules.", got.Reasoning)
	assert.Equal(t, []string{"AAPL"}, res.Overrides)

	assert.Equal(t, proposed["MSFT"], res.Decisions["MSFT"], "mixed signals are not overridden")
}

func TestReconcileNeutralHoldUntouched(t *testing.T) {
	proposed := map[string]models.TradingDecision{"AAPL": {Action: models.ActionHold, Confidence: 40, Reasoning: "wait"}}
	res := NewReconciler(nil).Reconcile([]string{"AAPL"}, allowedFixture(), proposed, map[string]models.SignalSummary{"AAPL": {Neutral: 1}})
	assert.Equal(t, proposed["AAPL"], res.Decisions["AAPL"])
	assert.Empty(t, res.Overrides)
}

// Every combination of proposal and signal mix must honour the bounds and the neutral rule.
func TestReconcileInvariants(t *testing.T) {
	allowed := allowedFixture()
	tickers := []string{"AAPL", "MSFT", "IBM"}
	actions := []models.Action{models.ActionBuy, models.ActionSell, models.ActionShort, models.ActionCover, models.ActionHold, "bogus"}
	quantities := []int{-5, 0, 1, 10, 20, 50, 51, 1000}
	mixes := []models.SignalSummary{{}, {Neutral: 1}, {Neutral: 4}, {Bullish: 1, Neutral: 2}, {Bearish: 2}}

	r := NewReconciler(nil)
	for _, a := range actions {
		for _, q := range quantities {
			for _, mix := range mixes {
				proposed := make(map[string]models.TradingDecision)
				summaries := make(map[string]models.SignalSummary)
				for _, tk := range tickers {
					proposed[tk] = models.TradingDecision{Action: a, Quantity: q, Confidence: 50}
					summaries[tk] = mix
				}
				res := r.Reconcile(tickers, allowed, proposed, summaries)
				require.Len(t, res.Decisions, len(tickers))
				for _, tk := range tickers {
					d := res.Decisions[tk]
					limit, ok := allowed[tk][d.Action]
					require.Truef(t, ok, "%s: action %s outside allowed set", tk, d.Action)
					require.LessOrEqualf(t, d.Quantity, limit, "%s: %s %d", tk, d.Action, d.Quantity)
					require.GreaterOrEqual(t, d.Quantity, 0)
					if d.Action == models.ActionHold {
						require.Equal(t, 0, d.Quantity)
					}
					if mix.AllNeutral() {
						require.Equal(t, models.ActionHold, d.Action)
						require.Equal(t, 0, d.Quantity)
					}
				}
			}
		}
	}
}

func TestSummarizeAndCompact(t *testing.T) {
	signals := map[string][]models.AnalystSignal{
		"AAPL": {
			{Agent: "technical_analyst", Direction: models.Bullish, Confidence: 61},
			{Agent: "sentiment_analyst", Direction: models.Neutral, Confidence: 40},
		},
		"MSFT": {},
	}
	sum := SummarizeSignals(signals)
	assert.Equal(t, models.SignalSummary{Bullish: 1, Neutral: 1}, sum["AAPL"])
	assert.NotContains(t, sum, "MSFT")

	assert.Equal(t,
		`{"AAPL":{"sentiment_analyst":{"sig":"neutral","conf":40},"technical_analyst":{"sig":"bullish","conf":61}},"MSFT":{}}`,
		CompactSignals([]string{"AAPL", "MSFT"}, signals))

	snap := models.PortfolioSnapshot{Positions: map[string]models.Position{"AAPL": {Long: 5, LongCostBasis: 100}}}
	assert.Equal(t, `{"AAPL":{"long":5,"short":0},"MSFT":{"long":0,"short":0}}`, CompactPositions([]string{"AAPL", "MSFT"}, snap))

	allowed := allowedFixture()
	compact := CompactAllowed([]string{"MSFT"}, allowed)
	assert.Equal(t, `{"MSFT":{"hold":0,"sell":10}}`, compact)
	assert.False(t, strings.Contains(compact, " "))
}
