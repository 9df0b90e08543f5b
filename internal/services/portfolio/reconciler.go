package portfolio

import (
	"errors"
	"fmt"
	"math"

	"SignalDesk/internal/domain/models"
	applogger "SignalDesk/pkg/logger"
)

// MismatchError describes a proposal outside the allowed action set.
type MismatchError struct {
	Ticker   string
	Action   models.Action
	Quantity int
	Reason   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("proposal for %s (%s %d) rejected: %s", e.Ticker, e.Action, e.Quantity, e.Reason)
}

// Record converts the error to its serializable form.
func (e *MismatchError) Record() models.DecisionMismatch {
	return models.DecisionMismatch{Ticker: e.Ticker, Action: e.Action, Quantity: e.Quantity, Reason: e.Reason}
}

// Reconciliation is the outcome of merging proposals with the allowed action sets.
type Reconciliation struct {
	Decisions  map[string]models.TradingDecision
	Mismatches []*MismatchError
	// Overrides lists tickers whose decision was forced to hold by unanimous neutral signals.
	Overrides []string
	// Prefilled lists tickers that had no trade available and never reached the proposer.
	Prefilled []string
	// Dropped lists proposed tickers that are not part of the cycle.
	Dropped []string
}

// MismatchRecords returns the mismatches in serializable form.
func (r *Reconciliation) MismatchRecords() []models.DecisionMismatch {
	out := make([]models.DecisionMismatch, 0, len(r.Mismatches))
	for _, m := range r.Mismatches {
		out = append(out, m.Record())
	}
	return out
}

// Reconciler validates proposed decisions against the feasible actions.
type Reconciler struct {
	log *applogger.Logger
}

func NewReconciler(log *applogger.Logger) *Reconciler {
	if log == nil {
		log = applogger.NewNop()
	}
	return &Reconciler{log: log}
}

// Prefill splits tickers into those with no possible trade, decided immediately,
// and those that need a proposal. Tickers missing from allowed count as hold only.
func (r *Reconciler) Prefill(tickers []string, allowed map[string]models.AllowedActionSet) (map[string]models.TradingDecision, []string) {
	prefilled := make(map[string]models.TradingDecision)
	pending := make([]string, 0, len(tickers))
	for _, t := range tickers {
		set, ok := allowed[t]
		if !ok || set.HoldOnly() {
			prefilled[t] = models.NoTradeDecision()
			continue
		}
		pending = append(pending, t)
	}
	return prefilled, pending
}

// Validate checks one proposal's action and quantity against its allowed set.
func Validate(ticker string, d models.TradingDecision, allowed models.AllowedActionSet) error {
	mismatch := func(reason string) error {
		return &MismatchError{Ticker: ticker, Action: d.Action, Quantity: d.Quantity, Reason: reason}
	}
	if !d.Action.Valid() {
		return mismatch("unknown action")
	}
	limit, ok := allowed.Allows(d.Action)
	if !ok {
		return mismatch("action not allowed")
	}
	if d.Quantity < 0 {
		return mismatch("negative quantity")
	}
	if d.Quantity > limit {
		return mismatch(fmt.Sprintf("quantity exceeds max %d", limit))
	}
	return nil
}

// clampConfidence bounds a proposal's confidence to 0..100. NaN becomes 0.
func clampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(100, c))
}

// Reconcile produces exactly one decision per ticker. Hold only tickers are
// prefilled, valid proposals are accepted, everything else becomes the default
// hold. As the final step, tickers whose signals are all neutral are forced to hold.
func (r *Reconciler) Reconcile(
	tickers []string,
	allowed map[string]models.AllowedActionSet,
	proposed map[string]models.TradingDecision,
	summaries map[string]models.SignalSummary,
) *Reconciliation {
	prefilled, pending := r.Prefill(tickers, allowed)
	res := &Reconciliation{
		Decisions: make(map[string]models.TradingDecision, len(tickers)),
		Prefilled: sortedKeys(prefilled),
	}
	for t, d := range prefilled {
		res.Decisions[t] = d
	}

	inCycle := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		inCycle[t] = true
	}
	for _, t := range sortedKeys(proposed) {
		if _, ok := allowed[t]; !ok || !inCycle[t] {
			res.Dropped = append(res.Dropped, t)
			r.log.Warn("dropping proposal for unknown ticker", applogger.String("ticker", t))
		}
	}

	for _, t := range pending {
		d, ok := proposed[t]
		if !ok {
			res.Decisions[t] = models.DefaultHoldDecision()
			continue
		}
		if err := Validate(t, d, allowed[t]); err != nil {
			var me *MismatchError
			if !errors.As(err, &me) {
				me = &MismatchError{Ticker: t, Action: d.Action, Quantity: d.Quantity, Reason: err.Error()}
			}
			res.Mismatches = append(res.Mismatches, me)
			r.log.Warn("proposal rejected",
				applogger.String("ticker", t),
				applogger.String("action", string(d.Action)),
				applogger.Int("quantity", d.Quantity),
				applogger.String("reason", me.Reason),
			)
			res.Decisions[t] = models.DefaultHoldDecision()
			continue
		}
		d.Confidence = clampConfidence(d.Confidence)
		res.Decisions[t] = d
	}

	r.enforceNeutralHold(tickers, summaries, res)
	return res
}

// enforceNeutralHold applies the unanimous neutral rule. It must run last.
func (r *Reconciler) enforceNeutralHold(tickers []string, summaries map[string]models.SignalSummary, res *Reconciliation) {
	for _, t := range tickers {
		s, ok := summaries[t]
		if !ok || !s.AllNeutral() {
			continue
		}
		d := res.Decisions[t]
		if d.Action == models.ActionHold && d.Quantity == 0 {
			continue
		}
		res.Decisions[t] = models.TradingDecision{
			Action:     models.ActionHold,
			Quantity:   0,
			Confidence: d.Confidence,
			Reasoning:  NeutralOverrideReason(s.Neutral, d.Action),
		}
		res.Overrides = append(res.Overrides, t)
		r.log.Info("neutral signals forced hold",
			applogger.String("ticker", t),
			applogger.String("original_action", string(d.Action)),
		)
	}
}

// NeutralOverrideReason explains a decision forced to hold.
func NeutralOverrideReason(neutral int, original models.Action) string {
	return fmt.Sprintf("All %d analyst(s) are NEUTRAL. Following rule: NEUTRAL signals → HOLD. Original decision was %s, but corrected to HOLD per system rules.", neutral, original)
}
