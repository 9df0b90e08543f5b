package portfolio

import (
	"encoding/json"
	"sort"

	"SignalDesk/internal/domain/models"
)

// SummarizeSignals counts the directions of every signal per ticker.
// The result only has entries for tickers with at least one signal.
func SummarizeSignals(signals map[string][]models.AnalystSignal) map[string]models.SignalSummary {
	out := make(map[string]models.SignalSummary, len(signals))
	for ticker, list := range signals {
		var s models.SignalSummary
		for _, sig := range list {
			switch sig.Direction {
			case models.Bullish:
				s.Bullish++
			case models.Bearish:
				s.Bearish++
			case models.Neutral:
				s.Neutral++
			}
		}
		if s.Total() > 0 {
			out[ticker] = s
		}
	}
	return out
}

type compactSignal struct {
	Sig  models.Direction `json:"sig"`
	Conf float64          `json:"conf"`
}

type compactPosition struct {
	Long  int `json:"long"`
	Short int `json:"short"`
}

// CompactSignals renders {ticker:{agent:{sig,conf}}} for the given tickers.
// Tickers without signals are rendered as an empty object.
func CompactSignals(tickers []string, signals map[string][]models.AnalystSignal) string {
	out := make(map[string]map[string]compactSignal, len(tickers))
	for _, t := range tickers {
		agents := make(map[string]compactSignal)
		for _, sig := range signals[t] {
			if sig.Direction == "" {
				continue
			}
			agents[sig.Agent] = compactSignal{Sig: sig.Direction, Conf: sig.Confidence}
		}
		out[t] = agents
	}
	return compactJSON(out)
}

// CompactPositions renders {ticker:{long,short}}.
func CompactPositions(tickers []string, snap models.PortfolioSnapshot) string {
	out := make(map[string]compactPosition, len(tickers))
	for _, t := range tickers {
		p := snap.Position(t)
		out[t] = compactPosition{Long: p.Long, Short: p.Short}
	}
	return compactJSON(out)
}

// CompactAllowed renders {ticker:{action:max}} for the given tickers.
func CompactAllowed(tickers []string, allowed map[string]models.AllowedActionSet) string {
	out := make(map[string]models.AllowedActionSet, len(tickers))
	for _, t := range tickers {
		out[t] = allowed[t]
	}
	return compactJSON(out)
}

// compactJSON marshals without whitespace. Map keys are sorted by encoding/json.
func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
