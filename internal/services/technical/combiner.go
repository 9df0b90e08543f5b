package technical

import (
	"fmt"
	"math"
	"sort"

	"SignalDesk/internal/domain/models"
)

// CombineThreshold is the score magnitude above which the ensemble takes a side.
const CombineThreshold = 0.2

// Weights maps each strategy to its ensemble weight.
type Weights map[models.Strategy]float64

// DefaultWeights returns the standard ensemble weights.
func DefaultWeights() Weights {
	return Weights{
		models.StrategyTrend:         0.25,
		models.StrategyMeanReversion: 0.20,
		models.StrategyMomentum:      0.25,
		models.StrategyVolatility:    0.15,
		models.StrategyStatArb:       0.15,
	}
}

// Validate checks that weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	var sum float64
	for name, v := range w {
		if v < 0 {
			return fmt.Errorf("weight %s is negative: %v", name, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Combine reduces strategy signals to a single signal. The score is the
// confidence weighted mean of direction values, zero when no strategy carries
// weight. Strategies without a weight do not contribute.
func Combine(signals map[models.Strategy]models.StrategySignal, weights Weights) models.CombinedSignal {
	names := make([]string, 0, len(signals))
	for name := range signals {
		names = append(names, string(name))
	}
	sort.Strings(names)

	var weighted, total float64
	for _, name := range names {
		w, ok := weights[models.Strategy(name)]
		if !ok {
			continue
		}
		sig := signals[models.Strategy(name)]
		weighted += sig.Direction.Value() * w * sig.Confidence
		total += w * sig.Confidence
	}

	score := 0.0
	if total > 0 {
		score = weighted / total
	}
	dir := models.Neutral
	switch {
	case score > CombineThreshold:
		dir = models.Bullish
	case score < -CombineThreshold:
		dir = models.Bearish
	}
	return models.CombinedSignal{Direction: dir, Confidence: math.Abs(score), Score: score}
}
