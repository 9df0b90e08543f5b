package technical

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultHurstMaxLag bounds the lags used by HurstExponent (2..maxLag-1).
	DefaultHurstMaxLag = 20
	// RandomWalkHurst is returned whenever the regression cannot be trusted.
	RandomWalkHurst = 0.5

	hurstTauFloor = 1e-8
)

// HurstExponent estimates the Hurst exponent of c as the slope of log(tau) on
// log(lag), where tau is the square root of the standard deviation of lagged
// differences. Missing values are skipped. Too few lags, a degenerate series or
// a non finite slope yield RandomWalkHurst.
func HurstExponent(c Column, maxLag int) float64 {
	if maxLag <= 0 {
		maxLag = DefaultHurstMaxLag
	}
	xs := make([]float64, 0, len(c))
	for _, v := range c {
		if v.Valid {
			xs = append(xs, v.V)
		}
	}

	var logLags, logTau []float64
	degenerate := true
	for lag := 2; lag < maxLag; lag++ {
		if len(xs) <= lag {
			break
		}
		diffs := make([]float64, len(xs)-lag)
		for i := range diffs {
			diffs[i] = xs[i+lag] - xs[i]
		}
		tau := math.Sqrt(math.Sqrt(stat.PopVariance(diffs, nil)))
		if math.IsNaN(tau) || tau <= hurstTauFloor {
			tau = hurstTauFloor
		} else {
			degenerate = false
		}
		logLags = append(logLags, math.Log(float64(lag)))
		logTau = append(logTau, math.Log(tau))
	}
	if len(logLags) < 2 || degenerate {
		return RandomWalkHurst
	}

	_, slope := stat.LinearRegression(logLags, logTau, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return RandomWalkHurst
	}
	return slope
}
