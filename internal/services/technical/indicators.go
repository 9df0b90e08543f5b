package technical

import "math"

// EMA is the exponential moving average with alpha 2/(window+1), seeded with the
// first valid value. A missing input carries the previous average forward.
func EMA(c Column, window int) Column {
	out := make(Column, len(c))
	alpha := 2 / (float64(window) + 1)
	var acc Value
	for i, v := range c {
		switch {
		case !v.Valid:
		case !acc.Valid:
			acc = v
		default:
			acc = Some(alpha*v.V + (1-alpha)*acc.V)
		}
		out[i] = acc
	}
	return out
}

// ewmSpan is an exponentially weighted mean with bias adjustment: the average of
// all valid inputs so far, weighted by (1-alpha)^age. Missing inputs still age the weights.
func ewmSpan(c Column, span int) Column {
	out := make(Column, len(c))
	alpha := 2 / (float64(span) + 1)
	var num, den float64
	for i, v := range c {
		num *= 1 - alpha
		den *= 1 - alpha
		if v.Valid {
			num += v.V
			den++
		}
		if den > 0 {
			out[i] = Some(num / den)
		}
	}
	return out
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|), high-low on the first bar.
func TrueRange(s *Series) Column {
	n := s.Len()
	out := make(Column, n)
	for i := 0; i < n; i++ {
		h, l := s.High[i], s.Low[i]
		if !h.Valid || !l.Valid {
			continue
		}
		tr := h.V - l.V
		if i > 0 && s.Close[i-1].Valid {
			pc := s.Close[i-1].V
			tr = math.Max(tr, math.Max(math.Abs(h.V-pc), math.Abs(l.V-pc)))
		}
		out[i] = Some(tr)
	}
	return out
}

// ADXResult holds the Average Directional Index and the directional indicators.
type ADXResult struct {
	ADX     Column
	PlusDI  Column
	MinusDI Column
}

// ADX computes the Average Directional Index over period with exponential smoothing.
func ADX(s *Series, period int) ADXResult {
	n := s.Len()
	tr := TrueRange(s)
	plusDM := make(Column, n)
	minusDM := make(Column, n)
	for i := 0; i < n; i++ {
		// Directional movement is zero on the first bar and wherever a side is missing.
		plusDM[i], minusDM[i] = Some(0), Some(0)
		if i == 0 {
			continue
		}
		h, ph, l, pl := s.High[i], s.High[i-1], s.Low[i], s.Low[i-1]
		if !h.Valid || !ph.Valid || !l.Valid || !pl.Valid {
			continue
		}
		up := h.V - ph.V
		down := pl.V - l.V
		if up > down && up > 0 {
			plusDM[i] = Some(up)
		}
		if down > up && down > 0 {
			minusDM[i] = Some(down)
		}
	}

	smTR := ewmSpan(tr, period)
	plusDI := binary(ewmSpan(plusDM, period), smTR, func(dm, t float64) float64 { return 100 * dm / t })
	minusDI := binary(ewmSpan(minusDM, period), smTR, func(dm, t float64) float64 { return 100 * dm / t })
	dx := binary(plusDI, minusDI, func(p, m float64) float64 { return 100 * math.Abs(p-m) / (p + m) })
	return ADXResult{ADX: ewmSpan(dx, period), PlusDI: plusDI, MinusDI: minusDI}
}

// RSI uses simple rolling means of gains and losses over period. Price changes
// that cannot be computed count as flat. No losses with gains gives 100; a window
// with neither is missing.
func RSI(c Column, period int) Column {
	n := len(c)
	gain := make(Column, n)
	loss := make(Column, n)
	for i := 0; i < n; i++ {
		d := 0.0
		if i > 0 && c[i].Valid && c[i-1].Valid {
			d = c[i].V - c[i-1].V
		}
		gain[i] = Some(math.Max(d, 0))
		loss[i] = Some(math.Max(-d, 0))
	}
	return binary(RollingMean(gain, period), RollingMean(loss, period), func(g, l float64) float64 {
		if l == 0 {
			if g == 0 {
				return math.NaN()
			}
			return 100
		}
		return 100 - 100/(1+g/l)
	})
}

// BollingerBands returns SMA(window) ± k sample standard deviations.
func BollingerBands(c Column, window int, k float64) (upper, lower Column) {
	mean := RollingMean(c, window)
	std := RollingStd(c, window)
	upper = binary(mean, std, func(m, s float64) float64 { return m + k*s })
	lower = binary(mean, std, func(m, s float64) float64 { return m - k*s })
	return upper, lower
}

// ATR is the rolling mean of the true range over period.
func ATR(s *Series, period int) Column {
	return RollingMean(TrueRange(s), period)
}
