package technical

import (
	"gonum.org/v1/gonum/stat"
)

// rolling applies f over every full window of w valid entries. Entries before
// index w-1, or whose window holds a missing value, stay missing.
func rolling(c Column, w int, f func([]float64) float64) Column {
	out := make(Column, len(c))
	for i := range c {
		if xs, ok := c.window(i, w); ok {
			out[i] = Some(f(xs))
		}
	}
	return out
}

// RollingMean is the simple moving average over w bars.
func RollingMean(c Column, w int) Column {
	return rolling(c, w, func(xs []float64) float64 { return stat.Mean(xs, nil) })
}

// RollingSum sums the last w entries.
func RollingSum(c Column, w int) Column {
	return rolling(c, w, func(xs []float64) float64 {
		var s float64
		for _, x := range xs {
			s += x
		}
		return s
	})
}

// RollingStd is the sample standard deviation (n-1) over w bars.
func RollingStd(c Column, w int) Column {
	if w < 2 {
		return make(Column, len(c))
	}
	return rolling(c, w, func(xs []float64) float64 { return stat.StdDev(xs, nil) })
}

// RollingSkew is the bias corrected sample skewness over w bars. Flat windows are missing.
func RollingSkew(c Column, w int) Column {
	if w < 3 {
		return make(Column, len(c))
	}
	return rolling(c, w, func(xs []float64) float64 { return stat.Skew(xs, nil) })
}

// RollingKurt is the bias corrected excess kurtosis over w bars. Flat windows are missing.
func RollingKurt(c Column, w int) Column {
	if w < 4 {
		return make(Column, len(c))
	}
	return rolling(c, w, func(xs []float64) float64 { return stat.ExKurtosis(xs, nil) })
}

// PctChange returns c[i]/c[i-1]-1. The first entry and any step with a zero or
// missing previous value are missing.
func PctChange(c Column) Column {
	out := make(Column, len(c))
	for i := 1; i < len(c); i++ {
		prev, cur := c[i-1], c[i]
		if !prev.Valid || !cur.Valid || prev.V == 0 {
			continue
		}
		out[i] = Some(cur.V/prev.V - 1)
	}
	return out
}
