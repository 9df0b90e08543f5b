package technical

import "math"

// Value is an optional float. Leading entries of rolling computations and
// non-numeric inputs are invalid and never read as zero.
type Value struct {
	V     float64
	Valid bool
}

// Some wraps f, treating NaN and ±Inf as missing.
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{V: f, Valid: true}
}

// Missing is the invalid Value.
var Missing = Value{}

// Or returns the value or def when missing.
func (v Value) Or(def float64) float64 {
	if !v.Valid {
		return def
	}
	return v.V
}

// Column is a numeric series aligned to the bars of a Series.
type Column []Value

// Last returns the final entry, missing for an empty column.
func (c Column) Last() Value {
	if len(c) == 0 {
		return Missing
	}
	return c[len(c)-1]
}

// Floats builds a fully valid column from raw floats.
func Floats(fs ...float64) Column {
	out := make(Column, len(fs))
	for i, f := range fs {
		out[i] = Some(f)
	}
	return out
}

// window returns the raw values of c[i-w+1..i] or false when any entry is missing
// or the window runs past the start.
func (c Column) window(i, w int) ([]float64, bool) {
	if w <= 0 || i-w+1 < 0 || i >= len(c) {
		return nil, false
	}
	out := make([]float64, 0, w)
	for j := i - w + 1; j <= i; j++ {
		if !c[j].Valid {
			return nil, false
		}
		out = append(out, c[j].V)
	}
	return out, true
}

func binary(a, b Column, f func(x, y float64) float64) Column {
	n := min(len(a), len(b))
	out := make(Column, n)
	for i := 0; i < n; i++ {
		if a[i].Valid && b[i].Valid {
			out[i] = Some(f(a[i].V, b[i].V))
		}
	}
	return out
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
