package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is an optional float. A missing value is never read as zero: it
// encodes as JSON null and as SQL NULL.
type Number struct {
	V     float64
	Valid bool
}

// Num wraps f. NaN and ±Inf are missing.
func Num(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}
	}
	return Number{V: f, Valid: true}
}

// ParseNumber coerces a loosely typed value. Anything that is not a number
// or a numeric string is missing.
func ParseNumber(v any) Number {
	switch x := v.(type) {
	case Number:
		return x
	case float64:
		return Num(x)
	case float32:
		return Num(float64(x))
	case int:
		return Num(float64(x))
	case int32:
		return Num(float64(x))
	case int64:
		return Num(float64(x))
	case *float64:
		if x == nil {
			return Number{}
		}
		return Num(*x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Number{}
		}
		return Num(f)
	case []byte:
		return ParseNumber(string(x))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return Number{}
		}
		return Num(f)
	default:
		return Number{}
	}
}

// Or returns the value, or def when missing.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.V
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.V)
}

// UnmarshalJSON accepts numbers and numeric strings. null and any other
// token decode as missing rather than failing the whole document.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = Number{}
			return nil
		}
		*n = ParseNumber(s)
		return nil
	}
	*n = ParseNumber(json.Number(data))
	return nil
}

// Scan implements sql.Scanner for Nullable(Float64) columns.
func (n *Number) Scan(src any) error {
	switch src.(type) {
	case nil, float64, float32, int64, int32, int, *float64, []byte, string:
		*n = ParseNumber(src)
		return nil
	default:
		return fmt.Errorf("scan number: unsupported type %T", src)
	}
}

// Value implements driver.Valuer.
func (n Number) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.V, nil
}
