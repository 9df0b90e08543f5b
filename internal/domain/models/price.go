package models

import (
	"time"

	"SignalDesk/pkg/util"
)

// PriceBar is one OHLCV bar. Bars are ordered by Time ascending. Any numeric
// field may be missing.
type PriceBar struct {
	Open   Number    `json:"open"`
	High   Number    `json:"high"`
	Low    Number    `json:"low"`
	Close  Number    `json:"close"`
	Volume Number    `json:"volume"`
	Time   time.Time `json:"time"`
}

// RawBar is a bar as it arrives from a data source. Numeric fields may be numbers,
// numeric strings, or garbage.
type RawBar struct {
	Open   any    `json:"open"`
	High   any    `json:"high"`
	Low    any    `json:"low"`
	Close  any    `json:"close"`
	Volume any    `json:"volume"`
	Time   string `json:"time"`
}

// Bar coerces r. Non-numeric fields become missing; ok is false when the
// time cannot be parsed.
func (r RawBar) Bar() (PriceBar, bool) {
	t, ok := util.ParseTime(r.Time)
	if !ok {
		return PriceBar{}, false
	}
	return PriceBar{
		Open:   ParseNumber(r.Open),
		High:   ParseNumber(r.High),
		Low:    ParseNumber(r.Low),
		Close:  ParseNumber(r.Close),
		Volume: ParseNumber(r.Volume),
		Time:   t,
	}, true
}
