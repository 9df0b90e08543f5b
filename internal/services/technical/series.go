package technical

import (
	"fmt"
	"sort"
	"time"

	"SignalDesk/internal/domain/models"
)

// InsufficientDataError reports that an indicator needs more bars than supplied.
type InsufficientDataError struct {
	Indicator string
	Need      int
	Have      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d bars, have %d", e.Indicator, e.Need, e.Have)
}

// ErrEmptySeries is returned when normalizing no usable bars.
var ErrEmptySeries = fmt.Errorf("empty price series")

// Series holds aligned OHLCV columns sorted by time ascending.
type Series struct {
	Times  []time.Time
	Open   Column
	High   Column
	Low    Column
	Close  Column
	Volume Column
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Times) }

// Require fails with InsufficientDataError when the series is shorter than need.
func (s *Series) Require(indicator string, need int) error {
	if s.Len() < need {
		return &InsufficientDataError{Indicator: indicator, Need: need, Have: s.Len()}
	}
	return nil
}

// Normalize sorts bars by time and drops duplicate timestamps, keeping the last bar seen.
// Missing fields stay missing in the columns.
func Normalize(bars []models.PriceBar) (*Series, error) {
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}
	idx := make(map[int64]int, len(bars))
	uniq := make([]models.PriceBar, 0, len(bars))
	for _, b := range bars {
		key := b.Time.UnixNano()
		if j, ok := idx[key]; ok {
			uniq[j] = b
			continue
		}
		idx[key] = len(uniq)
		uniq = append(uniq, b)
	}
	sort.SliceStable(uniq, func(i, j int) bool { return uniq[i].Time.Before(uniq[j].Time) })

	s := newSeries(len(uniq))
	for _, b := range uniq {
		s.Times = append(s.Times, b.Time)
		s.Open = append(s.Open, fromNumber(b.Open))
		s.High = append(s.High, fromNumber(b.High))
		s.Low = append(s.Low, fromNumber(b.Low))
		s.Close = append(s.Close, fromNumber(b.Close))
		s.Volume = append(s.Volume, fromNumber(b.Volume))
	}
	return s, nil
}

func newSeries(n int) *Series {
	return &Series{
		Times:  make([]time.Time, 0, n),
		Open:   make(Column, 0, n),
		High:   make(Column, 0, n),
		Low:    make(Column, 0, n),
		Close:  make(Column, 0, n),
		Volume: make(Column, 0, n),
	}
}

func fromNumber(n models.Number) Value {
	if !n.Valid {
		return Missing
	}
	return Some(n.V)
}
