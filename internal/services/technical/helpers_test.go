package technical

import (
	"time"

	"SignalDesk/internal/domain/models"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// barsFromCloses builds daily bars with a fixed ±1 range around each close.
func barsFromCloses(closes ...float64) []models.PriceBar {
	out := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = models.PriceBar{
			Open:   models.Num(c),
			High:   models.Num(c + 1),
			Low:    models.Num(c - 1),
			Close:  models.Num(c),
			Volume: models.Num(1000),
			Time:   day0.AddDate(0, 0, i),
		}
	}
	return out
}

// flatBars has no range at all: high, low and close are equal on every bar.
func flatBars(n int, v float64) []models.PriceBar {
	out := make([]models.PriceBar, n)
	for i := range out {
		out[i] = models.PriceBar{Open: models.Num(v), High: models.Num(v), Low: models.Num(v), Close: models.Num(v), Volume: models.Num(1000), Time: day0.AddDate(0, 0, i)}
	}
	return out
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func mustSeries(bars []models.PriceBar) *Series {
	s, err := Normalize(bars)
	if err != nil {
		panic(err)
	}
	return s
}
