package technical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
)

func TestDecideTrendBullishUsesADX(t *testing.T) {
	sig := DecideTrend(TrendMetrics{EMA8: Some(103), EMA21: Some(102), EMA55: Some(101), ADX: Some(40)})
	assert.Equal(t, models.Bullish, sig.Direction)
	assert.InDelta(t, 0.40, sig.Confidence, 1e-12)
	assert.InDelta(t, 40, sig.Metrics["adx"], 1e-12)
	assert.InDelta(t, 0.40, sig.Metrics["trend_strength"], 1e-12)
}

func TestDecideTrend(t *testing.T) {
	cases := []struct {
		name string
		m    TrendMetrics
		dir  models.Direction
		conf float64
		note bool
	}{
		{"bearish", TrendMetrics{EMA8: Some(1), EMA21: Some(2), EMA55: Some(3), ADX: Some(30)}, models.Bearish, 0.30, false},
		{"flags disagree", TrendMetrics{EMA8: Some(3), EMA21: Some(2), EMA55: Some(5), ADX: Some(60)}, models.Neutral, 0.5, false},
		{"missing adx", TrendMetrics{EMA8: Some(3), EMA21: Some(2), EMA55: Some(1)}, models.Neutral, 0.5, true},
		{"missing ema", TrendMetrics{EMA8: Some(3), EMA55: Some(1), ADX: Some(40)}, models.Neutral, 0.5, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := DecideTrend(tc.m)
			assert.Equal(t, tc.dir, sig.Direction)
			assert.InDelta(t, tc.conf, sig.Confidence, 1e-12)
			assert.Equal(t, tc.note, sig.Note != "")
		})
	}
}

func TestTrendOnRisingSeries(t *testing.T) {
	sig := Trend(mustSeries(barsFromCloses(rising(80)...)))
	assert.Equal(t, models.Bullish, sig.Direction)
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)
}

func TestDecideMeanReversion(t *testing.T) {
	bull := DecideMeanReversion(MeanReversionMetrics{ZScore: Some(-2.5), PriceVsBB: Some(0.1), RSI14: Some(25)})
	assert.Equal(t, models.Bullish, bull.Direction)
	assert.InDelta(t, 0.625, bull.Confidence, 1e-12)
	assert.Equal(t, 25.0, bull.Metrics["rsi_14"])
	assert.Equal(t, 0.0, bull.Metrics["rsi_28"], "missing metrics report zero")

	bear := DecideMeanReversion(MeanReversionMetrics{ZScore: Some(3), PriceVsBB: Some(0.9)})
	assert.Equal(t, models.Bearish, bear.Direction)
	assert.InDelta(t, 0.75, bear.Confidence, 1e-12)

	capped := DecideMeanReversion(MeanReversionMetrics{ZScore: Some(-6), PriceVsBB: Some(-0.3)})
	assert.Equal(t, 1.0, capped.Confidence)

	inBand := DecideMeanReversion(MeanReversionMetrics{ZScore: Some(-2.5), PriceVsBB: Some(0.5)})
	assert.Equal(t, models.Neutral, inBand.Direction)
	assert.Equal(t, 0.5, inBand.Confidence)

	missing := DecideMeanReversion(MeanReversionMetrics{PriceVsBB: Some(0.1)})
	assert.Equal(t, models.Neutral, missing.Direction)
	assert.NotEmpty(t, missing.Note)
}

func TestDecideMomentum(t *testing.T) {
	up := MomentumMetrics{Mom1M: Some(0.1), Mom3M: Some(0.1), Mom6M: Some(0.1), VolumeMomentum: Some(1.5)}
	sig := DecideMomentum(up)
	assert.Equal(t, models.Bullish, sig.Direction)
	assert.InDelta(t, 0.5, sig.Confidence, 1e-12)

	up.VolumeMomentum = Some(0.9)
	assert.Equal(t, models.Neutral, DecideMomentum(up).Direction, "needs volume confirmation")

	down := MomentumMetrics{Mom1M: Some(-0.3), Mom3M: Some(-0.3), Mom6M: Some(-0.3), VolumeMomentum: Some(1.2)}
	sig = DecideMomentum(down)
	assert.Equal(t, models.Bearish, sig.Direction)
	assert.Equal(t, 1.0, sig.Confidence)

	down.VolumeMomentum = Some(1.0)
	assert.Equal(t, models.Neutral, DecideMomentum(down).Direction, "bearish also needs volume confirmation")

	partial := MomentumMetrics{Mom1M: Some(0.2), Mom3M: Some(0.2), VolumeMomentum: Some(2)}
	sig = DecideMomentum(partial)
	assert.Equal(t, models.Neutral, sig.Direction)
	assert.Equal(t, 0.5, sig.Confidence)
	assert.NotEmpty(t, sig.Note)
	assert.Equal(t, 0.0, sig.Metrics["momentum_6m"])
}

func TestDecideVolatility(t *testing.T) {
	low := DecideVolatility(VolatilityMetrics{HistoricalVol: Some(0.1), Regime: Some(0.7), ZScore: Some(-1.5)})
	assert.Equal(t, models.Bullish, low.Direction)
	assert.InDelta(t, 0.5, low.Confidence, 1e-12)

	high := DecideVolatility(VolatilityMetrics{Regime: Some(1.3), ZScore: Some(2)})
	assert.Equal(t, models.Bearish, high.Direction)
	assert.InDelta(t, 2.0/3.0, high.Confidence, 1e-12)

	mid := DecideVolatility(VolatilityMetrics{Regime: Some(1.0), ZScore: Some(2)})
	assert.Equal(t, models.Neutral, mid.Direction)

	missing := DecideVolatility(VolatilityMetrics{Regime: Some(0.5)})
	assert.Equal(t, models.Neutral, missing.Direction)
	assert.NotEmpty(t, missing.Note)
}

func TestDecideStatArb(t *testing.T) {
	bull := DecideStatArb(StatArbMetrics{Hurst: 0.3, Skewness: Some(1.5), Kurtosis: Some(4)})
	assert.Equal(t, models.Bullish, bull.Direction)
	assert.InDelta(t, 0.4, bull.Confidence, 1e-12)
	assert.Equal(t, 4.0, bull.Metrics["kurtosis"])

	bear := DecideStatArb(StatArbMetrics{Hurst: 0.3, Skewness: Some(-1.5)})
	assert.Equal(t, models.Bearish, bear.Direction)

	trending := DecideStatArb(StatArbMetrics{Hurst: 0.45, Skewness: Some(3)})
	assert.Equal(t, models.Neutral, trending.Direction)
	assert.Equal(t, 0.5, trending.Confidence)

	clamped := DecideStatArb(StatArbMetrics{Hurst: -0.5, Skewness: Some(2)})
	assert.Equal(t, 1.0, clamped.Confidence)

	noSkew := DecideStatArb(StatArbMetrics{Hurst: 0.2})
	assert.Equal(t, models.Neutral, noSkew.Direction)
	assert.NotEmpty(t, noSkew.Note)
}

func TestStrategiesOnShortSeries(t *testing.T) {
	s := mustSeries(barsFromCloses(10, 11, 12, 11, 12, 13, 12, 14, 13, 15))
	for name, sig := range map[string]models.StrategySignal{
		"mean_reversion": MeanReversion(s),
		"momentum":       Momentum(s),
		"volatility":     Volatility(s),
	} {
		assert.Equalf(t, models.Neutral, sig.Direction, name)
		assert.Equalf(t, 0.5, sig.Confidence, name)
		assert.NotEmptyf(t, sig.Note, name)
		for k, v := range sig.Metrics {
			assert.Falsef(t, math.IsNaN(v), "%s metric %s is NaN", name, k)
		}
	}
	arb := StatArb(s)
	assert.Equal(t, models.Neutral, arb.Direction)
	assert.Contains(t, arb.Metrics, "hurst_exponent")
}

func TestShortSeriesNotesMinimumWindow(t *testing.T) {
	s := mustSeries(barsFromCloses(rising(60)...))
	cases := map[string]struct {
		sig  models.StrategySignal
		note string
	}{
		"mean_reversion": {MeanReversion(s), ""},
		"momentum":       {Momentum(s), (&InsufficientDataError{Indicator: "momentum_6m", Need: 127, Have: 60}).Error()},
		"volatility":     {Volatility(s), (&InsufficientDataError{Indicator: "volatility_regime", Need: 84, Have: 60}).Error()},
		"stat_arb":       {StatArb(s), (&InsufficientDataError{Indicator: "skewness", Need: 64, Have: 60}).Error()},
	}
	for name, tc := range cases {
		if tc.note == "" {
			assert.NotContainsf(t, tc.sig.Note, "insufficient", name)
			continue
		}
		assert.Equalf(t, tc.note, tc.sig.Note, name)
		assert.Equalf(t, models.Neutral, tc.sig.Direction, name)
		assert.NotEmptyf(t, tc.sig.Metrics, name)
	}

	one := mustSeries(barsFromCloses(10))
	assert.Equal(t, "insufficient data for adx: need 2 bars, have 1", Trend(one).Note)
}

func TestTrendFlatSeriesIsDegenerateNotShort(t *testing.T) {
	sig := Trend(mustSeries(flatBars(300, 42)))
	assert.Equal(t, models.Neutral, sig.Direction)
	assert.Equal(t, 0.5, sig.Confidence)
	assert.Contains(t, sig.Note, "ADX undefined")
	assert.NotContains(t, sig.Note, "insufficient")
}

func TestMissingBarReachesStrategies(t *testing.T) {
	bars := barsFromCloses(rising(200)...)
	bars[190].Close = models.ParseNumber(nil)

	s := mustSeries(bars)
	require.False(t, s.Close[190].Valid)

	m := ComputeMeanReversion(s)
	assert.False(t, m.ZScore.Valid, "the z-score window covers the missing close")
	sig := MeanReversion(s)
	assert.Equal(t, models.Neutral, sig.Direction)
	assert.Contains(t, sig.Note, "undefined")
	assert.Equal(t, 0.0, sig.Metrics["z_score"])

	mom := ComputeMomentum(s)
	assert.False(t, mom.Mom1M.Valid)
	assert.Contains(t, Momentum(s).Note, "undefined")
}

func TestStrategyMetricKeys(t *testing.T) {
	s := mustSeries(barsFromCloses(rising(200)...))
	keys := func(m map[string]float64) []string {
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		return out
	}
	require.ElementsMatch(t, []string{"adx", "trend_strength"}, keys(Trend(s).Metrics))
	require.ElementsMatch(t, []string{"z_score", "price_vs_bb", "rsi_14", "rsi_28"}, keys(MeanReversion(s).Metrics))
	require.ElementsMatch(t, []string{"momentum_1m", "momentum_3m", "momentum_6m", "volume_momentum"}, keys(Momentum(s).Metrics))
	require.ElementsMatch(t, []string{"historical_volatility", "volatility_regime", "volatility_z_score", "atr_ratio"}, keys(Volatility(s).Metrics))
	require.ElementsMatch(t, []string{"hurst_exponent", "skewness", "kurtosis"}, keys(StatArb(s).Metrics))
}
