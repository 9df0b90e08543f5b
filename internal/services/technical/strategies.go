package technical

import (
	"fmt"
	"math"

	"SignalDesk/internal/domain/models"
)

const (
	neutralConfidence = 0.5
	tradingDays       = 252
)

// Minimum bars before each strategy's longest window yields a value.
const (
	trendMinBars         = 2
	meanReversionMinBars = 50
	momentumMinBars      = 127 // 126 daily returns
	volatilityMinBars    = 84  // 21 day volatility smoothed over 63 days
	statArbMinBars       = 64  // 63 daily returns
)

func neutral(note string) models.StrategySignal {
	return models.StrategySignal{Direction: models.Neutral, Confidence: neutralConfidence, Note: note}
}

// undefined notes a metric that the window covers but the values do not
// determine, because of missing bars or a degenerate range.
func undefined(what string) string {
	return fmt.Sprintf("%s undefined for the supplied bars", what)
}

// tooShort returns a neutral signal noting the InsufficientDataError when s
// cannot fill the strategy window.
func tooShort(s *Series, indicator string, need int, metrics map[string]float64) (models.StrategySignal, bool) {
	err := s.Require(indicator, need)
	if err == nil {
		return models.StrategySignal{}, false
	}
	sig := neutral(err.Error())
	sig.Metrics = metrics
	return sig, true
}

func directional(d models.Direction, confidence float64) models.StrategySignal {
	return models.StrategySignal{Direction: d, Confidence: clamp01(confidence)}
}

// TrendMetrics are the latest-bar inputs of the trend strategy.
type TrendMetrics struct {
	EMA8  Value
	EMA21 Value
	EMA55 Value
	ADX   Value
}

func (m TrendMetrics) Map() map[string]float64 {
	strength := Missing
	if m.ADX.Valid {
		strength = Some(m.ADX.V / 100)
	}
	return map[string]float64{
		"adx":            m.ADX.Or(0),
		"trend_strength": strength.Or(0),
	}
}

func ComputeTrend(s *Series) TrendMetrics {
	return TrendMetrics{
		EMA8:  EMA(s.Close, 8).Last(),
		EMA21: EMA(s.Close, 21).Last(),
		EMA55: EMA(s.Close, 55).Last(),
		ADX:   ADX(s, 14).ADX.Last(),
	}
}

// DecideTrend is bullish when EMA8 > EMA21 > EMA55 and bearish when neither
// holds, with confidence ADX/100. Disagreeing flags are neutral.
func DecideTrend(m TrendMetrics) models.StrategySignal {
	var sig models.StrategySignal
	switch {
	case !m.EMA8.Valid || !m.EMA21.Valid || !m.EMA55.Valid:
		sig = neutral(undefined("moving averages"))
	default:
		short := m.EMA8.V > m.EMA21.V
		medium := m.EMA21.V > m.EMA55.V
		switch {
		case short != medium:
			sig = neutral("")
		case !m.ADX.Valid:
			sig = neutral("ADX undefined: no directional range in the supplied bars")
		case short:
			sig = directional(models.Bullish, m.ADX.V/100)
		default:
			sig = directional(models.Bearish, m.ADX.V/100)
		}
	}
	sig.Metrics = m.Map()
	return sig
}

// Trend runs the trend following strategy.
func Trend(s *Series) models.StrategySignal {
	m := ComputeTrend(s)
	if sig, short := tooShort(s, "adx", trendMinBars, m.Map()); short {
		return sig
	}
	return DecideTrend(m)
}

// MeanReversionMetrics are the latest-bar inputs of the mean reversion strategy.
type MeanReversionMetrics struct {
	ZScore    Value
	PriceVsBB Value
	RSI14     Value
	RSI28     Value
}

func (m MeanReversionMetrics) Map() map[string]float64 {
	return map[string]float64{
		"z_score":     m.ZScore.Or(0),
		"price_vs_bb": m.PriceVsBB.Or(0),
		"rsi_14":      m.RSI14.Or(0),
		"rsi_28":      m.RSI28.Or(0),
	}
}

func ComputeMeanReversion(s *Series) MeanReversionMetrics {
	mean := RollingMean(s.Close, 50).Last()
	std := RollingStd(s.Close, 50).Last()
	last := s.Close.Last()

	var m MeanReversionMetrics
	if last.Valid && mean.Valid && std.Valid {
		m.ZScore = Some((last.V - mean.V) / std.V)
	}
	upper, lower := BollingerBands(s.Close, 20, 2)
	u, l := upper.Last(), lower.Last()
	if last.Valid && u.Valid && l.Valid {
		m.PriceVsBB = Some((last.V - l.V) / (u.V - l.V))
	}
	m.RSI14 = RSI(s.Close, 14).Last()
	m.RSI28 = RSI(s.Close, 28).Last()
	return m
}

// DecideMeanReversion is bullish below -2 sigma in the lower band fifth and
// bearish above +2 sigma in the upper band fifth, with confidence |z|/4.
func DecideMeanReversion(m MeanReversionMetrics) models.StrategySignal {
	var sig models.StrategySignal
	switch {
	case !m.ZScore.Valid || !m.PriceVsBB.Valid:
		sig = neutral(undefined("z-score or bollinger bands"))
	case m.ZScore.V < -2 && m.PriceVsBB.V < 0.2:
		sig = directional(models.Bullish, math.Abs(m.ZScore.V)/4)
	case m.ZScore.V > 2 && m.PriceVsBB.V > 0.8:
		sig = directional(models.Bearish, math.Abs(m.ZScore.V)/4)
	default:
		sig = neutral("")
	}
	sig.Metrics = m.Map()
	return sig
}

// MeanReversion runs the mean reversion strategy.
func MeanReversion(s *Series) models.StrategySignal {
	m := ComputeMeanReversion(s)
	if sig, short := tooShort(s, "z_score", meanReversionMinBars, m.Map()); short {
		return sig
	}
	return DecideMeanReversion(m)
}

// MomentumMetrics are the latest-bar inputs of the momentum strategy.
type MomentumMetrics struct {
	Mom1M          Value
	Mom3M          Value
	Mom6M          Value
	VolumeMomentum Value
}

func (m MomentumMetrics) Map() map[string]float64 {
	return map[string]float64{
		"momentum_1m":     m.Mom1M.Or(0),
		"momentum_3m":     m.Mom3M.Or(0),
		"momentum_6m":     m.Mom6M.Or(0),
		"volume_momentum": m.VolumeMomentum.Or(0),
	}
}

// Score is the weighted momentum score, missing unless all three horizons are known.
func (m MomentumMetrics) Score() Value {
	if !m.Mom1M.Valid || !m.Mom3M.Valid || !m.Mom6M.Valid {
		return Missing
	}
	return Some(0.4*m.Mom1M.V + 0.3*m.Mom3M.V + 0.3*m.Mom6M.V)
}

func ComputeMomentum(s *Series) MomentumMetrics {
	returns := PctChange(s.Close)
	m := MomentumMetrics{
		Mom1M: RollingSum(returns, 21).Last(),
		Mom3M: RollingSum(returns, 63).Last(),
		Mom6M: RollingSum(returns, 126).Last(),
	}
	vol, volMA := s.Volume.Last(), RollingMean(s.Volume, 21).Last()
	if vol.Valid && volMA.Valid {
		m.VolumeMomentum = Some(vol.V / volMA.V)
	}
	return m
}

// DecideMomentum needs a score beyond ±0.05 confirmed by above average volume.
// Confidence is 5|score|.
func DecideMomentum(m MomentumMetrics) models.StrategySignal {
	score := m.Score()
	var sig models.StrategySignal
	switch {
	case !score.Valid:
		sig = neutral(undefined("momentum horizons"))
	case !m.VolumeMomentum.Valid:
		sig = neutral(undefined("volume momentum"))
	case score.V > 0.05 && m.VolumeMomentum.V > 1:
		sig = directional(models.Bullish, math.Abs(score.V)*5)
	case score.V < -0.05 && m.VolumeMomentum.V > 1:
		sig = directional(models.Bearish, math.Abs(score.V)*5)
	default:
		sig = neutral("")
	}
	sig.Metrics = m.Map()
	return sig
}

// Momentum runs the multi horizon momentum strategy.
func Momentum(s *Series) models.StrategySignal {
	m := ComputeMomentum(s)
	if sig, short := tooShort(s, "momentum_6m", momentumMinBars, m.Map()); short {
		return sig
	}
	return DecideMomentum(m)
}

// VolatilityMetrics are the latest-bar inputs of the volatility strategy.
type VolatilityMetrics struct {
	HistoricalVol Value
	Regime        Value
	ZScore        Value
	ATRRatio      Value
}

func (m VolatilityMetrics) Map() map[string]float64 {
	return map[string]float64{
		"historical_volatility": m.HistoricalVol.Or(0),
		"volatility_regime":     m.Regime.Or(0),
		"volatility_z_score":    m.ZScore.Or(0),
		"atr_ratio":             m.ATRRatio.Or(0),
	}
}

func ComputeVolatility(s *Series) VolatilityMetrics {
	returns := PctChange(s.Close)
	annual := math.Sqrt(tradingDays)
	hv := RollingStd(returns, 21)
	for i := range hv {
		if hv[i].Valid {
			hv[i] = Some(hv[i].V * annual)
		}
	}
	volMA := RollingMean(hv, 63).Last()
	volStd := RollingStd(hv, 63).Last()
	cur := hv.Last()

	m := VolatilityMetrics{HistoricalVol: cur}
	if cur.Valid && volMA.Valid {
		m.Regime = Some(cur.V / volMA.V)
		if volStd.Valid {
			m.ZScore = Some((cur.V - volMA.V) / volStd.V)
		}
	}
	atr, last := ATR(s, 14).Last(), s.Close.Last()
	if atr.Valid && last.Valid {
		m.ATRRatio = Some(atr.V / last.V)
	}
	return m
}

// DecideVolatility is bullish in a compressed regime (below 0.8, z < -1) and
// bearish in an expanded one (above 1.2, z > 1), with confidence |z|/3.
func DecideVolatility(m VolatilityMetrics) models.StrategySignal {
	var sig models.StrategySignal
	switch {
	case !m.Regime.Valid || !m.ZScore.Valid:
		sig = neutral(undefined("volatility regime"))
	case m.Regime.V < 0.8 && m.ZScore.V < -1:
		sig = directional(models.Bullish, math.Abs(m.ZScore.V)/3)
	case m.Regime.V > 1.2 && m.ZScore.V > 1:
		sig = directional(models.Bearish, math.Abs(m.ZScore.V)/3)
	default:
		sig = neutral("")
	}
	sig.Metrics = m.Map()
	return sig
}

// Volatility runs the volatility regime strategy.
func Volatility(s *Series) models.StrategySignal {
	m := ComputeVolatility(s)
	if sig, short := tooShort(s, "volatility_regime", volatilityMinBars, m.Map()); short {
		return sig
	}
	return DecideVolatility(m)
}

// StatArbMetrics are the latest-bar inputs of the statistical arbitrage strategy.
type StatArbMetrics struct {
	Hurst    float64
	Skewness Value
	Kurtosis Value
}

func (m StatArbMetrics) Map() map[string]float64 {
	return map[string]float64{
		"hurst_exponent": m.Hurst,
		"skewness":       m.Skewness.Or(0),
		"kurtosis":       m.Kurtosis.Or(0),
	}
}

func ComputeStatArb(s *Series) StatArbMetrics {
	returns := PctChange(s.Close)
	return StatArbMetrics{
		Hurst:    HurstExponent(s.Close, DefaultHurstMaxLag),
		Skewness: RollingSkew(returns, 63).Last(),
		Kurtosis: RollingKurt(returns, 63).Last(),
	}
}

// DecideStatArb trades skew in mean reverting series (hurst < 0.4) with
// confidence 2(0.5-hurst).
func DecideStatArb(m StatArbMetrics) models.StrategySignal {
	var sig models.StrategySignal
	switch {
	case m.Hurst < 0.4 && !m.Skewness.Valid:
		sig = neutral(undefined("skewness"))
	case m.Hurst < 0.4 && m.Skewness.V > 1:
		sig = directional(models.Bullish, (0.5-m.Hurst)*2)
	case m.Hurst < 0.4 && m.Skewness.V < -1:
		sig = directional(models.Bearish, (0.5-m.Hurst)*2)
	default:
		sig = neutral("")
	}
	sig.Metrics = m.Map()
	return sig
}

// StatArb runs the statistical arbitrage strategy.
func StatArb(s *Series) models.StrategySignal {
	m := ComputeStatArb(s)
	if sig, short := tooShort(s, "skewness", statArbMinBars, m.Map()); short {
		return sig
	}
	return DecideStatArb(m)
}
