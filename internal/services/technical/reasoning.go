package technical

import (
	"fmt"
	"math"
	"strings"

	"SignalDesk/internal/domain/models"
	"SignalDesk/pkg/util"
)

// Percent converts a [0,1] confidence to a rounded 0..100 integer.
func Percent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

type labels struct {
	title, combined, results, conclusion string
	names                                map[models.Strategy]string
	confidence                           string

	adx, zScore, rsi, mom1m, histVol, hurst string

	strongTrend, weakTrend, moderateTrend string
	oversold, overbought, normalRange     string
	neutral, bullish, bearish             string
	highVol, lowVol, normalVol            string
	trending, meanReverting, randomWalk   string
}

var english = labels{
	title:      "【%s Technical Analysis Summary】",
	combined:   "Combined Signal: %s (Confidence: %d%%)",
	results:    "Individual Strategy Results:",
	conclusion: "Conclusion: Based on multi-strategy analysis, %s shows a %s technical signal with %d%% confidence.",
	confidence: "Confidence",
	names: map[models.Strategy]string{
		models.StrategyTrend:         "Trend Following",
		models.StrategyMeanReversion: "Mean Reversion",
		models.StrategyMomentum:      "Momentum",
		models.StrategyVolatility:    "Volatility",
		models.StrategyStatArb:       "Statistical Arbitrage",
	},
	adx: "ADX", zScore: "Z-Score", rsi: "RSI(14)", mom1m: "1M Momentum", histVol: "Historical Volatility", hurst: "Hurst Exponent",
	strongTrend: "Strong trend", weakTrend: "Weak trend", moderateTrend: "Moderate trend",
	oversold: "Oversold", overbought: "Overbought", normalRange: "Normal range",
	neutral: "Neutral", bullish: "Bullish", bearish: "Bearish",
	highVol: "High volatility", lowVol: "Low volatility", normalVol: "Normal volatility",
	trending: "Trending", meanReverting: "Mean-reverting", randomWalk: "Random walk",
}

var chinese = labels{
	title:      "【%s 技术分析摘要】",
	combined:   "综合信号: %s (置信度: %d%%)",
	results:    "各策略分析结果:",
	conclusion: "结论: 基于多策略综合分析，%s当前技术面呈现%s信号，综合置信度为%d%%。",
	confidence: "置信度",
	names: map[models.Strategy]string{
		models.StrategyTrend:         "趋势跟踪",
		models.StrategyMeanReversion: "均值回归",
		models.StrategyMomentum:      "动量分析",
		models.StrategyVolatility:    "波动率分析",
		models.StrategyStatArb:       "统计套利",
	},
	adx: "ADX指标", zScore: "Z分数", rsi: "RSI(14)", mom1m: "1月动量", histVol: "历史波动率", hurst: "Hurst指数",
	strongTrend: "强趋势", weakTrend: "弱趋势", moderateTrend: "中等趋势",
	oversold: "超卖", overbought: "超买", normalRange: "正常区间",
	neutral: "中性", bullish: "看涨", bearish: "看跌",
	highVol: "高波动", lowVol: "低波动", normalVol: "正常波动",
	trending: "趋势性", meanReverting: "均值回归", randomWalk: "随机游走",
}

func band(v, low, high float64, below, above, mid string) string {
	switch {
	case v < low:
		return below
	case v > high:
		return above
	}
	return mid
}

// Reasoning renders a multi-line summary of a technical report in English or Chinese.
// Zero metrics are treated as unavailable and omitted.
func Reasoning(r models.TechnicalReport, language string) string {
	l := english
	if util.IsChinese(language) {
		l = chinese
	}
	sig := strings.ToUpper(string(r.Combined.Direction))
	conf := Percent(r.Combined.Confidence)

	lines := []string{
		fmt.Sprintf(l.title, r.Ticker),
		fmt.Sprintf(l.combined, sig, conf),
		"",
		l.results,
	}
	for _, name := range models.Strategies {
		s, ok := r.Strategies[name]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s: %s (%s: %d%%)", l.names[name], strings.ToUpper(string(s.Direction)), l.confidence, Percent(s.Confidence)))
		m := s.Metrics
		switch name {
		case models.StrategyTrend:
			if adx := m["adx"]; adx != 0 {
				lines = append(lines, fmt.Sprintf("  - %s: %.2f (%s)", l.adx, adx, band(adx, 20, 25, l.weakTrend, l.strongTrend, l.moderateTrend)))
			}
		case models.StrategyMeanReversion:
			if z := m["z_score"]; z != 0 {
				lines = append(lines, fmt.Sprintf("  - %s: %.2f (%s)", l.zScore, z, band(z, -2, 2, l.oversold, l.overbought, l.normalRange)))
			}
			if rsi := m["rsi_14"]; rsi != 0 {
				lines = append(lines, fmt.Sprintf("  - %s: %.2f (%s)", l.rsi, rsi, band(rsi, 30, 70, l.oversold, l.overbought, l.neutral)))
			}
		case models.StrategyMomentum:
			if mom := m["momentum_1m"]; mom != 0 {
				lines = append(lines, fmt.Sprintf("  - %s: %.2f%% (%s)", l.mom1m, mom*100, band(mom, -0.05, 0.05, l.bearish, l.bullish, l.neutral)))
			}
		case models.StrategyVolatility:
			if hv := m["historical_volatility"]; hv != 0 {
				regime, ok := m["volatility_regime"]
				if !ok || regime == 0 {
					regime = 1
				}
				lines = append(lines, fmt.Sprintf("  - %s: %.2f%% (%s)", l.histVol, hv*100, band(regime, 0.8, 1.2, l.lowVol, l.highVol, l.normalVol)))
			}
		case models.StrategyStatArb:
			if h := m["hurst_exponent"]; h != 0 {
				lines = append(lines, fmt.Sprintf("  - %s: %.3f (%s)", l.hurst, h, band(h, 0.5, 0.5, l.meanReverting, l.trending, l.randomWalk)))
			}
		}
	}
	lines = append(lines, "", fmt.Sprintf(l.conclusion, r.Ticker, sig, conf))
	return strings.Join(lines, "\n")
}
