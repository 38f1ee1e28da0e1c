package predictor

import "prediction-systemv1/internal/model"

// technicalAgreement scores how consistently the indicators point the same
// way, in [0, 100] built from three pairwise checks worth 34/33/33 points.
func technicalAgreement(ind model.TechnicalIndicators) float64 {
	agreement := 0.0

	// RSI momentum direction vs the MACD trend.
	rsiBullish := ind.RSI.RSI > 50
	if (rsiBullish && ind.MACD.Trend == model.TrendBullish) ||
		(!rsiBullish && ind.MACD.Trend == model.TrendBearish) {
		agreement += 34
	}

	// Moving averages stacked in one direction.
	if (ind.SMA20 > ind.SMA50 && ind.SMA50 > ind.SMA200) ||
		(ind.SMA20 < ind.SMA50 && ind.SMA50 < ind.SMA200) {
		agreement += 33
	}

	// Bollinger position vs RSI regime: both at an extreme, or both mid-range.
	pb, rsi := ind.Bollinger.PercentB, ind.RSI.RSI
	if (pb < 0.2 && rsi < 40) || (pb > 0.8 && rsi > 60) ||
		(pb >= 0.2 && pb <= 0.8 && rsi >= 40 && rsi <= 60) {
		agreement += 33
	}

	return agreement
}

// trendConsistency measures how directional the trailing 10 prices are:
// |mean diff| over the diffs' own dispersion, scaled onto [0, 100]. A choppy
// series scores near 0, a clean run near 100. Fewer than 10 prices give 50.
func trendConsistency(prices []float64) float64 {
	if len(prices) < 10 {
		return 50
	}

	window := prices[len(prices)-10:]
	diffs := make([]float64, 0, 9)
	for i := 1; i < len(window); i++ {
		diffs = append(diffs, window[i]-window[i-1])
	}

	m := mean(diffs)
	sd := stdDev(diffs)
	if m < 0 {
		m = -m
	}
	return clamp(m/(sd+1e-9)*50, 0, 100)
}

// confidence blends the consistency components on top of a base of 50,
// bounded to [30, 95].
func confidence(w ConfidenceWeights, ind model.TechnicalIndicators, sent model.SentimentData, prices []float64, volScore float64) float64 {
	c := 50 +
		w.Agreement*technicalAgreement(ind) +
		w.Sentiment*sent.Confidence +
		w.TrendConsistency*trendConsistency(prices) +
		w.Volatility*(100-volScore)
	return round2(clamp(c, 30, 95))
}

// riskScore aggregates volatility and indicator stress on top of a base of
// 50, bounded to [10, 90].
func riskScore(ind model.TechnicalIndicators, volScore float64) float64 {
	risk := 50 + 0.3*(100-volScore)

	if ind.RSI.RSI < 20 || ind.RSI.RSI > 80 {
		risk += 20
	}
	if ind.SMA20 > 0 && ind.ATR > 0.05*ind.SMA20 {
		risk += 15
	}
	if oscillatorContradictsTrend(ind) {
		risk += 10
	}

	return round2(clamp(risk, 10, 90))
}

// oscillatorContradictsTrend reports whether the RSI regime and the MACD
// trend pull in opposite directions. An oversold RSI leans bullish (a
// reversal setup), overbought leans bearish.
func oscillatorContradictsTrend(ind model.TechnicalIndicators) bool {
	var rsiBias model.Trend
	switch ind.RSI.Trend {
	case model.TrendOversold:
		rsiBias = model.TrendBullish
	case model.TrendOverbought:
		rsiBias = model.TrendBearish
	default:
		return false
	}
	return ind.MACD.Trend != model.TrendNeutral && ind.MACD.Trend != rsiBias
}
