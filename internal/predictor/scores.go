package predictor

import (
	"math"

	"prediction-systemv1/internal/model"
)

// Sub-score computation. Every function here is pure and total: any input,
// however short or degenerate, maps to a score in [0, 100].

const annualizationFactor = 252 // daily bars per trading year

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// technicalScore starts at 50 and applies fixed point deltas per indicator
// signal, clamped to [0, 100].
func technicalScore(ind model.TechnicalIndicators) float64 {
	score := 50.0

	switch {
	case ind.RSI.RSI < 30:
		score += 20
	case ind.RSI.RSI > 70:
		score -= 20
	case ind.RSI.RSI >= 40 && ind.RSI.RSI <= 60:
		score += 5
	}

	switch ind.MACD.Trend {
	case model.TrendBullish:
		score += 15
	case model.TrendBearish:
		score -= 15
	}

	if ind.SMA20 > ind.SMA50 {
		score += 10
	} else {
		score -= 10
	}
	if ind.SMA50 > ind.SMA200 {
		score += 5
	} else {
		score -= 5
	}

	if ind.Bollinger.PercentB < 0.2 {
		score += 10
	} else if ind.Bollinger.PercentB > 0.8 {
		score -= 10
	}

	switch ind.Stochastic.Trend {
	case model.TrendOversold:
		score += 10
	case model.TrendOverbought:
		score -= 10
	}

	return clamp(score, 0, 100)
}

// momentumScore compares the mean of the most recent 20 prices against the
// mean of the 20 before them: clamp(50 + pctChange·2, 0, 100). Fewer than 40
// prices give the neutral 50.
func momentumScore(prices []float64) float64 {
	if len(prices) < 40 {
		return 50
	}

	recent := mean(prices[len(prices)-20:])
	prior := mean(prices[len(prices)-40 : len(prices)-20])
	if prior == 0 {
		return 50
	}

	pct := (recent - prior) / prior * 100
	return clamp(50+pct*2, 0, 100)
}

// volatilityScore maps the annualized standard deviation of the trailing 20
// daily returns onto a discrete band. Lower scores flag higher volatility:
// <0.2 → 70, <0.5 → 50, else 30. Fewer than 21 prices give the middle band.
func volatilityScore(prices []float64) float64 {
	if len(prices) < 21 {
		return 50
	}

	window := prices[len(prices)-21:]
	returns := make([]float64, 0, 20)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			return 50
		}
		returns = append(returns, (window[i]-window[i-1])/window[i-1])
	}

	annualized := stdDev(returns) * math.Sqrt(annualizationFactor)
	switch {
	case annualized < 0.2:
		return 70
	case annualized < 0.5:
		return 50
	default:
		return 30
	}
}

// compositeScore blends the four sub-scores by the configured weights.
func compositeScore(w CompositeWeights, technical, sentiment, momentum, volatility float64) float64 {
	return w.Technical*technical + w.Sentiment*sentiment + w.Momentum*momentum + w.Volatility*volatility
}
