package indicator

import "prediction-systemv1/internal/model"

// Stochastic oscillator thresholds.
const (
	stochOversold   = 20
	stochOverbought = 80
)

// Stochastic computes the stochastic oscillator:
// %K = (lastClose − lowestLow) / (highestHigh − lowestLow) × 100 over the
// trailing kPeriod bars, and %D = the simple average of the last dPeriod %K
// values, each recomputed over the series truncated at that bar.
//
// Fewer than kPeriod candles yield the neutral default {k: 50, d: 50}. A flat
// window (highestHigh == lowestLow) short-circuits %K to 50.
func Stochastic(candles []model.Candle, kPeriod, dPeriod int) model.StochasticResult {
	if kPeriod <= 0 || dPeriod <= 0 || len(candles) < kPeriod {
		return model.StochasticResult{K: 50, D: 50, Trend: model.TrendNeutral}
	}

	k := stochasticK(candles, kPeriod)

	// %D: average of the trailing dPeriod %K values.
	kValues := make([]float64, 0, dPeriod)
	for i := dPeriod - 1; i >= 0; i-- {
		end := len(candles) - i
		if end < kPeriod {
			continue
		}
		kValues = append(kValues, stochasticK(candles[:end], kPeriod))
	}
	d := k
	if len(kValues) > 0 {
		d = mean(kValues)
	}

	trend := model.TrendNeutral
	switch {
	case k < stochOversold:
		trend = model.TrendOversold
	case k > stochOverbought:
		trend = model.TrendOverbought
	}

	return model.StochasticResult{K: k, D: d, Trend: trend}
}

// stochasticK computes raw %K over the trailing kPeriod bars of candles.
func stochasticK(candles []model.Candle, kPeriod int) float64 {
	window := candles[len(candles)-kPeriod:]

	lowest, highest := window[0].Low, window[0].High
	for _, c := range window[1:] {
		if c.Low < lowest {
			lowest = c.Low
		}
		if c.High > highest {
			highest = c.High
		}
	}

	if highest == lowest {
		return 50
	}
	lastClose := candles[len(candles)-1].Close
	return (lastClose - lowest) / (highest - lowest) * 100
}
