package indicator

import "prediction-systemv1/internal/model"

// RSI thresholds for trend classification.
const (
	rsiOversold   = 30
	rsiOverbought = 70
)

// RSI computes the Relative Strength Index over the trailing `period` bars.
// Gains and losses are summed across the deltas inside that window and
// averaged by `period` (simple averages, not Wilder-smoothed). A window with
// fewer than `period` prices returns the neutral default {rsi: 50, trend:
// neutral}. The result is rounded to two decimals.
func RSI(prices []float64, period int) model.RSIResult {
	if period <= 0 || len(prices) < period {
		return model.RSIResult{RSI: 50, Trend: model.TrendNeutral}
	}

	window := prices[len(prices)-period:]
	sumGains, sumLosses := 0.0, 0.0
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			sumGains += delta
		} else {
			sumLosses += -delta
		}
	}

	avgGain := sumGains / float64(period)
	avgLoss := sumLosses / float64(period)

	var rsi float64
	if avgLoss == 0 {
		rsi = 100
	} else {
		rs := avgGain / avgLoss
		rsi = 100 - 100/(1+rs)
	}
	rsi = round2(rsi)

	return model.RSIResult{RSI: rsi, Trend: rsiTrend(rsi)}
}

func rsiTrend(rsi float64) model.Trend {
	switch {
	case rsi < rsiOversold:
		return model.TrendOversold
	case rsi > rsiOverbought:
		return model.TrendOverbought
	default:
		return model.TrendNeutral
	}
}
