package indicator

import "prediction-systemv1/internal/model"

// Bollinger computes Bollinger Bands over the trailing `period` prices with
// bands at ±k population standard deviations around the middle SMA.
//
// With fewer than `period` prices the window degrades to all available
// prices (input-derived default). PercentB is unclamped, so prices outside
// the bands produce values outside [0, 1]; a degenerate zero-width band
// (flat prices) short-circuits percentB to 0.5 rather than dividing by zero.
func Bollinger(prices []float64, period int, k float64) model.BollingerBands {
	if len(prices) == 0 || period <= 0 {
		return model.BollingerBands{}
	}

	window := tail(prices, period)
	middle := mean(window)
	std := stdDev(window)

	upper := middle + k*std
	lower := middle - k*std

	width := 0.0
	if middle != 0 {
		width = (upper - lower) / middle
	}

	lastPrice := prices[len(prices)-1]
	percentB := 0.5
	if upper != lower {
		percentB = (lastPrice - lower) / (upper - lower)
	}

	return model.BollingerBands{
		Upper:    upper,
		Middle:   middle,
		Lower:    lower,
		Width:    width,
		PercentB: percentB,
	}
}
