package indicator

import "prediction-systemv1/internal/model"

// Williams %R thresholds (the scale is inverted: 0 is strongest, -100 weakest).
const (
	williamsOversold   = -80
	williamsOverbought = -20
)

// WilliamsR computes Williams %R over the trailing `period` bars:
// ((highestHigh − lastClose) / (highestHigh − lowestLow)) × −100.
//
// Fewer than `period` candles yield the neutral default {value: -50}. A flat
// window short-circuits to -50 instead of dividing by zero.
func WilliamsR(candles []model.Candle, period int) model.WilliamsRResult {
	if period <= 0 || len(candles) < period {
		return model.WilliamsRResult{Value: -50, Trend: model.TrendNeutral}
	}

	window := candles[len(candles)-period:]
	lowest, highest := window[0].Low, window[0].High
	for _, c := range window[1:] {
		if c.Low < lowest {
			lowest = c.Low
		}
		if c.High > highest {
			highest = c.High
		}
	}

	value := -50.0
	if highest != lowest {
		lastClose := candles[len(candles)-1].Close
		value = (highest - lastClose) / (highest - lowest) * -100
	}

	trend := model.TrendNeutral
	switch {
	case value < williamsOversold:
		trend = model.TrendOversold
	case value > williamsOverbought:
		trend = model.TrendOverbought
	}

	return model.WilliamsRResult{Value: value, Trend: trend}
}
