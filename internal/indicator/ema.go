package indicator

// EMA computes the Exponential Moving Average over the full series.
// The first `period` values seed the EMA with their simple average, then the
// recurrence ema = (price − ema) × (2/(period+1)) + ema folds in the rest.
// A series shorter than `period` degrades to the simple average of all
// available values (not the last price).
func EMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return mean(prices)
	}

	ema := mean(prices[:period])
	multiplier := 2.0 / float64(period+1)
	for _, price := range prices[period:] {
		ema = (price-ema)*multiplier + ema
	}
	return ema
}

// SMA computes the arithmetic mean of the trailing `period` prices,
// or of all prices if fewer are available.
func SMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) == 0 {
		return 0
	}
	return mean(tail(prices, period))
}
