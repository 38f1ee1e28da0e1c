// Package indicator provides technical indicator calculations over price and
// candle slices.
//
// All functions are pure: they recompute from the supplied window on every
// call, never mutate their input, and never return an error. A window shorter
// than the required period yields a documented neutral default instead — the
// caller decides whether "not enough data yet" matters.
package indicator

import "math"

// mean returns the arithmetic mean of values. Returns 0 for an empty slice.
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

// stdDev returns the population standard deviation of values around their mean.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// tail returns the trailing n elements of values, or all of them if fewer.
func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
