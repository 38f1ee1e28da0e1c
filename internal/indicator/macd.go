package indicator

import "prediction-systemv1/internal/model"

// MACD computes Moving Average Convergence Divergence with a signal line.
//
// macd = EMA(fast) − EMA(slow) over the full series. The signal line is the
// EMA(signalPeriod) of the trailing MACD-value sequence, where each MACD
// value is recomputed by re-running both EMAs on the series truncated up to
// that point. This O(n·slow) recomputation is kept deliberately: an
// incremental streaming EMA drifts slightly near series boundaries, and
// downstream consumers expect the recomputed values.
//
// A series shorter than `slow` returns the zeroed neutral default.
func MACD(prices []float64, fast, slow, signalPeriod int) model.MACDResult {
	if len(prices) < slow || fast <= 0 || slow <= 0 || signalPeriod <= 0 {
		return model.MACDResult{Trend: model.TrendNeutral}
	}

	macd := EMA(prices, fast) - EMA(prices, slow)

	// Trailing MACD series, one value per prefix long enough for the slow EMA.
	macdSeries := make([]float64, 0, len(prices)-slow+1)
	for i := slow; i <= len(prices); i++ {
		prefix := prices[:i]
		macdSeries = append(macdSeries, EMA(prefix, fast)-EMA(prefix, slow))
	}

	signal := EMA(macdSeries, signalPeriod)
	histogram := macd - signal

	trend := model.TrendNeutral
	switch {
	case histogram > 0:
		trend = model.TrendBullish
	case histogram < 0:
		trend = model.TrendBearish
	}

	return model.MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: histogram,
		Trend:     trend,
	}
}
