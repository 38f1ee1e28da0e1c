package indicator

import (
	"math"

	"prediction-systemv1/internal/model"
)

// ATR computes the Average True Range as the simple mean of the trailing
// `period` true ranges (or all available if fewer). The true range of a bar
// is max(high−low, |high−prevClose|, |low−prevClose|). Fewer than two
// candles yield 0 — no previous close exists to range against.
func ATR(candles []model.Candle, period int) float64 {
	if len(candles) < 2 || period <= 0 {
		return 0
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		tr := math.Max(cur.High-cur.Low,
			math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		trueRanges = append(trueRanges, tr)
	}

	return mean(tail(trueRanges, period))
}
