package predictor

import "prediction-systemv1/internal/model"

// Base multipliers per signal and horizon. BUY projects above the last
// price, SELL below, HOLD stays flat.
var targetBases = map[model.Signal][3]float64{
	model.SignalBuy:  {1.02, 1.05, 1.10},
	model.SignalSell: {0.98, 0.95, 0.90},
	model.SignalHold: {1.00, 1.00, 1.00},
}

// Horizon adjustment scale: further horizons move more with confidence.
var targetAdjust = [3]float64{0.1, 0.2, 0.3}

// priceTargets projects the last price onto the three horizons. The base
// multiplier per signal is nudged by (confidence/100 − 0.5) scaled per
// horizon, so a 50-confidence call returns the raw bases.
func priceTargets(lastPrice float64, signal model.Signal, conf float64) model.PriceTarget {
	bases := targetBases[signal]
	offset := conf/100 - 0.5

	return model.PriceTarget{
		Short:  round2(lastPrice * (bases[0] + offset*targetAdjust[0])),
		Medium: round2(lastPrice * (bases[1] + offset*targetAdjust[1])),
		Long:   round2(lastPrice * (bases[2] + offset*targetAdjust[2])),
	}
}
