package indicator

import (
	"time"

	"prediction-systemv1/internal/model"
)

// Standard periods used by the evaluation cycle.
const (
	RSIPeriod        = 14
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignal       = 9
	BollingerPeriod  = 20
	BollingerK       = 2.0
	ATRPeriod        = 14
	StochasticK      = 14
	StochasticD      = 3
	WilliamsRPeriod  = 14
	SMAShortPeriod   = 20
	SMAMediumPeriod  = 50
	SMALongPeriod    = 200
	EMAFastPeriod    = 12
	EMASlowPeriod    = 26
)

// Compute builds the full TechnicalIndicators bundle from one candle-window
// snapshot. The input must be time-ordered oldest→newest; it is read, never
// mutated. An empty window yields a bundle of neutral defaults.
func Compute(symbol string, candles []model.Candle) model.TechnicalIndicators {
	prices := model.Closes(candles)

	return model.TechnicalIndicators{
		Symbol:     symbol,
		RSI:        RSI(prices, RSIPeriod),
		MACD:       MACD(prices, MACDFast, MACDSlow, MACDSignal),
		ATR:        ATR(candles, ATRPeriod),
		SMA20:      SMA(prices, SMAShortPeriod),
		SMA50:      SMA(prices, SMAMediumPeriod),
		SMA200:     SMA(prices, SMALongPeriod),
		Bollinger:  Bollinger(prices, BollingerPeriod, BollingerK),
		EMA12:      EMA(prices, EMAFastPeriod),
		EMA26:      EMA(prices, EMASlowPeriod),
		Stochastic: Stochastic(candles, StochasticK, StochasticD),
		WilliamsR:  WilliamsR(candles, WilliamsRPeriod),
		TS:         time.Now().UTC(),
	}
}
