package model

import (
	"encoding/json"
	"time"
)

// Trend classifies an oscillator reading or a moving-average crossover.
type Trend string

const (
	TrendOversold   Trend = "oversold"
	TrendOverbought Trend = "overbought"
	TrendBullish    Trend = "bullish"
	TrendBearish    Trend = "bearish"
	TrendNeutral    Trend = "neutral"
)

// RSIResult holds the Relative Strength Index and its classification.
// RSI is bounded [0, 100].
type RSIResult struct {
	RSI   float64 `json:"rsi"`
	Trend Trend   `json:"trend"` // oversold | neutral | overbought
}

// MACDResult holds the MACD line, its signal line, and the histogram.
// Trend follows the histogram sign: >0 bullish, <0 bearish, ==0 neutral.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Trend     Trend   `json:"trend"`
}

// BollingerBands holds the volatility bands around the middle SMA.
// PercentB is unclamped: it exceeds [0, 1] when price sits outside the bands.
type BollingerBands struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Width    float64 `json:"width"`
	PercentB float64 `json:"percentB"`
}

// StochasticResult holds %K and %D, both in [0, 100].
type StochasticResult struct {
	K     float64 `json:"k"`
	D     float64 `json:"d"`
	Trend Trend   `json:"trend"` // oversold | neutral | overbought
}

// WilliamsRResult holds Williams %R, bounded [-100, 0].
type WilliamsRResult struct {
	Value float64 `json:"value"`
	Trend Trend   `json:"trend"` // oversold | neutral | overbought
}

// TechnicalIndicators bundles every indicator computed from one price-window
// snapshot. Built once per evaluation cycle, immutable after construction.
type TechnicalIndicators struct {
	Symbol     string           `json:"symbol"`
	RSI        RSIResult        `json:"rsi"`
	MACD       MACDResult       `json:"macd"`
	ATR        float64          `json:"atr"`
	SMA20      float64          `json:"sma20"`
	SMA50      float64          `json:"sma50"`
	SMA200     float64          `json:"sma200"`
	Bollinger  BollingerBands   `json:"bollinger"`
	EMA12      float64          `json:"ema12"`
	EMA26      float64          `json:"ema26"`
	Stochastic StochasticResult `json:"stochastic"`
	WilliamsR  WilliamsRResult  `json:"williamsR"`
	TS         time.Time        `json:"ts"`
}

// StreamKey returns the Redis stream key: "ind:{symbol}".
func (t *TechnicalIndicators) StreamKey() string {
	return "ind:" + t.Symbol
}

// PubSubChannel returns the Pub/Sub channel: "pub:ind:{symbol}".
func (t *TechnicalIndicators) PubSubChannel() string {
	return "pub:ind:" + t.Symbol
}

// JSON returns the JSON-encoded bundle.
func (t *TechnicalIndicators) JSON() []byte {
	b, _ := json.Marshal(t)
	return b
}
