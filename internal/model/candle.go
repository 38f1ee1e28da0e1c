package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV bar for a single symbol.
// Prices are float64 (crypto pairs quote fractional units).
type Candle struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bucket start time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// StreamKey returns the Redis stream key: "candle:{symbol}".
func (c *Candle) StreamKey() string {
	return "candle:" + c.Symbol
}

// Closes extracts the closing prices from a candle series, oldest→newest.
// The returned slice is freshly allocated; callers may mutate it freely.
func Closes(candles []Candle) []float64 {
	prices := make([]float64, len(candles))
	for i := range candles {
		prices[i] = candles[i].Close
	}
	return prices
}
