package model

import (
	"encoding/json"
	"time"
)

// Signal is the discrete directional call emitted by the prediction engine.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// PriceTarget holds price projections for the three horizons.
type PriceTarget struct {
	Short  float64 `json:"short"`
	Medium float64 `json:"medium"`
	Long   float64 `json:"long"`
}

// PredictionData is one complete prediction for a symbol. Probabilities are
// percentages summing to 100 after neutral-clamping. A fresh record is
// produced on every evaluation; the newest supersedes the previous one.
type PredictionData struct {
	Symbol             string      `json:"symbol"`
	BullishProbability float64     `json:"bullishProbability"`
	BearishProbability float64     `json:"bearishProbability"`
	NeutralProbability float64     `json:"neutralProbability"`
	Confidence         float64     `json:"confidence"` // [30, 95]
	Signal             Signal      `json:"signal"`
	RiskScore          float64     `json:"riskScore"` // [10, 90]
	PriceTarget        PriceTarget `json:"priceTarget"`
	Timeframe          string      `json:"timeframe"`
	Timestamp          time.Time   `json:"timestamp"`
	ModelVersion       string      `json:"modelVersion"`
}

// StreamKey returns the Redis stream key: "pred:{symbol}".
func (p *PredictionData) StreamKey() string {
	return "pred:" + p.Symbol
}

// PubSubChannel returns the Pub/Sub channel: "pub:pred:{symbol}".
func (p *PredictionData) PubSubChannel() string {
	return "pub:pred:" + p.Symbol
}

// JSON returns the JSON-encoded prediction.
func (p *PredictionData) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}
