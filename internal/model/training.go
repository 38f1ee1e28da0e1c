package model

import (
	"encoding/json"
	"time"
)

// TrainingMetrics is one epoch of the synthetic training simulator.
// These values come from a closed-form decay curve plus bounded noise; they
// drive a progress display, not the output of a learning process.
type TrainingMetrics struct {
	Epoch          int       `json:"epoch"`
	Loss           float64   `json:"loss"`
	MSE            float64   `json:"mse"`
	MAE            float64   `json:"mae"`
	R2Score        float64   `json:"r2Score"`
	LearningRate   float64   `json:"learningRate"`
	GradientNorm   float64   `json:"gradientNorm"`
	ValidationLoss float64   `json:"validationLoss"`
	Accuracy       float64   `json:"accuracy"`
	Precision      float64   `json:"precision"`
	Recall         float64   `json:"recall"`
	F1Score        float64   `json:"f1Score"`
	Timestamp      time.Time `json:"timestamp"`
}

// PubSubChannel returns the Pub/Sub channel for training updates.
func (m *TrainingMetrics) PubSubChannel() string {
	return "pub:train"
}

// JSON returns the JSON-encoded metrics.
func (m *TrainingMetrics) JSON() []byte {
	b, _ := json.Marshal(m)
	return b
}
