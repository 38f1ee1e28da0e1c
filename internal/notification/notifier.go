// Package notification delivers signal-change alerts to external channels
// (webhooks, logs). An alert fires when a symbol's signal flips between
// consecutive evaluations, not on every prediction.
package notification

import (
	"context"
	"fmt"
	"log"

	"prediction-systemv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. Confidence and risk travel as
// numbers alongside the human-readable message so receivers can threshold
// without parsing it.
type Alert struct {
	Level      AlertLevel `json:"level"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Symbol     string     `json:"symbol,omitempty"`
	Signal     string     `json:"signal,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	RiskScore  float64    `json:"risk_score,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// SignalChangeAlert builds the alert for a signal flip. SELL flips are
// warnings, everything else informational.
func SignalChangeAlert(prev model.Signal, pred model.PredictionData) Alert {
	level := AlertInfo
	if pred.Signal == model.SignalSell {
		level = AlertWarning
	}
	return Alert{
		Level: level,
		Title: fmt.Sprintf("%s signal: %s → %s", pred.Symbol, prev, pred.Signal),
		Message: fmt.Sprintf("confidence %.1f, risk %.1f, bullish %.1f%%, bearish %.1f%%",
			pred.Confidence, pred.RiskScore, pred.BullishProbability, pred.BearishProbability),
		Symbol:     pred.Symbol,
		Signal:     string(pred.Signal),
		Confidence: pred.Confidence,
		RiskScore:  pred.RiskScore,
	}
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}
