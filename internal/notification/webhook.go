package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// webhookPayload is the JSON document POSTed for each alert.
type webhookPayload struct {
	Source     string  `json:"source"`
	Level      string  `json:"level"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	Symbol     string  `json:"symbol,omitempty"`
	Signal     string  `json:"signal,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	RiskScore  float64 `json:"risk_score,omitempty"`
	TS         string  `json:"ts"`
}

// WebhookNotifier POSTs signal-change alerts to an operator-configured HTTP
// endpoint (WEBHOOK_URL). Delivery is best effort: the evaluation cycle
// logs and moves on when a POST fails.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier targeting the given endpoint.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Source:     "predengine",
		Level:      string(alert.Level),
		Title:      alert.Title,
		Message:    alert.Message,
		Symbol:     alert.Symbol,
		Signal:     alert.Signal,
		Confidence: alert.Confidence,
		RiskScore:  alert.RiskScore,
		TS:         time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
