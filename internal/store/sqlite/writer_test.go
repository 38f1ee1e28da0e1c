package sqlite

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"prediction-systemv1/internal/model"
)

func testPrediction(symbol string, ts time.Time, signal model.Signal) model.PredictionData {
	return model.PredictionData{
		Symbol:             symbol,
		BullishProbability: 48,
		BearishProbability: 22,
		NeutralProbability: 30,
		Confidence:         61.5,
		Signal:             signal,
		RiskScore:          42,
		PriceTarget:        model.PriceTarget{Short: 102, Medium: 105, Long: 110},
		Timeframe:          "24h",
		Timestamp:          ts,
		ModelVersion:       "synthetic-v1.0",
	}
}

// Run must exit on context cancellation alone: the prediction channel is a
// long-lived hand-off that producers may still be sending on at shutdown,
// so the writer can never rely on it being closed.
func TestWriter_RunExitsOnCancelWithOpenChannel(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pred.db")
	w, err := New(WriterConfig{DBPath: dbPath})
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	var commits int64
	w.OnCommit = func(time.Duration) { atomic.AddInt64(&commits, 1) }

	predCh := make(chan model.PredictionData, 16)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx, predCh)
		close(done)
	}()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	predCh <- testPrediction("BTCUSDT", base, model.SignalBuy)
	predCh <- testPrediction("BTCUSDT", base.Add(time.Second), model.SignalBuy)
	predCh <- testPrediction("ETHUSDT", base, model.SignalHold)

	// The 200ms flush timer should commit the batch; poll rather than sleep.
	r, err := NewReader(dbPath)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	deadline := time.Now().Add(3 * time.Second)
	for {
		preds, err := r.ReadPredictions("BTCUSDT", 0, 10)
		if err == nil && len(preds) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for flush, last: %d rows, err=%v", len(preds), err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
		// Run returned even though predCh was never closed.
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	if atomic.LoadInt64(&commits) == 0 {
		t.Error("OnCommit was never invoked for the flushed batch")
	}

	preds, err := r.ReadPredictions("ETHUSDT", 0, 10)
	if err != nil {
		t.Fatalf("read ETHUSDT predictions: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("ETHUSDT rows: got %d, want 1", len(preds))
	}
	if preds[0].Signal != model.SignalHold {
		t.Errorf("signal: got %s, want HOLD", preds[0].Signal)
	}
	if preds[0].Timestamp.Unix() != base.Unix() {
		t.Errorf("timestamp: got %d, want %d", preds[0].Timestamp.Unix(), base.Unix())
	}
}

func TestWriter_CancelFlushesPendingBatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pred.db")
	w, err := New(WriterConfig{DBPath: dbPath})
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	predCh := make(chan model.PredictionData, 4)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	predCh <- testPrediction("SOLUSDT", base, model.SignalSell)

	// Buffer the prediction before Run starts so it is picked up and sits
	// in the in-memory batch when the context is cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, predCh)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond) // below the 200ms flush timer
	cancel()
	<-done

	r, err := NewReader(dbPath)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	preds, err := r.ReadPredictions("SOLUSDT", 0, 10)
	if err != nil {
		t.Fatalf("read predictions: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("rows after cancel flush: got %d, want 1", len(preds))
	}
}
