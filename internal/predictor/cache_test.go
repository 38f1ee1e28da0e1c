package predictor

import (
	"testing"

	"prediction-systemv1/internal/model"
)

func TestCache_LatestSupersedes(t *testing.T) {
	c := NewCache()

	if _, ok := c.Get("BTCUSDT"); ok {
		t.Fatal("empty cache must miss")
	}

	c.Put(model.PredictionData{Symbol: "BTCUSDT", Signal: model.SignalHold, Confidence: 50})
	c.Put(model.PredictionData{Symbol: "BTCUSDT", Signal: model.SignalBuy, Confidence: 72})
	c.Put(model.PredictionData{Symbol: "ETHUSDT", Signal: model.SignalSell, Confidence: 61})

	got, ok := c.Get("BTCUSDT")
	if !ok || got.Signal != model.SignalBuy || got.Confidence != 72 {
		t.Errorf("latest write must win: %+v", got)
	}

	all := c.All()
	if len(all) != 2 {
		t.Fatalf("All: got %d symbols, want 2", len(all))
	}
	// Snapshot, not a live view.
	delete(all, "BTCUSDT")
	if _, ok := c.Get("BTCUSDT"); !ok {
		t.Error("mutating the snapshot must not touch the cache")
	}
}
