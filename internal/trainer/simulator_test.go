package trainer

import (
	"math"
	"testing"

	"prediction-systemv1/internal/model"
)

func TestStep_LossDecaysDespiteNoise(t *testing.T) {
	// Decay dominates the ±0.05 noise: worst case at epoch 0 is
	// 0.5−0.05 = 0.45, best case at epoch 200 is 0.5·e^-2 + 0.05 ≈ 0.118.
	s := NewSimulator(42)

	first := s.Step()
	var last float64
	for i := 0; i < 200; i++ {
		last = s.Step().Loss
	}

	if first.Loss <= last {
		t.Errorf("loss must trend down: epoch 0 %.4f vs epoch 200 %.4f", first.Loss, last)
	}
}

func TestStep_DerivedMetricsConsistent(t *testing.T) {
	s := NewSimulator(7)
	m := s.Step()

	if m.Epoch != 0 {
		t.Errorf("first epoch: got %d, want 0", m.Epoch)
	}
	if m.Loss < 0 {
		t.Errorf("loss must be non-negative, got %.4f", m.Loss)
	}
	if math.Abs(m.MSE-m.Loss*1.5) > 1e-12 || math.Abs(m.MAE-m.Loss*0.8) > 1e-12 {
		t.Error("mse/mae must be fixed multiples of loss")
	}
	if math.Abs(m.ValidationLoss-m.Loss*1.1) > 1e-12 {
		t.Error("validation loss must be a fixed multiple of loss")
	}

	// F1 is the harmonic mean of precision and recall.
	wantF1 := 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	if math.Abs(m.F1Score-wantF1) > 1e-12 {
		t.Errorf("f1: got %.6f, want %.6f", m.F1Score, wantF1)
	}

	for label, v := range map[string]float64{
		"r2":        m.R2Score,
		"accuracy":  m.Accuracy,
		"precision": m.Precision,
		"recall":    m.Recall,
		"f1":        m.F1Score,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s %.4f outside [0,1]", label, v)
		}
	}
	if m.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}
}

func TestStep_ClassificationMetricsSaturate(t *testing.T) {
	s := NewSimulator(1)
	early := s.Step()
	var late model.TrainingMetrics
	for i := 0; i < 400; i++ {
		late = s.Step()
	}

	if late.Accuracy <= early.Accuracy || late.Precision <= early.Precision || late.Recall <= early.Recall {
		t.Error("classification curves must rise with epochs")
	}
	if late.Accuracy > 0.95 || late.Precision > 0.92 || late.Recall > 0.90 {
		t.Errorf("curves must stay under their ceilings: acc=%.4f prec=%.4f rec=%.4f",
			late.Accuracy, late.Precision, late.Recall)
	}
	if late.LearningRate >= early.LearningRate {
		t.Error("learning rate schedule must decay")
	}
}

func TestHistory_CappedFIFO(t *testing.T) {
	s := NewSimulator(3)
	for i := 0; i < 150; i++ {
		s.Step()
	}

	h := s.History()
	if len(h) != 100 {
		t.Fatalf("history length: got %d, want 100", len(h))
	}
	// Oldest 50 evicted: retained range is epochs 50..149.
	if h[0].Epoch != 50 || h[len(h)-1].Epoch != 149 {
		t.Errorf("retained epoch range: got [%d,%d], want [50,149]", h[0].Epoch, h[len(h)-1].Epoch)
	}

	latest, ok := s.Latest()
	if !ok || latest.Epoch != 149 {
		t.Errorf("latest: got epoch %d, want 149", latest.Epoch)
	}
	if s.Epoch() != 150 {
		t.Errorf("next epoch: got %d, want 150", s.Epoch())
	}
}

func TestHistory_SnapshotIsolation(t *testing.T) {
	s := NewSimulator(9)
	s.Step()
	h := s.History()
	h[0].Loss = -1
	if got, _ := s.Latest(); got.Loss == -1 {
		t.Error("mutating the snapshot must not touch internal history")
	}
}

func TestSimulator_DeterministicForSeed(t *testing.T) {
	a, b := NewSimulator(123), NewSimulator(123)
	for i := 0; i < 10; i++ {
		ma, mb := a.Step(), b.Step()
		ma.Timestamp = mb.Timestamp
		if ma != mb {
			t.Fatalf("same seed must give identical sequences at epoch %d", i)
		}
	}
}
