// Package trainer generates synthetic training metrics for the progress
// display. This is a simulation, not a learning process: every value comes
// from a closed-form decay or saturation curve plus bounded noise, there is
// no model and no gradient descent behind it.
package trainer

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"prediction-systemv1/internal/model"
)

// historyCap bounds the retained metric history; the oldest entry is
// evicted first.
const historyCap = 100

// Curve parameters. Loss decays from 0.5 toward 0 with a 100-epoch time
// constant; the classification metrics saturate from 0.5 toward their
// ceilings.
const (
	lossScale     = 0.5
	lossDecay     = 100.0
	noiseAmp      = 0.05
	baseLR        = 0.001
	lrDecay       = 200.0
	accuracyCeil  = 0.95
	precisionCeil = 0.92
	recallCeil    = 0.90
)

// Simulator produces one TrainingMetrics record per Step call and keeps a
// bounded history. Safe for concurrent use.
type Simulator struct {
	mu      sync.Mutex
	epoch   int
	rng     *rand.Rand
	history []model.TrainingMetrics
}

// NewSimulator builds a simulator with its own seeded noise source, so two
// simulators with the same seed emit identical sequences.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{
		rng:     rand.New(rand.NewSource(seed)),
		history: make([]model.TrainingMetrics, 0, historyCap),
	}
}

// Step advances one epoch and returns the generated metrics. The record is
// appended to the history, evicting the oldest entry past capacity.
func (s *Simulator) Step() model.TrainingMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	epoch := s.epoch
	s.epoch++

	noise := (s.rng.Float64()*2 - 1) * noiseAmp
	loss := math.Max(lossScale*math.Exp(-float64(epoch)/lossDecay)+noise, 0)

	precision := saturate(epoch, precisionCeil, 90)
	recall := saturate(epoch, recallCeil, 85)

	m := model.TrainingMetrics{
		Epoch:          epoch,
		Loss:           loss,
		MSE:            loss * 1.5,
		MAE:            loss * 0.8,
		R2Score:        clamp01(1 - loss*1.2),
		LearningRate:   baseLR * math.Exp(-float64(epoch)/lrDecay),
		GradientNorm:   loss * 2,
		ValidationLoss: loss * 1.1,
		Accuracy:       saturate(epoch, accuracyCeil, 80),
		Precision:      precision,
		Recall:         recall,
		F1Score:        f1(precision, recall),
		Timestamp:      time.Now().UTC(),
	}

	if len(s.history) == historyCap {
		s.history = s.history[1:]
	}
	s.history = append(s.history, m)

	return m
}

// History returns a snapshot copy of the retained metrics, oldest first.
func (s *Simulator) History() []model.TrainingMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TrainingMetrics, len(s.history))
	copy(out, s.history)
	return out
}

// Latest returns the most recent record, if any.
func (s *Simulator) Latest() (model.TrainingMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return model.TrainingMetrics{}, false
	}
	return s.history[len(s.history)-1], true
}

// Epoch returns the next epoch index to be generated.
func (s *Simulator) Epoch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// saturate rises from 0.5 toward ceil with the given epoch time constant.
func saturate(epoch int, ceil, tau float64) float64 {
	return 0.5 + (ceil-0.5)*(1-math.Exp(-float64(epoch)/tau))
}

// f1 is the harmonic mean of precision and recall.
func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
