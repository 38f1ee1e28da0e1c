package predictor

import (
	"fmt"
	"math"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// CompositeWeights blend the four sub-scores into the composite score.
// They must sum to 1.
type CompositeWeights struct {
	Technical  float64 `yaml:"technical" json:"technical" default:"0.4" validate:"gte=0,lte=1"`
	Sentiment  float64 `yaml:"sentiment" json:"sentiment" default:"0.25" validate:"gte=0,lte=1"`
	Momentum   float64 `yaml:"momentum" json:"momentum" default:"0.2" validate:"gte=0,lte=1"`
	Volatility float64 `yaml:"volatility" json:"volatility" default:"0.15" validate:"gte=0,lte=1"`
}

// ConfidenceWeights blend the confidence components added on top of the
// base of 50.
type ConfidenceWeights struct {
	Agreement        float64 `yaml:"agreement" json:"agreement" default:"0.3" validate:"gte=0,lte=1"`
	Sentiment        float64 `yaml:"sentiment" json:"sentiment" default:"0.2" validate:"gte=0,lte=1"`
	TrendConsistency float64 `yaml:"trend_consistency" json:"trend_consistency" default:"0.2" validate:"gte=0,lte=1"`
	Volatility       float64 `yaml:"volatility" json:"volatility" default:"0.1" validate:"gte=0,lte=1"`
}

// Weights is the operator-tunable scoring configuration. The zero value is
// not usable; build one with DefaultWeights or Load. Compiled-in defaults
// reproduce the standard scoring model exactly, so a missing weights file is
// not an error.
type Weights struct {
	Composite    CompositeWeights  `yaml:"composite" json:"composite"`
	Confidence   ConfidenceWeights `yaml:"confidence" json:"confidence"`
	Timeframe    string            `yaml:"timeframe" json:"timeframe" default:"24h" validate:"required"`
	ModelVersion string            `yaml:"model_version" json:"model_version" default:"synthetic-v1.0" validate:"required"`
}

// DefaultWeights returns the compiled-in scoring weights.
func DefaultWeights() Weights {
	var w Weights
	// Tags are static literals, Set cannot fail here.
	_ = defaults.Set(&w)
	return w
}

// Load reads a weights file, fills unset fields from defaults, and validates
// the result. An empty path returns the defaults.
func Load(path string) (Weights, error) {
	if path == "" {
		return DefaultWeights(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read weights: %w", err)
	}

	var w Weights
	if err := yaml.Unmarshal(b, &w); err != nil {
		return Weights{}, fmt.Errorf("parse weights: %w", err)
	}
	if err := defaults.Set(&w); err != nil {
		return Weights{}, fmt.Errorf("apply weight defaults: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, fmt.Errorf("validate weights: %w", err)
	}
	return w, nil
}

// Validate checks field constraints plus the composite-sum invariant.
func (w *Weights) Validate() error {
	if err := validate.Struct(w); err != nil {
		return err
	}
	sum := w.Composite.Technical + w.Composite.Sentiment + w.Composite.Momentum + w.Composite.Volatility
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("composite weights must sum to 1, got %.4f", sum)
	}
	return nil
}
