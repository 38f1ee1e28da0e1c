// Package predictor turns one indicator bundle plus a sentiment snapshot
// into a directional prediction. The model is a fixed linear weighting of
// indicator and sentiment signals, deliberately synthetic: there is no
// trained estimator behind it, only deterministic arithmetic, so identical
// inputs always produce identical predictions.
package predictor

import (
	"log/slog"
	"sync"
	"time"

	"prediction-systemv1/internal/model"
)

// Probability caps and confidence/risk bounds.
const (
	probabilityCap = 95
	confidenceMin  = 30
	confidenceMax  = 95
	riskMin        = 10
	riskMax        = 90
)

// Predictor scores symbols with a reloadable weight set. Safe for concurrent
// use; Reload swaps weights atomically between evaluations.
type Predictor struct {
	mu  sync.RWMutex
	w   Weights
	log *slog.Logger
}

// New builds a Predictor around a validated weight set.
func New(w Weights, log *slog.Logger) *Predictor {
	return &Predictor{w: w, log: log}
}

// Reload replaces the active weights. The caller validates first.
func (p *Predictor) Reload(w Weights) {
	p.mu.Lock()
	p.w = w
	p.mu.Unlock()
}

// Weights returns a copy of the active weight set.
func (p *Predictor) Weights() Weights {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.w
}

// NeutralPrediction is the fallback when scoring cannot complete: an even
// probability split, middling confidence, HOLD.
func NeutralPrediction(symbol, timeframe, modelVersion string) model.PredictionData {
	return model.PredictionData{
		Symbol:             symbol,
		BullishProbability: 33.33,
		BearishProbability: 33.33,
		NeutralProbability: 33.34,
		Confidence:         50,
		Signal:             model.SignalHold,
		RiskScore:          50,
		PriceTarget:        model.PriceTarget{Short: 1, Medium: 1, Long: 1},
		Timeframe:          timeframe,
		Timestamp:          time.Now().UTC(),
		ModelVersion:       modelVersion,
	}
}

// Predict scores one symbol from its close-price history, indicator bundle,
// and sentiment snapshot. It never returns an error and never panics: any
// internal failure degrades to NeutralPrediction.
func (p *Predictor) Predict(symbol string, prices []float64, ind model.TechnicalIndicators, sent model.SentimentData) (pred model.PredictionData) {
	w := p.Weights()

	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Error("prediction scoring panicked, using neutral fallback",
					"symbol", symbol, "panic", r)
			}
			pred = NeutralPrediction(symbol, w.Timeframe, w.ModelVersion)
		}
	}()

	technical := technicalScore(ind)
	momentum := momentumScore(prices)
	volatility := volatilityScore(prices)
	composite := compositeScore(w.Composite, technical, sent.OverallScore, momentum, volatility)

	lastPrice := 0.0
	if len(prices) > 0 {
		lastPrice = prices[len(prices)-1]
	}

	bull, bear, neutral := probabilities(composite, lastPrice, ind)
	signal := determineSignal(bull, bear, ind)
	conf := confidence(w.Confidence, ind, sent, prices, volatility)

	return model.PredictionData{
		Symbol:             symbol,
		BullishProbability: bull,
		BearishProbability: bear,
		NeutralProbability: neutral,
		Confidence:         conf,
		Signal:             signal,
		RiskScore:          riskScore(ind, volatility),
		PriceTarget:        priceTargets(lastPrice, signal, conf),
		Timeframe:          w.Timeframe,
		Timestamp:          time.Now().UTC(),
		ModelVersion:       w.ModelVersion,
	}
}

// probabilities derives the bull/bear/neutral split from the composite
// score. Directional add-ons are capped at 95 each; when the caps push the
// pair past 100 the remainder would go negative, so neutral clamps to 0 and
// bull/bear renormalize proportionally to keep the sum at 100.
func probabilities(composite, lastPrice float64, ind model.TechnicalIndicators) (bull, bear, neutral float64) {
	bull = composite
	if ind.RSI.RSI < 30 {
		bull += 15
	}
	if ind.MACD.Histogram > 0 && ind.MACD.MACD > ind.MACD.Signal {
		bull += 10
	}
	if lastPrice > ind.SMA50 && lastPrice > ind.SMA200 {
		bull += 10
	}
	bull = clamp(bull, 0, probabilityCap)

	bear = 100 - composite
	if ind.RSI.RSI > 70 {
		bear += 15
	}
	if ind.MACD.Histogram < 0 && ind.MACD.MACD < ind.MACD.Signal {
		bear += 10
	}
	if lastPrice < ind.SMA50 && lastPrice < ind.SMA200 {
		bear += 10
	}
	bear = clamp(bear, 0, probabilityCap)

	if total := bull + bear; total > 100 {
		bull = bull / total * 100
		bear = bear / total * 100
	}
	bull = round2(bull)
	bear = round2(bear)
	neutral = round2(100 - bull - bear)
	return bull, bear, neutral
}

// determineSignal applies the signal rules in priority order; the first
// match wins.
func determineSignal(bull, bear float64, ind model.TechnicalIndicators) model.Signal {
	switch {
	case bull > 75 && ind.RSI.RSI < 40:
		return model.SignalBuy
	case bull > 65 && ind.MACD.Trend == model.TrendBullish:
		return model.SignalBuy
	case bear > 75 && ind.RSI.RSI > 60:
		return model.SignalSell
	case bear > 65 && ind.MACD.Trend == model.TrendBearish:
		return model.SignalSell
	default:
		return model.SignalHold
	}
}
