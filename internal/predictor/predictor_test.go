package predictor

import (
	"encoding/json"
	"math"
	"testing"

	"prediction-systemv1/internal/indicator"
	"prediction-systemv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

// neutralIndicators: every reading dead-center, no directional signal.
func neutralIndicators() model.TechnicalIndicators {
	return model.TechnicalIndicators{
		Symbol:     "BTCUSDT",
		RSI:        model.RSIResult{RSI: 50, Trend: model.TrendNeutral},
		MACD:       model.MACDResult{Trend: model.TrendNeutral},
		Bollinger:  model.BollingerBands{PercentB: 0.5},
		Stochastic: model.StochasticResult{K: 50, D: 50, Trend: model.TrendNeutral},
		WilliamsR:  model.WilliamsRResult{Value: -50, Trend: model.TrendNeutral},
	}
}

func flatPrices(n int, v float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = v
	}
	return prices
}

// ────────────────────────────────────────────────────────────
// Weights
// ────────────────────────────────────────────────────────────

func TestDefaultWeights_StandardModel(t *testing.T) {
	w := DefaultWeights()
	assertClose(t, "composite.technical", w.Composite.Technical, 0.4, 0.0001)
	assertClose(t, "composite.sentiment", w.Composite.Sentiment, 0.25, 0.0001)
	assertClose(t, "composite.momentum", w.Composite.Momentum, 0.2, 0.0001)
	assertClose(t, "composite.volatility", w.Composite.Volatility, 0.15, 0.0001)
	assertClose(t, "confidence.agreement", w.Confidence.Agreement, 0.3, 0.0001)
	assertClose(t, "confidence.sentiment", w.Confidence.Sentiment, 0.2, 0.0001)
	assertClose(t, "confidence.trend", w.Confidence.TrendConsistency, 0.2, 0.0001)
	assertClose(t, "confidence.volatility", w.Confidence.Volatility, 0.1, 0.0001)
	if w.Timeframe != "24h" {
		t.Errorf("timeframe: got %q, want 24h", w.Timeframe)
	}
	if w.ModelVersion == "" {
		t.Error("model version must not be empty")
	}
	if err := w.Validate(); err != nil {
		t.Errorf("default weights must validate: %v", err)
	}
}

func TestLoad_EmptyPath_ReturnsDefaults(t *testing.T) {
	w, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if w != DefaultWeights() {
		t.Error("empty path should return the compiled-in defaults")
	}
}

func TestWeightsValidate_RejectsBadCompositeSum(t *testing.T) {
	w := DefaultWeights()
	w.Composite.Technical = 0.9 // sum now 1.5
	if err := w.Validate(); err == nil {
		t.Error("composite weights summing to 1.5 must fail validation")
	}
}

func TestWeights_JSONBodyOverridesDefaults(t *testing.T) {
	// The reload endpoint decodes a JSON body over DefaultWeights, so a
	// partial document must override exactly the named fields. The snake_case
	// keys mirror the YAML weights file.
	body := `{"confidence":{"trend_consistency":0.35},"timeframe":"4h"}`

	w := DefaultWeights()
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		t.Fatalf("unmarshal weights body: %v", err)
	}

	assertClose(t, "overridden trend_consistency", w.Confidence.TrendConsistency, 0.35, 0.0001)
	if w.Timeframe != "4h" {
		t.Errorf("timeframe: got %q, want 4h", w.Timeframe)
	}
	// Untouched fields keep their defaults.
	assertClose(t, "composite.technical", w.Composite.Technical, 0.4, 0.0001)
	assertClose(t, "confidence.agreement", w.Confidence.Agreement, 0.3, 0.0001)
	if w.ModelVersion != DefaultWeights().ModelVersion {
		t.Errorf("model version changed unexpectedly: %q", w.ModelVersion)
	}
	if err := w.Validate(); err != nil {
		t.Errorf("overridden weights must validate: %v", err)
	}
}

// ────────────────────────────────────────────────────────────
// Sub-scores
// ────────────────────────────────────────────────────────────

func TestTechnicalScore_AllBullish_ClampsAt100(t *testing.T) {
	// RSI 25 (+20), MACD bullish (+15), SMA20>SMA50 (+10), SMA50>SMA200 (+5),
	// percentB 0.1 (+10), stochastic oversold (+10) → 50+70 → clamp 100.
	ind := model.TechnicalIndicators{
		RSI:        model.RSIResult{RSI: 25, Trend: model.TrendOversold},
		MACD:       model.MACDResult{Histogram: 1, Trend: model.TrendBullish},
		SMA20:      110, SMA50: 105, SMA200: 100,
		Bollinger:  model.BollingerBands{PercentB: 0.1},
		Stochastic: model.StochasticResult{K: 10, D: 12, Trend: model.TrendOversold},
	}
	assertClose(t, "all-bullish technical", technicalScore(ind), 100, 0.0001)
}

func TestTechnicalScore_AllBearish_ClampsAt0(t *testing.T) {
	ind := model.TechnicalIndicators{
		RSI:        model.RSIResult{RSI: 80, Trend: model.TrendOverbought},
		MACD:       model.MACDResult{Histogram: -1, Trend: model.TrendBearish},
		SMA20:      90, SMA50: 95, SMA200: 100,
		Bollinger:  model.BollingerBands{PercentB: 0.9},
		Stochastic: model.StochasticResult{K: 90, D: 88, Trend: model.TrendOverbought},
	}
	assertClose(t, "all-bearish technical", technicalScore(ind), 0, 0.0001)
}

func TestTechnicalScore_MixedHandCalc(t *testing.T) {
	// RSI 50 in [40,60] (+5), MACD neutral (0), SMA20<SMA50 (-10),
	// SMA50<SMA200 (-5), percentB 0.5 (0), stochastic neutral (0) → 40.
	ind := neutralIndicators()
	ind.SMA20, ind.SMA50, ind.SMA200 = 95, 100, 105
	assertClose(t, "mixed technical", technicalScore(ind), 40, 0.0001)
}

func TestMomentumScore_HandCalc(t *testing.T) {
	// Prior 20 prices at 100, recent 20 at 105: +5% → 50 + 5·2 = 60.
	prices := append(flatPrices(20, 100), flatPrices(20, 105)...)
	assertClose(t, "momentum +5%", momentumScore(prices), 60, 0.0001)

	// Decline 105→100 is −4.7619% → 50 − 9.5238 = 40.4762.
	prices = append(flatPrices(20, 105), flatPrices(20, 100)...)
	assertClose(t, "momentum decline", momentumScore(prices), 40.47619, 0.001)
}

func TestMomentumScore_Clamps(t *testing.T) {
	// +100% move: 50 + 200 → clamp 100.
	up := append(flatPrices(20, 100), flatPrices(20, 200)...)
	assertClose(t, "momentum clamp high", momentumScore(up), 100, 0.0001)

	down := append(flatPrices(20, 200), flatPrices(20, 100)...)
	assertClose(t, "momentum clamp low", momentumScore(down), 0, 0.0001)
}

func TestMomentumScore_ShortSeries_Neutral(t *testing.T) {
	assertClose(t, "momentum short", momentumScore(flatPrices(39, 100)), 50, 0.0001)
}

func TestVolatilityScore_Bands(t *testing.T) {
	// Flat series → zero volatility → calm band 70.
	assertClose(t, "calm", volatilityScore(flatPrices(30, 100)), 70, 0.0001)

	// Alternating ±~18% swings annualize far past 0.5 → stressed band 30.
	wild := make([]float64, 30)
	for i := range wild {
		if i%2 == 0 {
			wild[i] = 100
		} else {
			wild[i] = 120
		}
	}
	assertClose(t, "wild", volatilityScore(wild), 30, 0.0001)

	// Too few prices → middle band.
	assertClose(t, "short", volatilityScore(flatPrices(10, 100)), 50, 0.0001)
}

func TestCompositeScore_HandCalc(t *testing.T) {
	// 0.4·60 + 0.25·50 + 0.2·50 + 0.15·70 = 24 + 12.5 + 10 + 10.5 = 57.
	got := compositeScore(DefaultWeights().Composite, 60, 50, 50, 70)
	assertClose(t, "composite", got, 57, 0.0001)
}

// ────────────────────────────────────────────────────────────
// Probabilities and signal
// ────────────────────────────────────────────────────────────

func TestProbabilities_SumTo100(t *testing.T) {
	inds := []model.TechnicalIndicators{
		neutralIndicators(),
		{RSI: model.RSIResult{RSI: 25}, MACD: model.MACDResult{MACD: 2, Signal: 1, Histogram: 1, Trend: model.TrendBullish}, SMA50: 90, SMA200: 80},
		{RSI: model.RSIResult{RSI: 85}, MACD: model.MACDResult{MACD: -2, Signal: -1, Histogram: -1, Trend: model.TrendBearish}, SMA50: 110, SMA200: 120},
	}
	for i, ind := range inds {
		for _, composite := range []float64{0, 25, 50, 75, 100} {
			bull, bear, neutral := probabilities(composite, 100, ind)
			sum := bull + bear + neutral
			if math.Abs(sum-100) > 0.02 {
				t.Errorf("case %d composite %.0f: probabilities sum %.4f, want 100", i, composite, sum)
			}
			for _, p := range []float64{bull, bear} {
				if p < 0 || p > probabilityCap {
					t.Errorf("case %d composite %.0f: probability %.2f outside [0,95]", i, composite, p)
				}
			}
			if neutral < 0 {
				t.Errorf("case %d composite %.0f: neutral %.2f below 0", i, composite, neutral)
			}
		}
	}
}

func TestProbabilities_CapThenRenormalize(t *testing.T) {
	// Composite 70 with every bullish add-on: 70+15+10+10 = 105 → cap 95.
	// Bear = 30. Pair sums to 125 → renormalize: bull 95/125·100 = 76,
	// bear 30/125·100 = 24, neutral clamps to 0.
	ind := model.TechnicalIndicators{
		RSI:  model.RSIResult{RSI: 25, Trend: model.TrendOversold},
		MACD: model.MACDResult{MACD: 2, Signal: 1, Histogram: 1, Trend: model.TrendBullish},
		SMA50: 90, SMA200: 80,
	}
	bull, bear, neutral := probabilities(70, 100, ind)
	assertClose(t, "renormalized bull", bull, 76, 0.01)
	assertClose(t, "renormalized bear", bear, 24, 0.01)
	assertClose(t, "clamped neutral", neutral, 0, 0.01)
}

func TestDetermineSignal_PriorityOrder(t *testing.T) {
	bullishMACD := neutralIndicators()
	bullishMACD.MACD.Trend = model.TrendBullish
	bearishMACD := neutralIndicators()
	bearishMACD.MACD.Trend = model.TrendBearish
	lowRSI := neutralIndicators()
	lowRSI.RSI.RSI = 35
	highRSI := neutralIndicators()
	highRSI.RSI.RSI = 65

	cases := []struct {
		name       string
		bull, bear float64
		ind        model.TechnicalIndicators
		want       model.Signal
	}{
		{"strong bull + low RSI", 80, 10, lowRSI, model.SignalBuy},
		{"bull + MACD bullish", 70, 20, bullishMACD, model.SignalBuy},
		{"strong bear + high RSI", 10, 80, highRSI, model.SignalSell},
		{"bear + MACD bearish", 20, 70, bearishMACD, model.SignalSell},
		{"bull without RSI confirmation", 80, 10, highRSI, model.SignalHold},
		{"bear without RSI confirmation", 10, 80, lowRSI, model.SignalHold},
		{"no edge", 50, 50, neutralIndicators(), model.SignalHold},
		{"buy outranks sell when both fire", 80, 80, lowRSI, model.SignalBuy},
	}
	for _, tc := range cases {
		if got := determineSignal(tc.bull, tc.bear, tc.ind); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Confidence and risk
// ────────────────────────────────────────────────────────────

func TestConfidence_NeutralHandCalc(t *testing.T) {
	// Agreement: only the Bollinger/RSI mid-range check passes → 33.
	// Trend consistency on a short series → 50. Volatility score 50.
	// 50 + 0.3·33 + 0.2·50 + 0.2·50 + 0.1·50 = 84.9
	got := confidence(DefaultWeights().Confidence, neutralIndicators(), model.NeutralSentiment(), flatPrices(5, 100), 50)
	assertClose(t, "neutral confidence", got, 84.9, 0.01)
}

func TestConfidence_Bounded(t *testing.T) {
	w := DefaultWeights().Confidence
	// Zero-everything sentiment still floors at 30.
	lo := confidence(w, model.TechnicalIndicators{SMA20: 90, SMA50: 100, SMA200: 95, RSI: model.RSIResult{RSI: 75}}, model.SentimentData{}, nil, 100)
	if lo < confidenceMin || lo > confidenceMax {
		t.Errorf("confidence %.2f outside [30,95]", lo)
	}
	// Max-everything caps at 95.
	prices := make([]float64, 10)
	for i := range prices {
		prices[i] = 100 + float64(i) // perfectly directional
	}
	ind := neutralIndicators()
	ind.SMA20, ind.SMA50, ind.SMA200 = 110, 105, 100
	hi := confidence(w, ind, model.SentimentData{Confidence: 100}, prices, 0)
	if hi < confidenceMin || hi > confidenceMax {
		t.Errorf("confidence %.2f outside [30,95]", hi)
	}
}

func TestTrendConsistency(t *testing.T) {
	// Perfect run: identical diffs → std 0 → ratio explodes → clamp 100.
	run := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assertClose(t, "clean run", trendConsistency(run), 100, 0.0001)

	// Pure chop: +1/-1 alternating → mean diff ≈ 0 → near 0.
	chop := []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101}
	if got := trendConsistency(chop); got > 10 {
		t.Errorf("choppy series should score near 0, got %.2f", got)
	}

	assertClose(t, "short series", trendConsistency([]float64{1, 2}), 50, 0.0001)
}

func TestRiskScore_HandCalc(t *testing.T) {
	// Neutral: 50 + 0.3·(100-50) = 65, no add-ons.
	assertClose(t, "neutral risk", riskScore(neutralIndicators(), 50), 65, 0.0001)

	// Everything stressed: 50 + 0.3·70 (vol 30) + 20 (RSI 15) + 15 (ATR 6 > 5%
	// of SMA20 100) + 10 (oversold RSI vs bearish MACD) = 116 → clamp 90.
	ind := model.TechnicalIndicators{
		RSI:   model.RSIResult{RSI: 15, Trend: model.TrendOversold},
		MACD:  model.MACDResult{Histogram: -1, Trend: model.TrendBearish},
		ATR:   6,
		SMA20: 100,
	}
	assertClose(t, "stressed risk", riskScore(ind, 30), 90, 0.0001)
}

func TestRiskScore_Bounded(t *testing.T) {
	for _, vol := range []float64{0, 30, 50, 70, 100} {
		r := riskScore(neutralIndicators(), vol)
		if r < riskMin || r > riskMax {
			t.Errorf("vol %.0f: risk %.2f outside [10,90]", vol, r)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Price targets
// ────────────────────────────────────────────────────────────

func TestPriceTargets_ConfidenceFifty_RawBases(t *testing.T) {
	pt := priceTargets(100, model.SignalBuy, 50)
	assertClose(t, "short", pt.Short, 102, 0.0001)
	assertClose(t, "medium", pt.Medium, 105, 0.0001)
	assertClose(t, "long", pt.Long, 110, 0.0001)

	hold := priceTargets(100, model.SignalHold, 50)
	assertClose(t, "hold short", hold.Short, 100, 0.0001)
	assertClose(t, "hold long", hold.Long, 100, 0.0001)
}

func TestPriceTargets_ConfidenceAdjustment(t *testing.T) {
	// Confidence 70 → offset 0.2:
	// short  100·(1.02 + 0.2·0.1) = 104
	// medium 100·(1.05 + 0.2·0.2) = 109
	// long   100·(1.10 + 0.2·0.3) = 116
	pt := priceTargets(100, model.SignalBuy, 70)
	assertClose(t, "short", pt.Short, 104, 0.0001)
	assertClose(t, "medium", pt.Medium, 109, 0.0001)
	assertClose(t, "long", pt.Long, 116, 0.0001)

	// SELL mirrors below the last price.
	sell := priceTargets(100, model.SignalSell, 70)
	assertClose(t, "sell short", sell.Short, 100, 0.0001) // 0.98 + 0.02
	assertClose(t, "sell medium", sell.Medium, 99, 0.0001)
	assertClose(t, "sell long", sell.Long, 96, 0.0001)
}

// ────────────────────────────────────────────────────────────
// Predict end-to-end
// ────────────────────────────────────────────────────────────

func TestPredict_NeutralInputs_BoundedHold(t *testing.T) {
	p := New(DefaultWeights(), nil)
	pred := p.Predict("BTCUSDT", flatPrices(60, 100), neutralIndicators(), model.NeutralSentiment())

	if pred.Symbol != "BTCUSDT" {
		t.Errorf("symbol: got %q", pred.Symbol)
	}
	if pred.Signal != model.SignalHold {
		t.Errorf("neutral inputs should HOLD, got %s", pred.Signal)
	}
	sum := pred.BullishProbability + pred.BearishProbability + pred.NeutralProbability
	assertClose(t, "probability sum", sum, 100, 0.02)
	if pred.Confidence < confidenceMin || pred.Confidence > confidenceMax {
		t.Errorf("confidence %.2f outside [30,95]", pred.Confidence)
	}
	if pred.RiskScore < riskMin || pred.RiskScore > riskMax {
		t.Errorf("risk %.2f outside [10,90]", pred.RiskScore)
	}
	if pred.Timeframe != "24h" || pred.ModelVersion == "" {
		t.Errorf("timeframe/version not stamped: %q %q", pred.Timeframe, pred.ModelVersion)
	}
	if pred.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}
	// HOLD keeps the base multiplier at 1; only the confidence nudge moves it.
	assertClose(t, "hold target short", pred.PriceTarget.Short, 100, 5)
}

func TestPredict_Deterministic(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/15)
	}
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{Symbol: "ETHUSDT", High: c + 1, Low: c - 1, Close: c}
	}
	ind := indicator.Compute("ETHUSDT", candles)
	sent := model.SentimentData{OverallScore: 62, Confidence: 71, Trend: model.TrendBullish}

	p := New(DefaultWeights(), nil)
	a := p.Predict("ETHUSDT", closes, ind, sent)
	b := p.Predict("ETHUSDT", closes, ind, sent)

	a.Timestamp = b.Timestamp
	if a != b {
		t.Error("identical inputs must yield identical predictions")
	}
}

func TestPredict_EmptyInputs_DoesNotPanic(t *testing.T) {
	p := New(DefaultWeights(), nil)
	pred := p.Predict("BTCUSDT", nil, model.TechnicalIndicators{}, model.SentimentData{})
	sum := pred.BullishProbability + pred.BearishProbability + pred.NeutralProbability
	assertClose(t, "probability sum", sum, 100, 0.02)
	if pred.Signal == "" {
		t.Error("signal must always be set")
	}
}

func TestNeutralPrediction_Values(t *testing.T) {
	pred := NeutralPrediction("BTCUSDT", "24h", "synthetic-v1.0")
	assertClose(t, "bullish", pred.BullishProbability, 33.33, 0.0001)
	assertClose(t, "bearish", pred.BearishProbability, 33.33, 0.0001)
	assertClose(t, "neutral", pred.NeutralProbability, 33.34, 0.0001)
	assertClose(t, "confidence", pred.Confidence, 50, 0.0001)
	if pred.Signal != model.SignalHold {
		t.Errorf("fallback signal: got %s, want HOLD", pred.Signal)
	}
}

func TestReload_SwapsWeights(t *testing.T) {
	p := New(DefaultWeights(), nil)
	w := DefaultWeights()
	w.Timeframe = "4h"
	p.Reload(w)
	if got := p.Weights().Timeframe; got != "4h" {
		t.Errorf("reloaded timeframe: got %q, want 4h", got)
	}
}
