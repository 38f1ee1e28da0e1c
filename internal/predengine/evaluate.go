package predengine

import (
	"context"
	"time"

	"prediction-systemv1/internal/indicator"
	"prediction-systemv1/internal/logger"
	"prediction-systemv1/internal/model"
	"prediction-systemv1/internal/notification"
)

// evaluateSymbol runs one full evaluation for a symbol: compute the
// indicator bundle from the window snapshot, fetch the latest sentiment,
// score the prediction, then persist and alert.
func (svc *Service) evaluateSymbol(ctx context.Context, symbol string) {
	w, ok := svc.windows[symbol]
	if !ok || w.Len() == 0 {
		return // nothing consumed yet
	}

	start := time.Now()
	ctx = logger.WithTraceID(ctx, logger.EvalTraceID(symbol, start))

	candles := w.Snapshot()
	prices := model.Closes(candles)

	indStart := time.Now()
	ind := indicator.Compute(symbol, candles)
	svc.prom.IndicatorDur.Observe(time.Since(indStart).Seconds())

	sent := svc.redisReader.GetSentiment(ctx, symbol)
	pred := svc.pred.Predict(symbol, prices, ind, sent)

	svc.cache.Put(pred)
	svc.prom.EvaluationsTotal.WithLabelValues(symbol).Inc()
	svc.prom.PredictionsTotal.WithLabelValues(string(pred.Signal)).Inc()

	writeStart := time.Now()
	if err := svc.buffered.WriteEvaluation(ind, pred); err != nil {
		svc.log.Warn("evaluation write", "symbol", symbol, "err", err, logger.TraceAttr(ctx))
	}
	svc.prom.RedisWriteDur.Observe(time.Since(writeStart).Seconds())

	// Hand off to the SQLite batch writer without blocking the cycle.
	select {
	case svc.predCh <- pred:
	default:
		svc.log.Warn("prediction persistence channel full, dropping", "symbol", symbol, logger.TraceAttr(ctx))
	}

	svc.notifyIfSignalChanged(ctx, pred)
	svc.prom.EvaluationDur.Observe(time.Since(start).Seconds())
}

// notifyIfSignalChanged fires an alert when a symbol's signal flips between
// consecutive evaluations. The first evaluation seeds the state silently.
func (svc *Service) notifyIfSignalChanged(ctx context.Context, pred model.PredictionData) {
	svc.mu.Lock()
	prev, seen := svc.lastSignals[pred.Symbol]
	svc.lastSignals[pred.Symbol] = pred.Signal
	svc.mu.Unlock()

	if !seen || prev == pred.Signal {
		return
	}

	svc.prom.SignalChangesTotal.WithLabelValues(pred.Symbol).Inc()

	alert := notification.SignalChangeAlert(prev, pred)
	notifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := svc.notifier.Send(notifyCtx, alert); err != nil {
		svc.log.Warn("signal alert delivery", "symbol", pred.Symbol, "err", err)
	}
}
