// Package predengine wires the prediction engine microservice: it consumes
// candles from Redis Streams into per-symbol rolling windows, evaluates the
// indicator and scoring pipeline on a timer, persists results to Redis and
// SQLite, and publishes real-time updates for downstream subscribers.
package predengine

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"prediction-systemv1/internal/metrics"
	"prediction-systemv1/internal/model"
	"prediction-systemv1/internal/notification"
	"prediction-systemv1/internal/predictor"
	redisstore "prediction-systemv1/internal/store/redis"
	sqlitestore "prediction-systemv1/internal/store/sqlite"
	"prediction-systemv1/internal/trainer"
	"prediction-systemv1/internal/window"
)

// Service is the top-level orchestrator for the prediction engine.
// It wires all dependencies, manages lifecycle, and coordinates goroutines.
type Service struct {
	cfg Config
	log *slog.Logger

	pred  *predictor.Predictor
	cache *predictor.Cache
	sim   *trainer.Simulator

	windows map[string]*window.Window

	redisReader *redisstore.Reader
	redisWriter *redisstore.Writer
	buffered    *redisstore.BufferedWriter
	breaker     *redisstore.CircuitBreaker
	sqlReader   *sqlitestore.Reader
	sqlWriter   *sqlitestore.Writer

	prom   *metrics.Metrics
	health *metrics.HealthStatus

	notifier notification.Notifier

	streams  []string
	candleCh chan model.Candle
	predCh   chan model.PredictionData

	mu          sync.Mutex
	lastSignals map[string]model.Signal
}

// New creates a new Service from the given Config.
// It connects to Redis and SQLite and loads the scoring weights.
func New(cfg Config, logger *slog.Logger) (*Service, error) {
	weights, err := predictor.Load(cfg.WeightsPath)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		cfg:         cfg,
		log:         logger,
		cache:       predictor.NewCache(),
		sim:         trainer.NewSimulator(cfg.TrainSeed),
		windows:     make(map[string]*window.Window, len(cfg.Symbols)),
		prom:        metrics.NewMetrics(),
		health:      metrics.NewHealthStatus(),
		candleCh:    make(chan model.Candle, 5000),
		predCh:      make(chan model.PredictionData, 1000),
		lastSignals: make(map[string]model.Signal, len(cfg.Symbols)),
	}
	svc.pred = predictor.New(weights, logger)

	for _, sym := range cfg.Symbols {
		svc.windows[sym] = window.New(cfg.WindowSize)
	}
	svc.health.SetSymbols(cfg.Symbols)

	if cfg.WebhookURL != "" {
		svc.notifier = notification.NewWebhookNotifier(cfg.WebhookURL)
	} else {
		svc.notifier = notification.NewLogNotifier()
	}

	// ---- Connect to Redis ----
	svc.redisReader, err = redisstore.NewReader(redisstore.ReaderConfig{
		Addr:          cfg.RedisAddr,
		Password:      cfg.RedisPassword,
		ConsumerGroup: cfg.ConsumerGroup,
		ConsumerName:  cfg.ConsumerName,
	})
	if err != nil {
		return nil, err
	}

	svc.redisWriter, err = redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		svc.redisReader.Close()
		return nil, err
	}

	// ---- Open SQLite ----
	os.MkdirAll("data", 0o755)
	svc.sqlWriter, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		logger.Warn("sqlite writer init failed, predictions will not be persisted", "err", err)
	}
	svc.sqlReader, err = sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		logger.Warn("sqlite reader init failed", "err", err)
	}

	svc.streams = cfg.CandleStreams()
	return svc, nil
}

// Run starts all subsystems and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	cfg := svc.cfg
	svc.log.Info("starting prediction engine",
		"symbols", cfg.Symbols, "evalIntervalSec", cfg.EvalIntervalS)

	// ---- Wire circuit breaker around the Redis write path ----
	svc.breaker = redisstore.NewCircuitBreaker(cfg.CBMaxFailures, time.Duration(cfg.CBResetSec)*time.Second)
	svc.breaker.OnStateChange = func(from, to redisstore.State) {
		svc.prom.RedisCircuitBreakerState.Set(float64(to))
		if to == redisstore.StateOpen {
			svc.prom.RedisCircuitBreakerTrips.Inc()
		}
		svc.log.Warn("redis circuit breaker state change", "from", from.String(), "to", to.String())
	}
	svc.buffered = redisstore.NewBufferedWriter(ctx, svc.redisWriter, svc.breaker, 10000)
	svc.buffered.OnBuffer = func() { svc.prom.RedisBufferedWrites.Inc() }
	svc.buffered.OnFlush = func(count int) {
		svc.log.Info("flushed buffered redis writes", "count", count)
	}

	// ---- Warm state from persistence ----
	svc.warmCache()
	svc.backfillWindows(ctx)

	// ---- Ensure consumer groups, recover unacked messages ----
	if err := svc.redisReader.EnsureConsumerGroup(ctx, svc.streams); err != nil {
		svc.log.Warn("consumer group setup", "err", err)
	}
	if err := svc.redisReader.RecoverPending(ctx, svc.streams, svc.candleCh); err != nil {
		svc.log.Warn("pending recovery", "err", err)
	}

	// ---- Start subsystems ----
	go svc.redisReader.StartPELReclaimer(ctx, svc.streams,
		time.Duration(cfg.PELIntervalS)*time.Second, cfg.PELMinIdleMs, svc.candleCh,
		func(count int) {
			svc.prom.PELMessagesReclaimed.Add(float64(count))
		})

	go func() {
		if err := svc.redisReader.ConsumeCandles(ctx, svc.streams, svc.candleCh); err != nil && ctx.Err() == nil {
			svc.log.Error("candle consumer stopped", "err", err)
		}
	}()

	go svc.consumeLoop(ctx)
	go svc.evalLoop(ctx)
	go svc.trainLoop(ctx)

	if svc.sqlWriter != nil {
		svc.sqlWriter.OnCommit = func(d time.Duration) {
			svc.prom.SQLiteCommitDur.Observe(d.Seconds())
		}
		go svc.sqlWriter.Run(ctx, svc.predCh)
	}

	svc.startHTTP(ctx)

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, svc.health)
	metricsSrv.Start()
	if svc.sqlWriter != nil {
		svc.health.StartLivenessChecker(ctx, svc.redisWriter.Client(), svc.sqlWriter.DB(), 10*time.Second)
	} else {
		svc.health.StartLivenessChecker(ctx, svc.redisWriter.Client(), nil, 10*time.Second)
	}

	log.Println("[predengine] ╔════════════════════════════════════════════════════════╗")
	log.Println("[predengine] ║  Prediction Engine Active                              ║")
	log.Println("[predengine] ║                                                        ║")
	log.Println("[predengine] ║  [Redis Streams] → [Indicators] → [Scoring] → [Publish]║")
	log.Printf("[predengine] ║  Evaluation every %ds, training every %ds              ║", cfg.EvalIntervalS, cfg.TrainIntervalS)
	log.Println("[predengine] ╚════════════════════════════════════════════════════════╝")

	// Block until context cancelled
	<-ctx.Done()

	svc.shutdown(metricsSrv)
	return nil
}

// warmCache seeds the prediction cache with the last persisted prediction
// per symbol so the HTTP API serves data before the first evaluation.
func (svc *Service) warmCache() {
	if svc.sqlReader == nil {
		return
	}
	warmed := 0
	for _, sym := range svc.cfg.Symbols {
		p, err := svc.sqlReader.ReadLatestPrediction(sym)
		if err != nil {
			svc.log.Warn("cache warm read", "symbol", sym, "err", err)
			continue
		}
		if p != nil {
			svc.cache.Put(*p)
			warmed++
		}
	}
	if warmed > 0 {
		svc.log.Info("warmed prediction cache from sqlite", "symbols", warmed)
	}
}

// backfillWindows replays historical candles from Redis streams into the
// per-symbol windows so the first evaluation starts warm.
func (svc *Service) backfillWindows(ctx context.Context) {
	backfillCh := make(chan model.Candle, 5000)
	go func() {
		for _, stream := range svc.streams {
			if _, err := svc.redisReader.ReplayFromID(ctx, stream, "0", backfillCh); err != nil {
				svc.log.Warn("backfill replay", "stream", stream, "err", err)
			}
		}
		close(backfillCh)
	}()

	count := 0
	for c := range backfillCh {
		if w, ok := svc.windows[c.Symbol]; ok && w.Append(c) {
			count++
		}
	}
	svc.log.Info("backfilled candle windows", "candles", count)
}

// consumeLoop moves candles from the consumer channel into their symbol's
// rolling window.
func (svc *Service) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-svc.candleCh:
			if !ok {
				return
			}
			svc.prom.CandlesConsumed.Inc()
			w, ok := svc.windows[c.Symbol]
			if !ok {
				continue // not a tracked symbol
			}
			if !w.Append(c) {
				svc.prom.StaleCandles.Inc()
				continue
			}
			svc.health.SetLastCandleTime(c.TS)
		}
	}
}

// evalLoop runs the full evaluation cycle for every symbol on a fixed
// interval: indicators, sentiment, prediction, persistence, alerting.
func (svc *Service) evalLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(svc.cfg.EvalIntervalS) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sym := range svc.cfg.Symbols {
				svc.evaluateSymbol(ctx, sym)
			}
		}
	}
}

// trainLoop advances the synthetic training simulator and publishes each
// epoch's metrics.
func (svc *Service) trainLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(svc.cfg.TrainIntervalS) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := svc.sim.Step()
			svc.prom.TrainingEpochsTotal.Inc()

			if err := svc.buffered.PublishTraining(m); err != nil {
				svc.log.Warn("training publish", "epoch", m.Epoch, "err", err)
			}
			if svc.sqlWriter != nil {
				if err := svc.sqlWriter.SaveTrainingMetrics(&m); err != nil {
					svc.log.Warn("training persist", "epoch", m.Epoch, "err", err)
				}
			}
		}
	}
}

// shutdown closes connections in dependency order.
func (svc *Service) shutdown(metricsSrv *metrics.Server) {
	svc.log.Info("shutdown signal received")

	shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	metricsSrv.Stop(shutCtx)

	// predCh stays open: evalLoop may still be mid-evaluation and the
	// sqlite writer drains and flushes on ctx cancellation.
	if svc.sqlReader != nil {
		svc.sqlReader.Close()
	}
	if svc.sqlWriter != nil {
		svc.sqlWriter.Close()
	}
	svc.redisWriter.Close()
	svc.redisReader.Close()

	svc.log.Info("shutdown complete")
}
