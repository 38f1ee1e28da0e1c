package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"prediction-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: predictions and indicator bundles arrive once per
	// evaluation tick, so a few thousand entries cover days of history.
	predStreamMaxLen = 2000
	indStreamMaxLen  = 2000
	defaultLatestTTL = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes predictions, indicator bundles, and training metrics to
// Redis: XADD for history, SET for the latest snapshot, PUBLISH for
// real-time subscribers.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// WritePrediction performs the pipelined XADD + SET latest + PUBLISH for one
// prediction.
func (w *Writer) WritePrediction(ctx context.Context, pred *model.PredictionData) error {
	jsonData := string(pred.JSON())

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: pred.StreamKey(),
		MaxLen: predStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, "pred:latest:"+pred.Symbol, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, pred.PubSubChannel(), jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("prediction pipeline for %s: %w", pred.Symbol, err)
	}
	return nil
}

// WriteIndicators performs the pipelined XADD + SET latest + PUBLISH for one
// indicator bundle.
func (w *Writer) WriteIndicators(ctx context.Context, ind *model.TechnicalIndicators) error {
	jsonData := string(ind.JSON())

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: ind.StreamKey(),
		MaxLen: indStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, "ind:latest:"+ind.Symbol, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, ind.PubSubChannel(), jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("indicator pipeline for %s: %w", ind.Symbol, err)
	}
	return nil
}

// WriteEvaluationBatch writes one evaluation tick's indicator bundle and
// prediction for a symbol in a single network roundtrip.
func (w *Writer) WriteEvaluationBatch(ctx context.Context, ind *model.TechnicalIndicators, pred *model.PredictionData) error {
	indJSON := string(ind.JSON())
	predJSON := string(pred.JSON())

	pipe := w.client.Pipeline()

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: ind.StreamKey(),
		MaxLen: indStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": indJSON},
	})
	pipe.Set(ctx, "ind:latest:"+ind.Symbol, indJSON, defaultLatestTTL)
	pipe.Publish(ctx, ind.PubSubChannel(), indJSON)

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: pred.StreamKey(),
		MaxLen: predStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": predJSON},
	})
	pipe.Set(ctx, "pred:latest:"+pred.Symbol, predJSON, defaultLatestTTL)
	pipe.Publish(ctx, pred.PubSubChannel(), predJSON)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("evaluation pipeline for %s: %w", pred.Symbol, err)
	}
	return nil
}

// PublishTraining publishes one training-metrics record. Training updates
// are ephemeral display data: PUBLISH only, no stream history in Redis.
func (w *Writer) PublishTraining(ctx context.Context, m *model.TrainingMetrics) error {
	return w.client.Publish(ctx, m.PubSubChannel(), string(m.JSON())).Err()
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
