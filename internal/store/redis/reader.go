package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"prediction-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	readBatch    = 128             // candles per XREADGROUP call
	readBlock    = 2 * time.Second // XREADGROUP block timeout
	replayPage   = 1000            // XRANGE page size for window backfill
	reclaimBatch = 50              // stale PEL entries claimed per sweep
)

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr          string
	Password      string
	DB            int
	ConsumerGroup string // consumer group name, e.g. "predengine"
	ConsumerName  string // unique consumer name, e.g. hostname
}

// Reader consumes candles from the per-symbol Redis streams via a consumer
// group and serves the latest sentiment snapshots.
type Reader struct {
	client        *goredis.Client
	consumerGroup string
	consumerName  string
}

// NewReader connects to Redis and verifies the connection.
func NewReader(cfg ReaderConfig) (*Reader, error) {
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

	group := cfg.ConsumerGroup
	if group == "" {
		group = "predengine"
	}
	consumer := cfg.ConsumerName
	if consumer == "" {
		consumer = "worker-1"
	}

	log.Printf("[redis-reader] connected to %s (group=%s, consumer=%s)", cfg.Addr, group, consumer)
	return &Reader{
		client:        client,
		consumerGroup: group,
		consumerName:  consumer,
	}, nil
}

// decodeCandle extracts the JSON candle from a stream message's "data"
// field. Malformed entries return ok=false and must still be ACKed so they
// cannot wedge the group as poison pills.
func decodeCandle(msg goredis.XMessage) (model.Candle, bool) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return model.Candle{}, false
	}
	var c model.Candle
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		log.Printf("[redis-reader] bad candle payload %s: %v", msg.ID, err)
		return model.Candle{}, false
	}
	return c, true
}

// forwardClaimed decodes claimed messages onto the candle channel and ACKs
// every message, decodable or not. Returns how many were forwarded.
func (r *Reader) forwardClaimed(ctx context.Context, stream string, msgs []goredis.XMessage, out chan<- model.Candle) (int, error) {
	forwarded := 0
	for _, msg := range msgs {
		if c, ok := decodeCandle(msg); ok {
			select {
			case out <- c:
				forwarded++
			case <-ctx.Done():
				return forwarded, ctx.Err()
			}
		}
		r.client.XAck(ctx, stream, r.consumerGroup, msg.ID)
	}
	return forwarded, nil
}

// EnsureConsumerGroup creates the group on each candle stream if missing.
// Fresh groups start at "$" so only candles arriving after startup flow
// through the group; history is covered by ReplayFromID.
func (r *Reader) EnsureConsumerGroup(ctx context.Context, streams []string) error {
	for _, stream := range streams {
		err := r.client.XGroupCreateMkStream(ctx, stream, r.consumerGroup, "$").Err()
		if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("xgroup create %s: %w", stream, err)
		}
	}
	return nil
}

// ConsumeCandles blocks on XREADGROUP across all candle streams and sends
// parsed candles to out, ACKing after the hand-off. Returns when ctx is
// cancelled.
func (r *Reader) ConsumeCandles(ctx context.Context, streams []string, out chan<- model.Candle) error {
	// XREADGROUP wants [stream1, ..., streamN, ">", ..., ">"].
	args := make([]string, len(streams)*2)
	for i, s := range streams {
		args[i] = s
		args[len(streams)+i] = ">"
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results, err := r.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    r.consumerGroup,
			Consumer: r.consumerName,
			Streams:  args,
			Count:    readBatch,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("[redis-reader] xreadgroup error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range results {
			if _, err := r.forwardClaimed(ctx, stream.Stream, stream.Messages, out); err != nil {
				return err
			}
		}
	}
}

// RecoverPending re-processes this consumer's unACKed messages from a
// previous crash, preserving at-least-once delivery into the windows.
func (r *Reader) RecoverPending(ctx context.Context, streams []string, out chan<- model.Candle) error {
	for _, stream := range streams {
		for {
			pending, err := r.client.XPendingExt(ctx, &goredis.XPendingExtArgs{
				Stream: stream,
				Group:  r.consumerGroup,
				Start:  "-",
				End:    "+",
				Count:  readBatch,
			}).Result()
			if err != nil || len(pending) == 0 {
				break
			}

			ids := make([]string, len(pending))
			for i, p := range pending {
				ids[i] = p.ID
			}

			claimed, err := r.client.XClaim(ctx, &goredis.XClaimArgs{
				Stream:   stream,
				Group:    r.consumerGroup,
				Consumer: r.consumerName,
				MinIdle:  0,
				Messages: ids,
			}).Result()
			if err != nil {
				log.Printf("[redis-reader] xclaim error on %s: %v", stream, err)
				break
			}

			if _, err := r.forwardClaimed(ctx, stream, claimed, out); err != nil {
				return err
			}

			if len(claimed) < len(ids) {
				break
			}
		}
	}
	return nil
}

// reclaimStale claims PEL entries owned by other consumers that have been
// idle longer than minIdleMs, taking over for a dead worker.
func (r *Reader) reclaimStale(ctx context.Context, stream string, minIdleMs int64) ([]goredis.XMessage, error) {
	minIdle := time.Duration(minIdleMs) * time.Millisecond
	pending, err := r.client.XPendingExt(ctx, &goredis.XPendingExtArgs{
		Stream: stream,
		Group:  r.consumerGroup,
		Start:  "-",
		End:    "+",
		Count:  reclaimBatch,
		Idle:   minIdle,
	}).Result()
	if err != nil || len(pending) == 0 {
		return nil, err
	}

	var staleIDs []string
	for _, p := range pending {
		if p.Consumer != r.consumerName {
			staleIDs = append(staleIDs, p.ID)
		}
	}
	if len(staleIDs) == 0 {
		return nil, nil
	}

	claimed, err := r.client.XClaim(ctx, &goredis.XClaimArgs{
		Stream:   stream,
		Group:    r.consumerGroup,
		Consumer: r.consumerName,
		MinIdle:  minIdle,
		Messages: staleIDs,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xclaim %s: %w", stream, err)
	}

	log.Printf("[redis-reader] reclaimed %d stale PEL entries from %s", len(claimed), stream)
	return claimed, nil
}

// StartPELReclaimer periodically sweeps every candle stream for stale PEL
// entries and feeds reclaimed candles back into processing. Runs until ctx
// is cancelled.
func (r *Reader) StartPELReclaimer(ctx context.Context, streams []string, interval time.Duration, minIdleMs int64, out chan<- model.Candle, onReclaim func(count int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			total := 0
			for _, stream := range streams {
				claimed, err := r.reclaimStale(ctx, stream, minIdleMs)
				if err != nil {
					log.Printf("[redis-reader] PEL reclaim error on %s: %v", stream, err)
					continue
				}
				n, err := r.forwardClaimed(ctx, stream, claimed, out)
				total += n
				if err != nil {
					return
				}
			}
			if total > 0 && onReclaim != nil {
				onReclaim(total)
			}
		}
	}
}

// ReplayFromID pages through a stream from startID (exclusive) and sends
// every decodable candle to out. Used at startup to warm the candle windows
// before live consumption; returns the last ID seen so a caller could
// resume from it.
func (r *Reader) ReplayFromID(ctx context.Context, stream, startID string, out chan<- model.Candle) (string, error) {
	lastID := startID
	for {
		page, err := r.client.XRangeN(ctx, stream, "("+lastID, "+", replayPage).Result()
		if err != nil {
			return lastID, fmt.Errorf("xrange %s from %s: %w", stream, lastID, err)
		}
		if len(page) == 0 {
			return lastID, nil
		}

		for _, msg := range page {
			lastID = msg.ID
			c, ok := decodeCandle(msg)
			if !ok {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return lastID, ctx.Err()
			}
		}

		if len(page) < replayPage {
			return lastID, nil
		}
	}
}

// GetSentiment loads the latest sentiment snapshot for a symbol from
// "sentiment:latest:{symbol}". A missing key or a bad payload degrades to
// the neutral snapshot; the evaluation cycle never stalls on sentiment.
func (r *Reader) GetSentiment(ctx context.Context, symbol string) model.SentimentData {
	data, err := r.client.Get(ctx, "sentiment:latest:"+symbol).Result()
	if err != nil {
		if err != goredis.Nil {
			log.Printf("[redis-reader] sentiment get %s: %v", symbol, err)
		}
		return model.NeutralSentiment()
	}

	var s model.SentimentData
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		log.Printf("[redis-reader] unmarshal sentiment %s: %v", symbol, err)
		return model.NeutralSentiment()
	}
	return s
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
