package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"prediction-systemv1/internal/model"
)

// pendingWrite represents a write that was buffered during circuit-open state.
type pendingWrite struct {
	WriteType string // "evaluation", "training"
	Data      []byte // JSON-encoded payload
}

// evaluationPayload pairs the two records of one evaluation tick so they
// replay together.
type evaluationPayload struct {
	Indicators model.TechnicalIndicators `json:"indicators"`
	Prediction model.PredictionData      `json:"prediction"`
}

// BufferedWriter wraps a Redis Writer with a circuit breaker.
// During circuit-open state, writes are buffered locally and flushed
// when the circuit closes again.
type BufferedWriter struct {
	writer *Writer
	cb     *CircuitBreaker
	ctx    context.Context

	mu     sync.Mutex
	buffer []pendingWrite
	maxBuf int // max buffered writes before dropping oldest (default: 10000)

	// Callbacks
	OnBuffer func()          // called when a write is buffered (for metrics)
	OnFlush  func(count int) // called after flushing buffered writes
}

// NewBufferedWriter creates a BufferedWriter wrapping the given Writer.
func NewBufferedWriter(ctx context.Context, w *Writer, cb *CircuitBreaker, maxBufferSize int) *BufferedWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	bw := &BufferedWriter{
		writer: w,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]pendingWrite, 0, 256),
		maxBuf: maxBufferSize,
	}

	// Register flush on circuit close
	prevCallback := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prevCallback != nil {
			prevCallback(from, to)
		}
		if to == StateClosed {
			go bw.flush()
		}
	}

	return bw
}

// WriteEvaluation writes one evaluation tick (indicator bundle + prediction)
// through the circuit breaker. If the circuit is open, the pair is buffered
// locally and replayed when Redis recovers.
func (bw *BufferedWriter) WriteEvaluation(ind model.TechnicalIndicators, pred model.PredictionData) error {
	err := bw.cb.Execute(func() error {
		return bw.writer.WriteEvaluationBatch(bw.ctx, &ind, &pred)
	})
	if err == ErrCircuitOpen {
		bw.bufferWrite("evaluation", evaluationPayload{Indicators: ind, Prediction: pred})
		return nil // buffered, not lost
	}
	return err
}

// PublishTraining publishes training metrics through the circuit breaker.
func (bw *BufferedWriter) PublishTraining(m model.TrainingMetrics) error {
	err := bw.cb.Execute(func() error {
		return bw.writer.PublishTraining(bw.ctx, &m)
	})
	if err == ErrCircuitOpen {
		bw.bufferWrite("training", m)
		return nil
	}
	return err
}

func (bw *BufferedWriter) bufferWrite(writeType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[buffered-writer] marshal error: %v", err)
		return
	}

	bw.mu.Lock()
	defer bw.mu.Unlock()

	if len(bw.buffer) >= bw.maxBuf {
		// Buffer full — drop oldest
		bw.buffer = bw.buffer[1:]
	}
	bw.buffer = append(bw.buffer, pendingWrite{WriteType: writeType, Data: data})

	if bw.OnBuffer != nil {
		bw.OnBuffer()
	}
}

// flush replays all buffered writes through the underlying writer.
func (bw *BufferedWriter) flush() {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return
	}
	// Take ownership of the buffer
	toFlush := bw.buffer
	bw.buffer = make([]pendingWrite, 0, 256)
	bw.mu.Unlock()

	flushed := 0
	for _, pw := range toFlush {
		switch pw.WriteType {
		case "evaluation":
			var ev evaluationPayload
			if json.Unmarshal(pw.Data, &ev) == nil {
				if err := bw.writer.WriteEvaluationBatch(bw.ctx, &ev.Indicators, &ev.Prediction); err != nil {
					log.Printf("[buffered-writer] replay evaluation: %v", err)
				}
			}
		case "training":
			var m model.TrainingMetrics
			if json.Unmarshal(pw.Data, &m) == nil {
				if err := bw.writer.PublishTraining(bw.ctx, &m); err != nil {
					log.Printf("[buffered-writer] replay training: %v", err)
				}
			}
		}
		flushed++
	}

	log.Printf("[buffered-writer] flushed %d buffered writes", flushed)
	if bw.OnFlush != nil {
		bw.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered writes waiting to be flushed.
func (bw *BufferedWriter) PendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// Underlying returns the wrapped Redis writer for direct access.
func (bw *BufferedWriter) Underlying() *Writer {
	return bw.writer
}
