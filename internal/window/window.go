// Package window keeps the rolling per-symbol candle history the evaluation
// cycle computes indicators from. A Window is a fixed-capacity ring: once
// full, each append overwrites the oldest bar.
package window

import (
	"sync"
	"time"

	"prediction-systemv1/internal/model"
)

// Window is a bounded, time-ordered candle ring for one symbol. Appends and
// snapshots may come from different goroutines.
type Window struct {
	mu   sync.RWMutex
	buf  []model.Candle
	mask uint64
	head uint64 // total appends; head-size..head-1 are live
	size int

	lastTS  time.Time
	dropped uint64
}

// New creates a window. capacity is rounded up to the next power of two,
// minimum 2.
func New(capacity int) *Window {
	c := nextPow2(capacity)
	if c < 2 {
		c = 2
	}
	return &Window{
		buf:  make([]model.Candle, c),
		mask: uint64(c - 1),
	}
}

// Append adds a candle if it advances time. Bars at or before the newest
// retained timestamp are dropped, which makes replayed history and duplicate
// stream deliveries idempotent. Reports whether the candle was kept.
func (w *Window) Append(c model.Candle) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lastTS.IsZero() && !c.TS.After(w.lastTS) {
		w.dropped++
		return false
	}

	w.buf[w.head&w.mask] = c
	w.head++
	if w.size < len(w.buf) {
		w.size++
	}
	w.lastTS = c.TS
	return true
}

// Snapshot returns a copy of the retained candles, oldest first.
func (w *Window) Snapshot() []model.Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]model.Candle, w.size)
	start := w.head - uint64(w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(start+uint64(i))&w.mask]
	}
	return out
}

// Closes returns the close prices of the retained candles, oldest first.
func (w *Window) Closes() []float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]float64, w.size)
	start := w.head - uint64(w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(start+uint64(i))&w.mask].Close
	}
	return out
}

// Len returns the number of retained candles.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Dropped returns how many appends were rejected as stale or duplicate.
func (w *Window) Dropped() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dropped
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
