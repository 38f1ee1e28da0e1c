package gateway

import (
	"math"
	"sort"
	"sync"
)

// LatencyTracker measures publish-to-fanout delay: the broadcaster records
// the gap between an envelope's engine timestamp and the moment it is handed
// to client send queues. A fixed window of samples backs the p50/p95/p99
// figures in the metrics broadcast and /api/metrics.
type LatencyTracker struct {
	mu       sync.Mutex
	window   []float64 // sample window in milliseconds
	recorded int64     // total samples ever recorded
}

// NewLatencyTracker creates a tracker over the last `capacity` samples.
func NewLatencyTracker(capacity int) *LatencyTracker {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LatencyTracker{window: make([]float64, capacity)}
}

// Record adds one delay sample in milliseconds.
func (lt *LatencyTracker) Record(ms float64) {
	lt.mu.Lock()
	lt.window[lt.recorded%int64(len(lt.window))] = ms
	lt.recorded++
	lt.mu.Unlock()
}

// Count reports how many samples are currently in the window.
func (lt *LatencyTracker) Count() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.countLocked()
}

func (lt *LatencyTracker) countLocked() int {
	if lt.recorded >= int64(len(lt.window)) {
		return len(lt.window)
	}
	return int(lt.recorded)
}

// Percentiles reports p50, p95 and p99 over the window in milliseconds,
// using the nearest-rank method. All zero when no samples exist.
func (lt *LatencyTracker) Percentiles() (p50, p95, p99 float64) {
	lt.mu.Lock()
	n := lt.countLocked()
	sorted := make([]float64, n)
	copy(sorted, lt.window[:n])
	lt.mu.Unlock()

	if n == 0 {
		return 0, 0, 0
	}
	sort.Float64s(sorted)
	return rank(sorted, 0.50), rank(sorted, 0.95), rank(sorted, 0.99)
}

// rank picks the nearest-rank quantile q (0..1] from a sorted window.
func rank(sorted []float64, q float64) float64 {
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
