package gateway

import "sync"

// bufferedEnvelope is one broadcast envelope retained for replay, keyed by
// the per-channel sequence number stamped into the envelope itself.
type bufferedEnvelope struct {
	Seq      int64
	Envelope []byte
}

// ReplayBuffer retains the most recent envelopes of one Pub/Sub channel so
// a reconnecting WebSocket client can backfill a sequence gap through
// /api/missed instead of waiting for the next evaluation cycle. Capacity is
// fixed; the oldest envelope is overwritten first.
type ReplayBuffer struct {
	mu     sync.RWMutex
	ring   []bufferedEnvelope
	pushed int64 // total envelopes ever pushed; ring fill derives from it
}

// NewReplayBuffer creates a buffer retaining the last `capacity` envelopes.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &ReplayBuffer{ring: make([]bufferedEnvelope, capacity)}
}

// Push retains a copy of the envelope; the broadcaster reuses its scratch
// buffer after the call returns.
func (rb *ReplayBuffer) Push(seq int64, envelope []byte) {
	held := make([]byte, len(envelope))
	copy(held, envelope)

	rb.mu.Lock()
	rb.ring[rb.pushed%int64(len(rb.ring))] = bufferedEnvelope{Seq: seq, Envelope: held}
	rb.pushed++
	rb.mu.Unlock()
}

// Range returns the retained envelopes with seq in [from, to], oldest
// first. The broadcaster assigns channel sequence numbers monotonically, so
// the scan stops at the first envelope past the upper bound.
func (rb *ReplayBuffer) Range(from, to int64) []bufferedEnvelope {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	n := int64(rb.lenLocked())
	oldest := rb.pushed - n

	var out []bufferedEnvelope
	for i := int64(0); i < n; i++ {
		e := rb.ring[(oldest+i)%int64(len(rb.ring))]
		if e.Seq > to {
			break
		}
		if e.Seq >= from {
			out = append(out, e)
		}
	}
	return out
}

// Len reports how many envelopes are currently retained.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.lenLocked()
}

func (rb *ReplayBuffer) lenLocked() int {
	if rb.pushed >= int64(len(rb.ring)) {
		return len(rb.ring)
	}
	return int(rb.pushed)
}
