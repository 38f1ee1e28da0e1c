package gateway

import (
	"fmt"
	"testing"
)

func predEnvelope(seq int64) []byte {
	return []byte(fmt.Sprintf(`{"channel":"pub:pred:BTCUSDT","channel_seq":%d,"data":{"signal":"BUY"}}`, seq))
}

func TestReplayBuffer_GapBackfill(t *testing.T) {
	rb := NewReplayBuffer(64)
	for seq := int64(1); seq <= 12; seq++ {
		rb.Push(seq, predEnvelope(seq))
	}

	// A client that saw seq 4 and reconnected at seq 10 asks for 5..9.
	got := rb.Range(5, 9)
	if len(got) != 5 {
		t.Fatalf("Range(5,9): got %d envelopes, want 5", len(got))
	}
	for i, e := range got {
		want := int64(5 + i)
		if e.Seq != want {
			t.Errorf("envelope[%d].Seq = %d, want %d", i, e.Seq, want)
		}
		if string(e.Envelope) != string(predEnvelope(want)) {
			t.Errorf("envelope[%d] payload mismatch: %s", i, e.Envelope)
		}
	}
}

func TestReplayBuffer_OldestOverwrittenFirst(t *testing.T) {
	rb := NewReplayBuffer(4)
	for seq := int64(1); seq <= 10; seq++ {
		rb.Push(seq, predEnvelope(seq))
	}

	if rb.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", rb.Len())
	}

	// Only 7..10 survive; a request reaching further back gets what's left.
	got := rb.Range(1, 100)
	if len(got) != 4 {
		t.Fatalf("Range over full window: got %d, want 4", len(got))
	}
	if got[0].Seq != 7 || got[3].Seq != 10 {
		t.Errorf("retained range [%d, %d], want [7, 10]", got[0].Seq, got[3].Seq)
	}
}

func TestReplayBuffer_EmptyAndMiss(t *testing.T) {
	rb := NewReplayBuffer(8)
	if got := rb.Range(1, 50); len(got) != 0 {
		t.Fatalf("empty buffer Range: got %d, want 0", len(got))
	}

	rb.Push(3, predEnvelope(3))
	if got := rb.Range(10, 20); len(got) != 0 {
		t.Fatalf("Range above retained seqs: got %d, want 0", len(got))
	}
}

func TestReplayBuffer_CopiesCallerBuffer(t *testing.T) {
	rb := NewReplayBuffer(8)

	scratch := []byte(`{"channel":"pub:ind:ETHUSDT","channel_seq":1}`)
	rb.Push(1, scratch)
	scratch[0] = 'X' // broadcaster reuses its buffer

	got := rb.Range(1, 1)
	if len(got) != 1 {
		t.Fatalf("Range(1,1): got %d, want 1", len(got))
	}
	if got[0].Envelope[0] != '{' {
		t.Error("stored envelope must be a copy, not the caller's slice")
	}
}
