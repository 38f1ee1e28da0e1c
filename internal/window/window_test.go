package window

import (
	"testing"
	"time"

	"prediction-systemv1/internal/model"
)

func candleAt(ts time.Time, close float64) model.Candle {
	return model.Candle{Symbol: "BTCUSDT", TS: ts, Close: close}
}

func TestWindow_AppendAndSnapshot(t *testing.T) {
	w := New(4)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !w.Append(candleAt(base.Add(time.Duration(i)*time.Minute), float64(100+i))) {
			t.Fatalf("append %d should succeed", i)
		}
	}

	if w.Len() != 3 {
		t.Fatalf("expected len=3, got %d", w.Len())
	}

	snap := w.Snapshot()
	for i, c := range snap {
		if c.Close != float64(100+i) {
			t.Fatalf("snapshot[%d]: expected close=%d, got %v", i, 100+i, c.Close)
		}
	}
}

func TestWindow_OverwritesOldest(t *testing.T) {
	w := New(4)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// 6 appends into capacity 4: the first two fall off.
	for i := 0; i < 6; i++ {
		w.Append(candleAt(base.Add(time.Duration(i)*time.Minute), float64(i)))
	}

	if w.Len() != 4 {
		t.Fatalf("expected len=4, got %d", w.Len())
	}
	closes := w.Closes()
	for i, c := range closes {
		if c != float64(i+2) {
			t.Fatalf("closes[%d]: expected %d, got %v", i, i+2, c)
		}
	}
}

func TestWindow_RejectsStaleAndDuplicate(t *testing.T) {
	w := New(8)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	w.Append(candleAt(base, 100))
	w.Append(candleAt(base.Add(time.Minute), 101))

	if w.Append(candleAt(base.Add(time.Minute), 999)) {
		t.Fatal("duplicate timestamp should be dropped")
	}
	if w.Append(candleAt(base, 999)) {
		t.Fatal("stale timestamp should be dropped")
	}

	if w.Len() != 2 {
		t.Fatalf("expected len=2, got %d", w.Len())
	}
	if w.Dropped() != 2 {
		t.Fatalf("expected dropped=2, got %d", w.Dropped())
	}
	// Retained data untouched by the rejected bars.
	closes := w.Closes()
	if closes[0] != 100 || closes[1] != 101 {
		t.Fatalf("retained closes corrupted: %v", closes)
	}
}

func TestWindow_SnapshotIsACopy(t *testing.T) {
	w := New(4)
	w.Append(candleAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100))

	snap := w.Snapshot()
	snap[0].Close = -1

	if w.Snapshot()[0].Close != 100 {
		t.Fatal("mutating a snapshot must not touch the window")
	}
}

func TestWindow_Wraparound(t *testing.T) {
	w := New(4)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Many rounds past capacity to exercise index wrapping.
	for i := 0; i < 20; i++ {
		w.Append(candleAt(base.Add(time.Duration(i)*time.Minute), float64(i)))
	}
	closes := w.Closes()
	want := []float64{16, 17, 18, 19}
	for i := range want {
		if closes[i] != want[i] {
			t.Fatalf("closes[%d]: expected %v, got %v", i, want[i], closes[i])
		}
	}
}

func TestWindow_NextPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {7, 8}, {8, 8}, {9, 16}, {1023, 1024},
	}
	for _, tc := range cases {
		if got := nextPow2(tc.in); got != tc.want {
			t.Errorf("nextPow2(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
