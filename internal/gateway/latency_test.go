package gateway

import (
	"math"
	"testing"
)

func TestLatencyTracker_NoSamples(t *testing.T) {
	lt := NewLatencyTracker(128)
	p50, p95, p99 := lt.Percentiles()
	if p50 != 0 || p95 != 0 || p99 != 0 {
		t.Errorf("no samples: expected (0,0,0), got (%f,%f,%f)", p50, p95, p99)
	}
}

func TestLatencyTracker_SingleSample(t *testing.T) {
	lt := NewLatencyTracker(128)
	lt.Record(0.8) // sub-millisecond publish-to-fanout hop

	p50, p95, p99 := lt.Percentiles()
	if p50 != 0.8 || p95 != 0.8 || p99 != 0.8 {
		t.Errorf("single sample: expected all 0.8, got (%f,%f,%f)", p50, p95, p99)
	}
}

func TestLatencyTracker_NearestRank(t *testing.T) {
	lt := NewLatencyTracker(10000)
	for i := 1; i <= 100; i++ {
		lt.Record(float64(i))
	}

	p50, p95, p99 := lt.Percentiles()
	if p50 != 50 {
		t.Errorf("p50: got %f, want 50 (nearest rank of 1..100)", p50)
	}
	if p95 != 95 {
		t.Errorf("p95: got %f, want 95", p95)
	}
	if p99 != 99 {
		t.Errorf("p99: got %f, want 99", p99)
	}
}

func TestLatencyTracker_WindowEviction(t *testing.T) {
	lt := NewLatencyTracker(8)
	for i := 1; i <= 20; i++ {
		lt.Record(float64(i))
	}

	if lt.Count() != 8 {
		t.Fatalf("Count() = %d, want 8", lt.Count())
	}

	// Window now holds 13..20; an old latency spike at sample 1..12 must
	// not influence the percentiles anymore.
	p50, p95, _ := lt.Percentiles()
	if math.Abs(p50-16) > 1e-9 {
		t.Errorf("p50 over 13..20: got %f, want 16", p50)
	}
	if math.Abs(p95-20) > 1e-9 {
		t.Errorf("p95 over 13..20: got %f, want 20", p95)
	}
}

func TestLatencyTracker_Count(t *testing.T) {
	lt := NewLatencyTracker(64)
	if lt.Count() != 0 {
		t.Errorf("initial count: got %d, want 0", lt.Count())
	}
	for i := 0; i < 7; i++ {
		lt.Record(1.5)
	}
	if lt.Count() != 7 {
		t.Errorf("after 7 samples: got %d, want 7", lt.Count())
	}
}
