package gateway

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SystemMetrics is the host/runtime snapshot included in the gateway's
// periodic metrics broadcast and served on /api/metrics.
type SystemMetrics struct {
	CPULoad1    float64 `json:"cpu_load_1"`
	CPULoad5    float64 `json:"cpu_load_5"`
	CPULoad15   float64 `json:"cpu_load_15"`
	CPUPercent  float64 `json:"cpu_percent"`
	CPUCores    int     `json:"cpu_cores"`
	MemUsedMB   float64 `json:"mem_used_mb"`
	MemTotalMB  float64 `json:"mem_total_mb"`
	MemPercent  float64 `json:"mem_percent"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	SysMB       float64 `json:"sys_mb"`
	GCRuns      uint32  `json:"gc_runs"`
	Goroutines  int     `json:"goroutines"`
	UptimeSec   int64   `json:"uptime_sec"`
	LatencyP50  float64 `json:"latency_p50_ms"`
	LatencyP95  float64 `json:"latency_p95_ms"`
	LatencyP99  float64 `json:"latency_p99_ms"`
	TS          string  `json:"ts"`
}

// cpuTotals is one reading of the aggregate "cpu" line in /proc/stat.
type cpuTotals struct {
	idle  uint64
	total uint64
}

var (
	cpuMu   sync.Mutex
	lastCPU cpuTotals
)

func readCPUTotals() cpuTotals {
	raw, err := os.ReadFile("/proc/stat")
	if err != nil {
		return cpuTotals{}
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		var t cpuTotals
		fields := strings.Fields(line)
		for i := 1; i < len(fields); i++ {
			v, _ := strconv.ParseUint(fields[i], 10, 64)
			t.total += v
			if i == 4 { // idle column
				t.idle = v
			}
		}
		return t
	}
	return cpuTotals{}
}

// cpuPercent derives utilisation from the delta against the previous
// reading. The metrics broadcast loop and /api/metrics both call this, so
// the stored sample is mutex-guarded. The first call reports 0.
func cpuPercent() float64 {
	cpuMu.Lock()
	defer cpuMu.Unlock()

	cur := readCPUTotals()
	prev := lastCPU
	lastCPU = cur
	if prev.total == 0 || cur.total <= prev.total {
		return 0
	}
	dTotal := float64(cur.total - prev.total)
	dIdle := float64(cur.idle - prev.idle)
	return (dTotal - dIdle) / dTotal * 100
}

func readLoadAvg() (l1, l5, l15 float64) {
	raw, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return
	}
	fields := strings.Fields(string(raw))
	if len(fields) < 3 {
		return
	}
	l1, _ = strconv.ParseFloat(fields[0], 64)
	l5, _ = strconv.ParseFloat(fields[1], 64)
	l15, _ = strconv.ParseFloat(fields[2], 64)
	return
}

func readMemUsage() (usedMB, totalMB, pct float64) {
	raw, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return
	}
	var totalKB, availKB uint64
	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB, _ = strconv.ParseUint(fields[1], 10, 64)
		case "MemAvailable:":
			availKB, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	if totalKB == 0 {
		return
	}
	usedKB := totalKB - availKB
	return float64(usedKB) / 1024, float64(totalKB) / 1024,
		float64(usedKB) / float64(totalKB) * 100
}

// CollectMetrics assembles the snapshot broadcast to dashboard clients.
// Latency percentiles are filled in by the caller from the hub's tracker.
func CollectMetrics(start time.Time) SystemMetrics {
	m := SystemMetrics{
		CPUPercent: cpuPercent(),
		CPUCores:   runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		UptimeSec:  int64(time.Since(start).Seconds()),
		TS:         time.Now().UTC().Format(time.RFC3339Nano),
	}
	m.CPULoad1, m.CPULoad5, m.CPULoad15 = readLoadAvg()
	m.MemUsedMB, m.MemTotalMB, m.MemPercent = readMemUsage()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.HeapAllocMB = float64(ms.HeapAlloc) / (1 << 20)
	m.SysMB = float64(ms.Sys) / (1 << 20)
	m.GCRuns = ms.NumGC
	return m
}
