package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// RunMetrics tracks script execution counters and latencies.
type RunMetrics struct {
	RunLatency     *LatencyHistogram
	ParseLatency   *LatencyHistogram
	RequestLatency *LatencyHistogram

	runs          uint64
	runErrors     uint64
	opLimitAborts uint64
	plots         uint64
	fills         uint64
	cacheHits     uint64
	cacheMisses   uint64
	requests      uint64

	started time.Time
}

// NewRunMetrics creates a new metrics instance.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{
		RunLatency:     NewLatencyHistogram(1000),
		ParseLatency:   NewLatencyHistogram(1000),
		RequestLatency: NewLatencyHistogram(1000),
		started:        time.Now(),
	}
}

// LatencyHistogram tracks latency samples over a sliding window.
// Stats are recomputed lazily when samples changed.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}
	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false
	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// RunFinished counts one run with its plots and fills.
func (m *RunMetrics) RunFinished(plots, fills int) {
	atomic.AddUint64(&m.runs, 1)
	atomic.AddUint64(&m.plots, uint64(plots))
	atomic.AddUint64(&m.fills, uint64(fills))
}

// RunFailed counts one aborted run; opLimit marks budget exhaustion.
func (m *RunMetrics) RunFailed(opLimit bool) {
	atomic.AddUint64(&m.runs, 1)
	atomic.AddUint64(&m.runErrors, 1)
	if opLimit {
		atomic.AddUint64(&m.opLimitAborts, 1)
	}
}

// CacheHit counts a parse served from cache.
func (m *RunMetrics) CacheHit() { atomic.AddUint64(&m.cacheHits, 1) }

// CacheMiss counts a parse that had to run.
func (m *RunMetrics) CacheMiss() { atomic.AddUint64(&m.cacheMisses, 1) }

// RequestServed counts an HTTP request and its latency.
func (m *RunMetrics) RequestServed(d time.Duration) {
	atomic.AddUint64(&m.requests, 1)
	m.RequestLatency.RecordDuration(d)
}

// MetricsSnapshot is a point-in-time view of RunMetrics.
type MetricsSnapshot struct {
	RunLatency     LatencyStats `json:"run_latency"`
	ParseLatency   LatencyStats `json:"parse_latency"`
	RequestLatency LatencyStats `json:"request_latency"`
	Runs           uint64       `json:"runs"`
	RunErrors      uint64       `json:"run_errors"`
	OpLimitAborts  uint64       `json:"op_limit_aborts"`
	Plots          uint64       `json:"plots"`
	Fills          uint64       `json:"fills"`
	CacheHits      uint64       `json:"cache_hits"`
	CacheMisses    uint64       `json:"cache_misses"`
	Requests       uint64       `json:"requests"`
	GoroutineCount int          `json:"goroutine_count"`
	HeapAlloc      uint64       `json:"heap_alloc_bytes"`
	Uptime         string       `json:"uptime"`
	Timestamp      time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *RunMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		RunLatency:     m.RunLatency.Stats(),
		ParseLatency:   m.ParseLatency.Stats(),
		RequestLatency: m.RequestLatency.Stats(),
		Runs:           atomic.LoadUint64(&m.runs),
		RunErrors:      atomic.LoadUint64(&m.runErrors),
		OpLimitAborts:  atomic.LoadUint64(&m.opLimitAborts),
		Plots:          atomic.LoadUint64(&m.plots),
		Fills:          atomic.LoadUint64(&m.fills),
		CacheHits:      atomic.LoadUint64(&m.cacheHits),
		CacheMisses:    atomic.LoadUint64(&m.cacheMisses),
		Requests:       atomic.LoadUint64(&m.requests),
		GoroutineCount: runtime.NumGoroutine(),
		HeapAlloc:      memStats.HeapAlloc,
		Uptime:         time.Since(m.started).Round(time.Second).String(),
		Timestamp:      time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{start: time.Now(), histogram: h}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
