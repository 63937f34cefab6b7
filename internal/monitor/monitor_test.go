package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"star-core/internal/events"
)

func TestLatencyHistogramStats(t *testing.T) {
	h := NewLatencyHistogram(3)
	for _, v := range []float64{10, 1, 2, 3} {
		h.Record(v)
	}
	stats := h.Stats()
	if stats.Count != 3 || stats.Min != 1 || stats.Max != 3 || stats.Avg != 2 {
		t.Fatalf("stats=%+v, expected window of 1,2,3", stats)
	}
	if again := h.Stats(); again != stats {
		t.Fatalf("cached stats differ: %+v vs %+v", again, stats)
	}
}

func TestRunMetricsSnapshot(t *testing.T) {
	m := NewRunMetrics()
	m.RunFinished(2, 3)
	m.RunFailed(true)
	m.RunFailed(false)
	m.CacheHit()
	m.CacheMiss()
	m.RequestServed(5 * time.Millisecond)

	snap := m.GetSnapshot()
	if snap.Runs != 3 || snap.RunErrors != 2 || snap.OpLimitAborts != 1 {
		t.Fatalf("run counters=%+v", snap)
	}
	if snap.Plots != 2 || snap.Fills != 3 || snap.CacheHits != 1 || snap.CacheMisses != 1 || snap.Requests != 1 {
		t.Fatalf("counters=%+v", snap)
	}
	if snap.RequestLatency.Count != 1 {
		t.Fatalf("request latency count=%d", snap.RequestLatency.Count)
	}
}

func TestMonitorAlertsOnFailedRun(t *testing.T) {
	bus := events.NewBus()
	alerts := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := &Monitor{Bus: bus, AlertFn: func(s string) { alerts <- s }}
	m.Start(ctx)
	bus.Publish(events.EventRunFailed, events.RunFailed{RunID: "r1", Kind: "op_limit", Error: "boom"})

	select {
	case msg := <-alerts:
		if !strings.Contains(msg, "run r1 failed (op_limit): boom") {
			t.Fatalf("alert=%q", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("no alert received")
	}
}
