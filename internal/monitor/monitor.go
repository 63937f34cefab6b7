package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"star-core/internal/events"
)

// Monitor watches failed runs on the bus and emits alerts.
type Monitor struct {
	Bus     *events.Bus
	AlertFn func(string)
}

// Start consumes EventRunFailed until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.AlertFn == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}
	stream, unsub := m.Bus.Subscribe(events.EventRunFailed, 50)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				m.AlertFn(formatAlert(time.Now(), msg))
			}
		}
	}()
}

func formatAlert(at time.Time, msg any) string {
	return "[" + at.Format(time.RFC3339) + "] " + describe(msg)
}

func describe(v any) string {
	switch t := v.(type) {
	case events.RunFailed:
		return fmt.Sprintf("run %s failed (%s): %s", t.RunID, t.Kind, t.Error)
	case string:
		return t
	default:
		return "alert triggered"
	}
}
