package persistence

import (
	"context"
	"testing"
	"time"

	"star-core/internal/events"
	"star-core/pkg/db"
)

func newTestDB(t *testing.T) *db.Database {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	return database
}

func TestJournalFlushesOnSize(t *testing.T) {
	database := newTestDB(t)
	j := NewJournal(database, 2, time.Hour)
	defer j.Close()

	if err := j.Write(events.Envelope{Type: events.EventRunStarted, Payload: events.RunStarted{RunID: "r1", OpLimit: 10}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if j.Pending() != 1 {
		t.Fatalf("Pending=%d, expected 1", j.Pending())
	}
	if err := j.Write(events.Envelope{Type: events.EventRunCompleted, Payload: events.RunCompleted{RunID: "r1", Plots: 1}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if j.Pending() != 0 {
		t.Fatalf("Pending=%d after size flush", j.Pending())
	}

	evts, err := database.Queries().ListEvents(context.Background(), "r1")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(evts) != 2 || evts[0].Type != string(events.EventRunStarted) {
		t.Fatalf("events=%+v", evts)
	}
	if m := j.GetMetrics(); m.TotalBatches != 1 || m.TotalEvents != 2 || m.LastBatchSize != 2 {
		t.Fatalf("metrics=%+v", m)
	}
}

func TestJournalAttachAndClose(t *testing.T) {
	database := newTestDB(t)
	bus := events.NewBus()
	j := NewJournal(database, 100, time.Hour)
	j.Attach(bus)

	bus.Publish(events.EventRunFailed, events.RunFailed{RunID: "r9", Kind: "op_limit", Error: "boom"})

	// The consumer goroutine hands the event to the buffer asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for j.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	evts, err := database.Queries().ListEvents(context.Background(), "r9")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(evts) != 1 || evts[0].Type != string(events.EventRunFailed) {
		t.Fatalf("events=%+v", evts)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
