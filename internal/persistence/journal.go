// Package persistence journals run lifecycle events from the bus into the run store.
package persistence

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"star-core/internal/events"
	"star-core/pkg/db"
)

// Journal buffers bus events and writes them to run_events in batches.
type Journal struct {
	db          *db.Database
	buffer      []db.RunEvent
	mu          sync.Mutex
	maxSize     int
	flushIntval time.Duration
	done        chan struct{}
	wg          sync.WaitGroup
	unsub       func()
	closeOnce   sync.Once
	metrics     JournalMetrics
}

// JournalMetrics provides statistics about batch operations.
type JournalMetrics struct {
	TotalEvents   uint64 `json:"total_events"`
	TotalBatches  uint64 `json:"total_batches"`
	TotalErrors   uint64 `json:"total_errors"`
	LastBatchSize int64  `json:"last_batch_size"`
}

// NewJournal creates a journal that flushes every interval or when maxSize
// events are pending.
func NewJournal(database *db.Database, maxSize int, interval time.Duration) *Journal {
	if maxSize <= 0 {
		maxSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	j := &Journal{
		db:          database,
		buffer:      make([]db.RunEvent, 0, maxSize),
		maxSize:     maxSize,
		flushIntval: interval,
		done:        make(chan struct{}),
	}

	j.wg.Add(1)
	go j.backgroundFlush()

	return j
}

// Attach subscribes the journal to every run topic of bus. Close detaches it.
func (j *Journal) Attach(bus *events.Bus) {
	stream, unsub := bus.SubscribeAll(events.All, 256)
	j.mu.Lock()
	j.unsub = unsub
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for env := range stream {
			if err := j.Write(env); err != nil {
				log.Printf("[STORE] journal dropped %s event: %v", env.Type, err)
			}
		}
	}()
}

// Write queues one envelope.
func (j *Journal) Write(env events.Envelope) error {
	payload, err := json.Marshal(env.Payload)
	if err != nil {
		atomic.AddUint64(&j.metrics.TotalErrors, 1)
		return err
	}
	at := env.At
	if at.IsZero() {
		at = time.Now()
	}

	j.mu.Lock()
	j.buffer = append(j.buffer, db.RunEvent{
		RunID:   runIDOf(env.Payload),
		Type:    string(env.Type),
		Payload: payload,
		At:      at.UTC(),
	})
	shouldFlush := len(j.buffer) >= j.maxSize
	j.mu.Unlock()

	if shouldFlush {
		return j.Flush()
	}
	return nil
}

func runIDOf(payload any) string {
	switch p := payload.(type) {
	case events.RunStarted:
		return p.RunID
	case events.RunCompleted:
		return p.RunID
	case events.RunFailed:
		return p.RunID
	case events.OrderFilled:
		return p.RunID
	case events.PlotRecorded:
		return p.RunID
	}
	return ""
}

// Flush immediately writes all buffered events.
func (j *Journal) Flush() error {
	j.mu.Lock()
	if len(j.buffer) == 0 {
		j.mu.Unlock()
		return nil
	}
	batch := j.buffer
	j.buffer = make([]db.RunEvent, 0, j.maxSize)
	j.mu.Unlock()

	atomic.AddUint64(&j.metrics.TotalEvents, uint64(len(batch)))
	atomic.AddUint64(&j.metrics.TotalBatches, 1)
	atomic.StoreInt64(&j.metrics.LastBatchSize, int64(len(batch)))

	if err := j.db.AppendEvents(context.Background(), batch); err != nil {
		atomic.AddUint64(&j.metrics.TotalErrors, 1)
		return err
	}
	return nil
}

func (j *Journal) backgroundFlush() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.flushIntval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Flush(); err != nil {
				log.Printf("[STORE] journal flush error: %v", err)
			}
		case <-j.done:
			return
		}
	}
}

// Pending returns the number of buffered events.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.buffer)
}

// GetMetrics returns the current journal metrics.
func (j *Journal) GetMetrics() JournalMetrics {
	return JournalMetrics{
		TotalEvents:   atomic.LoadUint64(&j.metrics.TotalEvents),
		TotalBatches:  atomic.LoadUint64(&j.metrics.TotalBatches),
		TotalErrors:   atomic.LoadUint64(&j.metrics.TotalErrors),
		LastBatchSize: atomic.LoadInt64(&j.metrics.LastBatchSize),
	}
}

// Close detaches from the bus, stops the flush loop and writes what is left.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		j.mu.Lock()
		unsub := j.unsub
		j.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		close(j.done)
		j.wg.Wait()
		err = j.Flush()
	})
	return err
}
