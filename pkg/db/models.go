package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one recorded script execution.
type Run struct {
	ID          string    `json:"id"`
	Profile     string    `json:"profile,omitempty"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	Plots       int       `json:"plots"`
	Ops         int       `json:"ops"`
	RealizedPnL float64   `json:"realized_pnl"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunTrade is a fill produced by a run's strategy engine.
type RunTrade struct {
	RunID      string   `json:"run_id"`
	Seq        int      `json:"seq"`
	TradeID    string   `json:"trade_id"`
	Side       string   `json:"side"`
	Qty        float64  `json:"qty"`
	Price      float64  `json:"price"`
	Commission float64  `json:"commission"`
	PnL        *float64 `json:"pnl,omitempty"`
}

// CreateRun stores a run and its trades in one transaction. An empty ID is
// replaced by a fresh UUID; the stored ID is returned.
func (d *Database) CreateRun(ctx context.Context, r Run, trades []RunTrade) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin run tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, profile, source, status, error_kind, error, plots, ops, realized_pnl, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Profile, r.Source, r.Status, r.ErrorKind, r.Error, r.Plots, r.Ops, r.RealizedPnL, r.DurationMs, r.CreatedAt); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, t := range trades {
		var pnl sql.NullFloat64
		if t.PnL != nil {
			pnl = sql.NullFloat64{Float64: *t.PnL, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_trades (run_id, seq, trade_id, side, qty, price, commission, pnl)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, i, t.TradeID, t.Side, t.Qty, t.Price, t.Commission, pnl); err != nil {
			return "", fmt.Errorf("insert run trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return r.ID, nil
}

// RunEvent is one journaled lifecycle event. Payload holds the event as JSON.
type RunEvent struct {
	ID      int64           `json:"id"`
	RunID   string          `json:"run_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// AppendEvents stores a batch of events in one transaction.
func (d *Database) AppendEvents(ctx context.Context, evts []RunEvent) error {
	if len(evts) == 0 {
		return nil
	}
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin events tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_events (run_id, type, payload, at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range evts {
		if _, err := stmt.ExecContext(ctx, e.RunID, e.Type, string(e.Payload), e.At); err != nil {
			return fmt.Errorf("insert event %s: %w", e.Type, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}
