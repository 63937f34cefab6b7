package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// Queries provides read access to recorded runs.
type Queries struct {
	db *sql.DB
}

// NewQueries creates a new Queries instance.
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const runColumns = `id, profile, source, status, error_kind, error, plots, ops, realized_pnl, duration_ms, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	err := s.Scan(&r.ID, &r.Profile, &r.Source, &r.Status, &r.ErrorKind, &r.Error, &r.Plots, &r.Ops, &r.RealizedPnL, &r.DurationMs, &r.CreatedAt)
	return r, err
}

// GetRun returns a single run by ID.
func (q *Queries) GetRun(ctx context.Context, id string) (*Run, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

// ListRuns returns the newest runs first.
func (q *Queries) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListTrades returns the trades of a run in fill order.
func (q *Queries) ListTrades(ctx context.Context, runID string) ([]RunTrade, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT run_id, seq, trade_id, side, qty, price, commission, pnl
		FROM run_trades
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run trades: %w", err)
	}
	defer rows.Close()

	trades := []RunTrade{}
	for rows.Next() {
		var t RunTrade
		var pnl sql.NullFloat64
		if err := rows.Scan(&t.RunID, &t.Seq, &t.TradeID, &t.Side, &t.Qty, &t.Price, &t.Commission, &pnl); err != nil {
			return nil, fmt.Errorf("scan run trade: %w", err)
		}
		if pnl.Valid {
			v := pnl.Float64
			t.PnL = &v
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListEvents returns the journaled events of a run in arrival order.
func (q *Queries) ListEvents(ctx context.Context, runID string) ([]RunEvent, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, run_id, type, payload, at
		FROM run_events
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run events: %w", err)
	}
	defer rows.Close()

	evts := []RunEvent{}
	for rows.Next() {
		var e RunEvent
		var payload string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Type, &payload, &e.At); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		evts = append(evts, e)
	}
	return evts, rows.Err()
}
