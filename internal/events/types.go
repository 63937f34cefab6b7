package events

import "time"

// Event enumerates the topics published while scripts run.
type Event string

const (
	EventRunStarted   Event = "run.started"
	EventRunCompleted Event = "run.completed"
	EventRunFailed    Event = "run.failed"
	EventOrderFilled  Event = "order.filled"
	EventPlot         Event = "plot"
)

// All lists every topic, in publication order of a typical run.
var All = []Event{EventRunStarted, EventPlot, EventOrderFilled, EventRunCompleted, EventRunFailed}

// RunStarted is published before evaluation begins.
type RunStarted struct {
	RunID   string `json:"run_id"`
	Profile string `json:"profile,omitempty"`
	OpLimit int    `json:"op_limit"`
}

// RunCompleted is published after a successful run.
type RunCompleted struct {
	RunID       string        `json:"run_id"`
	Plots       int           `json:"plots"`
	Trades      int           `json:"trades"`
	RealizedPnL float64       `json:"realized_pnl"`
	Ops         int           `json:"ops"`
	Duration    time.Duration `json:"duration_ns"`
}

// RunFailed is published when evaluation aborts.
type RunFailed struct {
	RunID string `json:"run_id"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// OrderFilled mirrors one strategy trade of a run.
type OrderFilled struct {
	RunID string  `json:"run_id"`
	ID    string  `json:"id"`
	Side  string  `json:"side"`
	Qty   float64 `json:"qty"`
	Price float64 `json:"price"`
}

// PlotRecorded mirrors one plot call of a run.
type PlotRecorded struct {
	RunID string `json:"run_id"`
	Index int    `json:"index"`
	Title string `json:"title,omitempty"`
}

// Envelope wraps a payload with its topic for consumers that listen to several topics.
// Seq increases by one per published event across all topics.
type Envelope struct {
	Seq     uint64    `json:"seq"`
	Type    Event     `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}
