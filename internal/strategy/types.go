// Package strategy simulates order fills for scripts: slippage, partial fills,
// commission and realized/unrealized P&L on a single long-only position.
package strategy

import "time"

// Order actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Position is a read-only snapshot of the open position.
type Position struct {
	Size     float64 `json:"size"`
	AvgPrice float64 `json:"avg"`
}

// Order records one accepted fill request.
type Order struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	RequestedQty float64   `json:"requestedQty"`
	FilledQty    float64   `json:"qty"`
	Price        float64   `json:"price"`
	Slippage     float64   `json:"slippage"`
	Timestamp    time.Time `json:"timestamp"`
}

// Trade is the execution produced by an order. PnL is only set on sells.
type Trade struct {
	ID         string   `json:"id"`
	Side       string   `json:"side"`
	Qty        float64  `json:"qty"`
	Price      float64  `json:"price"`
	Commission float64  `json:"commission"`
	PnL        *float64 `json:"pnl,omitempty"`
}

// Entry records a strategy.entry intent.
type Entry struct {
	ID  string  `json:"id"`
	Qty float64 `json:"qty"`
}

// Exit records a strategy.exit intent.
type Exit struct {
	ID string `json:"id"`
}

// Options tune a single order.
type Options struct {
	Slippage    float64 // fraction, 0.01 = 1%
	FillPercent float64 // fraction in [0,1]
}

// DefaultOptions fills the whole request without slippage.
func DefaultOptions() Options {
	return Options{FillPercent: 1}
}
