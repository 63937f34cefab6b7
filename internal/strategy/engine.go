package strategy

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PriceFunc returns the latest close price.
type PriceFunc func() float64

// Engine tracks one position and its fill history.
type Engine struct {
	mu sync.RWMutex

	price      PriceFunc
	commission decimal.Decimal
	now        func() time.Time

	size     decimal.Decimal
	avg      decimal.Decimal
	realized decimal.Decimal

	orders  []Order
	trades  []Trade
	entries []Entry
	exits   []Exit
}

// NewEngine builds an engine pricing fills from price with the given commission rate.
func NewEngine(price PriceFunc, commissionRate float64) *Engine {
	if price == nil {
		price = func() float64 { return 0 }
	}
	return &Engine{
		price:      price,
		commission: decimal.NewFromFloat(nonNegative(commissionRate)),
		now:        time.Now,
	}
}

// SetClock replaces the timestamp source.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// SetCommission changes the commission rate applied to subsequent fills.
func (e *Engine) SetCommission(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commission = decimal.NewFromFloat(nonNegative(rate))
}

// Commission returns the current commission rate.
func (e *Engine) Commission() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.commission.InexactFloat64()
}

// Entry records the intent and buys qty at market.
func (e *Engine) Entry(id string, qty float64) (Order, bool) {
	e.mu.Lock()
	e.entries = append(e.entries, Entry{ID: id, Qty: qty})
	e.mu.Unlock()
	return e.Order(id, ActionBuy, qty, DefaultOptions())
}

// Exit records the intent and sells the whole position, if any.
func (e *Engine) Exit(id string) (Order, bool) {
	e.mu.Lock()
	e.exits = append(e.exits, Exit{ID: id})
	size := e.size
	e.mu.Unlock()
	if !size.IsPositive() {
		return Order{}, false
	}
	return e.Order(id, ActionSell, size.InexactFloat64(), DefaultOptions())
}

// Order fills qty of action at the latest close adjusted by slippage. Quantities and
// fill percent are clamped; ok is false when nothing was filled.
func (e *Engine) Order(id, action string, qty float64, opts Options) (Order, bool) {
	if action != ActionBuy && action != ActionSell {
		return Order{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	requested := decimal.NewFromFloat(nonNegative(qty))
	fillPct := decimal.NewFromFloat(clamp01(opts.FillPercent))
	filled := requested.Mul(fillPct).Floor()

	one := decimal.NewFromInt(1)
	slip := decimal.NewFromFloat(finite(opts.Slippage))
	price := decimal.NewFromFloat(finite(e.price()))
	adj := price.Mul(one.Add(slip))
	if action == ActionSell {
		adj = price.Mul(one.Sub(slip))
		if filled.GreaterThan(e.size) {
			filled = e.size
		}
	}
	if !filled.IsPositive() {
		return Order{}, false
	}
	commission := adj.Mul(filled).Mul(e.commission)

	trade := Trade{
		ID:         id,
		Side:       action,
		Qty:        filled.InexactFloat64(),
		Price:      adj.InexactFloat64(),
		Commission: commission.InexactFloat64(),
	}
	switch action {
	case ActionBuy:
		newSize := e.size.Add(filled)
		cost := e.avg.Mul(e.size).Add(adj.Mul(filled)).Add(commission)
		e.avg = cost.Div(newSize)
		e.size = newSize
	case ActionSell:
		pnl := adj.Sub(e.avg).Mul(filled).Sub(commission)
		e.realized = e.realized.Add(pnl)
		e.size = e.size.Sub(filled)
		if e.size.IsZero() {
			e.avg = decimal.Zero
		}
		v := pnl.InexactFloat64()
		trade.PnL = &v
	}

	order := Order{
		ID:           id,
		Action:       action,
		RequestedQty: requested.InexactFloat64(),
		FilledQty:    trade.Qty,
		Price:        trade.Price,
		Slippage:     finite(opts.Slippage),
		Timestamp:    e.now(),
	}
	e.orders = append(e.orders, order)
	e.trades = append(e.trades, trade)
	return order, true
}

// Position returns the current position snapshot.
func (e *Engine) Position() Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Position{Size: e.size.InexactFloat64(), AvgPrice: e.avg.InexactFloat64()}
}

// RealizedPnL is the P&L locked in by sells.
func (e *Engine) RealizedPnL() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.realized.InexactFloat64()
}

// PnL is realized plus mark-to-market P&L at the latest close.
func (e *Engine) PnL() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	mark := decimal.NewFromFloat(finite(e.price()))
	return e.realized.Add(mark.Sub(e.avg).Mul(e.size)).InexactFloat64()
}

// Orders returns a copy of all accepted orders.
func (e *Engine) Orders() []Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Order(nil), e.orders...)
}

// Trades returns a copy of all executions.
func (e *Engine) Trades() []Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Trade(nil), e.trades...)
}

// Entries returns a copy of recorded entry intents.
func (e *Engine) Entries() []Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Entry(nil), e.entries...)
}

// Exits returns a copy of recorded exit intents.
func (e *Engine) Exits() []Exit {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Exit(nil), e.exits...)
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
