// Package tracker is the ledger of every trade a run makes.
package tracker

import (
	"errors"
	"fmt"
	"time"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

var (
	// ErrDuplicateTrade means a trade with the same symbol and decision time was already opened.
	// Decision times are unique per symbol within a run, so this is an invariant violation.
	ErrDuplicateTrade = errors.New("trade already exists")
	// ErrTradeNotActive is returned when closing a trade that is not in the active set.
	ErrTradeNotActive = errors.New("trade is not active")
)

type tradeKey struct {
	symbol string
	at     int64
}

func keyOf(symbol string, decisionTime time.Time) tradeKey {
	return tradeKey{symbol: symbol, at: decisionTime.UnixNano()}
}

// Tracker maps (symbol, decision time) to trades in two disjoint sets, active and closed.
// It is not safe for concurrent use; the tick loop is its only writer.
type Tracker struct {
	active map[tradeKey]*models.Trade
	closed map[tradeKey]*models.Trade

	activeOrder []tradeKey // open order
	closedOrder []tradeKey // close order
}

func New() *Tracker {
	return &Tracker{
		active: make(map[tradeKey]*models.Trade),
		closed: make(map[tradeKey]*models.Trade),
	}
}

// OpenTrade registers a new trade in the active set.
func (t *Tracker) OpenTrade(symbol string, decisionTime time.Time, side models.PositionSide) (*models.Trade, error) {
	key := keyOf(symbol, decisionTime)
	if _, ok := t.active[key]; ok {
		return nil, fmt.Errorf("open %s at %s: %w", symbol, calendar.DateTimeString(decisionTime), ErrDuplicateTrade)
	}
	if _, ok := t.closed[key]; ok {
		return nil, fmt.Errorf("open %s at %s: %w", symbol, calendar.DateTimeString(decisionTime), ErrDuplicateTrade)
	}

	trade := models.NewTrade(symbol, decisionTime, side)
	t.active[key] = trade
	t.activeOrder = append(t.activeOrder, key)
	return trade, nil
}

// CloseTrade moves a trade from the active set to the closed set.
func (t *Tracker) CloseTrade(trade *models.Trade) error {
	key := keyOf(trade.Symbol, trade.DecisionTime)
	if _, ok := t.active[key]; !ok {
		return fmt.Errorf("close %s at %s: %w", trade.Symbol, calendar.DateTimeString(trade.DecisionTime), ErrTradeNotActive)
	}

	delete(t.active, key)
	for i, k := range t.activeOrder {
		if k == key {
			t.activeOrder = append(t.activeOrder[:i], t.activeOrder[i+1:]...)
			break
		}
	}
	t.closed[key] = trade
	t.closedOrder = append(t.closedOrder, key)
	return nil
}

// Trade looks a trade up in either set.
func (t *Tracker) Trade(symbol string, decisionTime time.Time) (*models.Trade, bool) {
	key := keyOf(symbol, decisionTime)
	if trade, ok := t.closed[key]; ok {
		return trade, true
	}
	trade, ok := t.active[key]
	return trade, ok
}

// IsActive reports whether the trade is in the active set.
func (t *Tracker) IsActive(symbol string, decisionTime time.Time) bool {
	_, ok := t.active[keyOf(symbol, decisionTime)]
	return ok
}

// IsClosed reports whether the trade is in the closed set.
func (t *Tracker) IsClosed(symbol string, decisionTime time.Time) bool {
	_, ok := t.closed[keyOf(symbol, decisionTime)]
	return ok
}

func (t *Tracker) ActiveCount() int { return len(t.active) }
func (t *Tracker) ClosedCount() int { return len(t.closed) }
func (t *Tracker) Len() int         { return len(t.active) + len(t.closed) }

// Trades returns closed trades in close order followed by active trades in open order.
func (t *Tracker) Trades() []*models.Trade {
	out := make([]*models.Trade, 0, t.Len())
	for _, k := range t.closedOrder {
		out = append(out, t.closed[k])
	}
	for _, k := range t.activeOrder {
		out = append(out, t.active[k])
	}
	return out
}

// Profit sums realized profit over closed trades and marked-to-market profit over all trades.
func (t *Tracker) Profit() (realized, current float64) {
	for _, trade := range t.closed {
		realized += trade.CurrentProfit()
	}
	for _, trade := range t.Trades() {
		current += trade.CurrentProfit()
	}
	return realized, current
}
