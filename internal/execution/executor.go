package execution

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
	"intraday_trading/internal/tracker"
)

type State string

const (
	StateBuy      State = "buy"
	StateHold     State = "hold"
	StateSell     State = "sell"
	StateComplete State = "complete"
)

// Executor drives one trade from the opening order to the closing fill.
// *TimedHoldLong is the only implementation.
type Executor interface {
	Trade() *models.Trade
	State() State
	// HandleOrderFill applies a fill and reports whether the trade is done.
	HandleOrderFill(order *models.Order, tick time.Time) bool
	// ConsumeBar offers the latest bar for the trade's symbol.
	ConsumeBar(bar models.Bar, tick time.Time) error
	executor()
}

// TimedHoldLong buys, holds for a fixed duration after the decision, then sells at market.
//
//	buy --buy fill--> hold --hold elapsed, sell placed--> sell --sell fill--> complete
type TimedHoldLong struct {
	trade        *models.Trade
	state        State
	holdDuration time.Duration
	broker       Broker
	log          *log.Entry
}

// NewTimedHoldLong opens a LONG trade in the tracker and places the market buy.
// A duplicate (symbol, decision time) is returned as tracker.ErrDuplicateTrade.
func NewTimedHoldLong(tr *tracker.Tracker, broker Broker, symbol string, shares int64,
	decisionTime time.Time, targetBuyPrice float64, hold time.Duration) (*TimedHoldLong, error) {
	trade, err := tr.OpenTrade(symbol, decisionTime, models.Long)
	if err != nil {
		return nil, err
	}
	if _, err := broker.PlaceMarketBuy(trade, shares, targetBuyPrice, decisionTime); err != nil {
		return nil, fmt.Errorf("place buy for %s: %w", symbol, err)
	}
	return &TimedHoldLong{
		trade:        trade,
		state:        StateBuy,
		holdDuration: hold,
		broker:       broker,
		log: log.WithFields(log.Fields{
			"component": "timed_hold_long",
			"symbol":    symbol,
			"decision":  calendar.DateTimeString(decisionTime),
		}),
	}, nil
}

func (e *TimedHoldLong) Trade() *models.Trade { return e.trade }
func (e *TimedHoldLong) State() State         { return e.state }
func (*TimedHoldLong) executor()              {}

func (e *TimedHoldLong) HandleOrderFill(order *models.Order, tick time.Time) bool {
	switch {
	case e.state == StateBuy && order.Side == models.Buy:
		e.state = StateHold
		return false
	case e.state == StateSell && order.Side == models.Sell:
		e.state = StateComplete
		return true
	default:
		e.log.WithFields(log.Fields{
			"dt": calendar.DateTimeString(tick), "state": e.state, "side": order.Side, "type": order.Type,
		}).Warn("Unexpected fill for executor state, ignoring")
		return false
	}
}

// ConsumeBar refreshes the current price while holding, and once the hold has elapsed
// places the market sell at the bar's close. Other states ignore the bar.
func (e *TimedHoldLong) ConsumeBar(bar models.Bar, tick time.Time) error {
	if e.state != StateHold {
		return nil
	}
	e.trade.CurrentPrice = bar.Close
	if tick.Sub(e.trade.DecisionTime) < e.holdDuration {
		return nil
	}
	if _, err := e.broker.PlaceMarketSell(e.trade, e.trade.Shares, bar.Close, tick); err != nil {
		return fmt.Errorf("place sell for %s: %w", e.trade.Symbol, err)
	}
	e.state = StateSell
	return nil
}
