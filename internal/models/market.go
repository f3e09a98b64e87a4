package models

import (
	"time"
)

// Bar represents an OHLCV candle for one symbol.
// Timestamp is the start of the window; a 5-minute bar stamped 09:35 covers 09:35:00-09:39:59.
type Bar struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	TradeCount int64     `json:"trade_count"`
	VWAP       float64   `json:"vwap"`
}

// ChangePct is the percent move from open to close within the bar.
func (b Bar) ChangePct() float64 {
	if b.Open == 0 {
		return 0
	}
	return 100 * (b.Close/b.Open - 1)
}

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

type OrderType string

const (
	Market OrderType = "market"
)

type OrderStatus string

const (
	OrderNotFilled       OrderStatus = "not_filled"
	OrderFilled          OrderStatus = "filled"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderCancelled       OrderStatus = "cancelled"
)

// Order is a single buy or sell instruction belonging to exactly one Trade.
type Order struct {
	ID           string      `json:"id"`
	Side         OrderSide   `json:"side"`
	Type         OrderType   `json:"type"`
	Symbol       string      `json:"symbol"`
	Shares       int64       `json:"shares"`
	TargetPrice  float64     `json:"target_price"`
	DecisionTime time.Time   `json:"decision_time"` // decision time of the owning trade
	PlacedAt     time.Time   `json:"placed_at"`
	Status       OrderStatus `json:"status"`
	FillPrice    float64     `json:"fill_price"`
	ClosedAt     time.Time   `json:"closed_at,omitempty"`
}

// IsOpen reports whether the order can still fill.
func (o *Order) IsOpen() bool {
	return o.Status == OrderNotFilled || o.Status == OrderPartiallyFilled
}

func (o *Order) close(status OrderStatus, price float64, at time.Time) {
	o.Status = status
	o.FillPrice = price
	o.ClosedAt = at
}
