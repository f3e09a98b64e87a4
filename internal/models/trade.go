package models

import (
	"errors"
	"fmt"
	"time"
)

type PositionSide string

const (
	Long  PositionSide = "LONG"
	Short PositionSide = "SHORT"
)

// Outcome tags how a trade ended.
type Outcome string

const (
	OutcomeNone       Outcome = ""
	OutcomeMarketSell Outcome = "market_sell" // long closed by a market sell
	OutcomeMarketBuy  Outcome = "market_buy"  // short closed by a market buy
	OutcomeTakeProfit Outcome = "take_profit"
	OutcomeStopLoss   Outcome = "stop_loss"
	OutcomeNotFilled  Outcome = "not_filled"
)

var (
	ErrOrderExists   = errors.New("an active order for this side already exists")
	ErrNoActiveOrder = errors.New("no active order for this side")
	ErrLegFilled     = errors.New("this leg of the trade has already been executed")
)

// Trade collects everything we know about one position, from the decision to trade to the closing fill.
//
// For shorts the same fields are used in the reverse direction: the sell leg opens the
// position and the buy leg closes it, so BuyTime is after SellTime.
//
// Zero prices and zero times mean "not known yet".
type Trade struct {
	Symbol       string       `json:"symbol"`
	DecisionTime time.Time    `json:"decision_time"`
	PositionSide PositionSide `json:"position_side"`
	Shares       int64        `json:"shares"`
	Outcome      Outcome      `json:"outcome"`

	BuyTime         time.Time `json:"buy_time"`
	TargetBuyPrice  float64   `json:"target_buy_price"`
	ActualBuyPrice  float64   `json:"actual_buy_price"`
	SellTime        time.Time `json:"sell_time"`
	TargetSellPrice float64   `json:"target_sell_price"`
	ActualSellPrice float64   `json:"actual_sell_price"`

	// Only set once both legs have filled.
	ActualGain   *float64 `json:"actual_gain,omitempty"`   // 100 * (sell / buy - 1)
	ActualProfit *float64 `json:"actual_profit,omitempty"` // shares * (sell - buy)

	CurrentPrice float64 `json:"current_price"`

	ActiveOrders []*Order `json:"active_orders"`
	ClosedOrders []*Order `json:"closed_orders"`
}

// NewTrade returns an empty trade for the given key.
func NewTrade(symbol string, decisionTime time.Time, side PositionSide) *Trade {
	return &Trade{
		Symbol:       symbol,
		DecisionTime: decisionTime,
		PositionSide: side,
	}
}

// ActiveOrder returns the open order for side and type, or nil.
func (t *Trade) ActiveOrder(side OrderSide, typ OrderType) *Order {
	for _, o := range t.ActiveOrders {
		if o.Side == side && o.Type == typ {
			return o
		}
	}
	return nil
}

func (t *Trade) activeOrderForSide(side OrderSide) *Order {
	for _, o := range t.ActiveOrders {
		if o.Side == side {
			return o
		}
	}
	return nil
}

func (t *Trade) addOrder(side OrderSide, typ OrderType, price float64, placedAt time.Time, id string) (*Order, error) {
	if existing := t.activeOrderForSide(side); existing != nil {
		return nil, fmt.Errorf("%s %s order %s: %w", t.Symbol, side, existing.ID, ErrOrderExists)
	}
	o := &Order{
		ID:           id,
		Side:         side,
		Type:         typ,
		Symbol:       t.Symbol,
		Shares:       t.Shares,
		TargetPrice:  price,
		DecisionTime: t.DecisionTime,
		PlacedAt:     placedAt,
		Status:       OrderNotFilled,
	}
	t.ActiveOrders = append(t.ActiveOrders, o)
	return o, nil
}

// AddMarketBuyOrder records a market buy. It sets the share count for the trade.
func (t *Trade) AddMarketBuyOrder(shares int64, targetPrice float64, placedAt time.Time, id string) (*Order, error) {
	if !t.BuyTime.IsZero() {
		return nil, fmt.Errorf("%s buy: %w", t.Symbol, ErrLegFilled)
	}
	t.Shares = shares
	t.TargetBuyPrice = targetPrice
	return t.addOrder(Buy, Market, targetPrice, placedAt, id)
}

// AddMarketSellOrder records a market sell.
func (t *Trade) AddMarketSellOrder(shares int64, targetPrice float64, placedAt time.Time, id string) (*Order, error) {
	if !t.SellTime.IsZero() {
		return nil, fmt.Errorf("%s sell: %w", t.Symbol, ErrLegFilled)
	}
	t.Shares = shares
	t.TargetSellPrice = targetPrice
	return t.addOrder(Sell, Market, targetPrice, placedAt, id)
}

// CloseOrder moves an order from the active list to the closed list.
func (t *Trade) CloseOrder(order *Order, status OrderStatus, price float64, at time.Time) {
	order.close(status, price, at)
	for i, o := range t.ActiveOrders {
		if o == order {
			t.ActiveOrders = append(t.ActiveOrders[:i], t.ActiveOrders[i+1:]...)
			break
		}
	}
	t.ClosedOrders = append(t.ClosedOrders, order)
}

// AddBuyExecution applies the fill of the active buy order.
// For shorts this is the closing leg and settles gain and profit.
// It returns settled=false when the closing leg could not be settled because a price is missing.
func (t *Trade) AddBuyExecution(typ OrderType, status OrderStatus, price float64, at time.Time) (settled bool, err error) {
	order := t.ActiveOrder(Buy, typ)
	if order == nil {
		return false, fmt.Errorf("%s buy %s: %w", t.Symbol, typ, ErrNoActiveOrder)
	}
	if !t.BuyTime.IsZero() {
		return false, fmt.Errorf("%s buy: %w", t.Symbol, ErrLegFilled)
	}
	t.BuyTime = at
	t.ActualBuyPrice = price
	t.CurrentPrice = price
	settled = true
	if t.PositionSide == Short {
		t.Outcome = closingOutcome(Buy, typ)
		settled = t.settle()
	}
	t.CloseOrder(order, status, price, at)
	return settled, nil
}

// AddSellExecution applies the fill of the active sell order.
// For longs this is the closing leg and settles gain and profit.
func (t *Trade) AddSellExecution(typ OrderType, status OrderStatus, price float64, at time.Time) (settled bool, err error) {
	order := t.ActiveOrder(Sell, typ)
	if order == nil {
		return false, fmt.Errorf("%s sell %s: %w", t.Symbol, typ, ErrNoActiveOrder)
	}
	if !t.SellTime.IsZero() {
		return false, fmt.Errorf("%s sell: %w", t.Symbol, ErrLegFilled)
	}
	t.SellTime = at
	t.ActualSellPrice = price
	t.CurrentPrice = price
	settled = true
	if t.PositionSide == Long {
		t.Outcome = closingOutcome(Sell, typ)
		settled = t.settle()
	}
	t.CloseOrder(order, status, price, at)
	return settled, nil
}

func closingOutcome(side OrderSide, typ OrderType) Outcome {
	if typ != Market {
		return Outcome(typ)
	}
	if side == Sell {
		return OutcomeMarketSell
	}
	return OutcomeMarketBuy
}

func (t *Trade) settle() bool {
	if t.ActualBuyPrice == 0 || t.ActualSellPrice == 0 {
		return false
	}
	gain := 100 * (t.ActualSellPrice/t.ActualBuyPrice - 1)
	profit := float64(t.Shares) * (t.ActualSellPrice - t.ActualBuyPrice)
	t.ActualGain = &gain
	t.ActualProfit = &profit
	return true
}

// IsSettled reports whether both legs filled and gain/profit are known.
func (t *Trade) IsSettled() bool {
	return t.ActualGain != nil && t.ActualProfit != nil
}

// CurrentProfit values the position at CurrentPrice. It is 0 until the opening leg has filled.
func (t *Trade) CurrentProfit() float64 {
	if t.CurrentPrice == 0 {
		return 0
	}
	switch t.PositionSide {
	case Long:
		if t.ActualBuyPrice != 0 {
			return float64(t.Shares) * (t.CurrentPrice - t.ActualBuyPrice)
		}
	case Short:
		if t.ActualSellPrice != 0 {
			return float64(t.Shares) * (t.ActualSellPrice - t.CurrentPrice)
		}
	}
	return 0
}
