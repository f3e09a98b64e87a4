package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

// Fill is the result of one order filling during a tick.
type Fill struct {
	Order *models.Order
	// Amount is the cash change: negative for buys, positive for sells.
	Amount decimal.Decimal
	// Closed is set when the fill was the closing leg of the position.
	Closed bool
}

// ProcessOrders checks the trade's active orders in placement order and applies the first fill.
// At most one fill is applied per call. After a closing fill the remaining active orders are cancelled.
// It returns nil when nothing filled.
func ProcessOrders(ctx context.Context, broker Broker, trade *models.Trade, tick time.Time) (*Fill, error) {
	logger := log.WithFields(log.Fields{"component": "orders", "dt": calendar.DateTimeString(tick), "symbol": trade.Symbol})

	pending := append([]*models.Order(nil), trade.ActiveOrders...)
	for _, order := range pending {
		filled, price, at, err := broker.CheckOrder(ctx, order, tick)
		if err != nil {
			return nil, fmt.Errorf("check order %s: %w", order.ID, err)
		}
		if !filled {
			continue
		}

		value := decimal.NewFromInt(trade.Shares).Mul(decimal.NewFromFloat(price))
		fill := &Fill{Order: order}
		var settled bool
		switch order.Side {
		case models.Buy:
			settled, err = trade.AddBuyExecution(order.Type, models.OrderFilled, price, at)
			fill.Amount = value.Neg()
			fill.Closed = trade.PositionSide == models.Short
		case models.Sell:
			settled, err = trade.AddSellExecution(order.Type, models.OrderFilled, price, at)
			fill.Amount = value
			fill.Closed = trade.PositionSide == models.Long
		default:
			return nil, fmt.Errorf("order %s: unknown side %q", order.ID, order.Side)
		}
		if err != nil {
			return nil, err
		}

		if !fill.Closed {
			logger.WithFields(log.Fields{"price": price, "side": trade.PositionSide}).Info("Trade started")
			return fill, nil
		}

		entry := logger.WithFields(log.Fields{"price": price, "result": trade.Outcome})
		if settled {
			entry.WithField("gain", decimal.NewFromFloat(*trade.ActualGain).StringFixed(2)).Info("Trade ended")
		} else {
			entry.Warn("Trade ended without both fill prices; gain and profit left undefined")
		}
		cancelOrders(trade, tick)
		return fill, nil
	}
	return nil, nil
}

func cancelOrders(trade *models.Trade, at time.Time) {
	for _, o := range append([]*models.Order(nil), trade.ActiveOrders...) {
		trade.CloseOrder(o, models.OrderCancelled, 0, at)
	}
}
