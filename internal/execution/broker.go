// Package execution turns candidates into orders and orders into fills.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/market"
	"intraday_trading/internal/models"
)

// Broker places orders on a trade and reports whether they have filled.
type Broker interface {
	PlaceMarketBuy(trade *models.Trade, shares int64, targetPrice float64, at time.Time) (*models.Order, error)
	PlaceMarketSell(trade *models.Trade, shares int64, targetPrice float64, at time.Time) (*models.Order, error)
	// CheckOrder reports whether order has filled by tick, and at what price and time.
	CheckOrder(ctx context.Context, order *models.Order, tick time.Time) (filled bool, price float64, at time.Time, err error)
}

// SimulatedBroker fills market orders against bars instead of a real exchange.
//
// A market order fills at the open of the latest bar available at the tick, provided that bar
// started no earlier than the order was placed. Otherwise it stays open and is retried next tick.
type SimulatedBroker struct {
	bars market.BarSource
	log  *log.Entry
}

var _ Broker = (*SimulatedBroker)(nil)

func NewSimulatedBroker(bars market.BarSource) *SimulatedBroker {
	return &SimulatedBroker{bars: bars, log: log.WithField("component", "sim_broker")}
}

func newOrderID() string {
	return "SIM-" + uuid.NewString()
}

func (b *SimulatedBroker) PlaceMarketBuy(trade *models.Trade, shares int64, targetPrice float64, at time.Time) (*models.Order, error) {
	o, err := trade.AddMarketBuyOrder(shares, targetPrice, at, newOrderID())
	if err != nil {
		return nil, err
	}
	b.log.WithFields(log.Fields{
		"dt": calendar.DateTimeString(at), "symbol": trade.Symbol, "shares": shares, "price": targetPrice, "id": o.ID,
	}).Debug("Placed market buy")
	return o, nil
}

func (b *SimulatedBroker) PlaceMarketSell(trade *models.Trade, shares int64, targetPrice float64, at time.Time) (*models.Order, error) {
	o, err := trade.AddMarketSellOrder(shares, targetPrice, at, newOrderID())
	if err != nil {
		return nil, err
	}
	b.log.WithFields(log.Fields{
		"dt": calendar.DateTimeString(at), "symbol": trade.Symbol, "shares": shares, "price": targetPrice, "id": o.ID,
	}).Debug("Placed market sell")
	return o, nil
}

func (b *SimulatedBroker) CheckOrder(ctx context.Context, order *models.Order, tick time.Time) (bool, float64, time.Time, error) {
	if order.Type != models.Market {
		return false, 0, time.Time{}, fmt.Errorf("order %s: unsupported order type %q", order.ID, order.Type)
	}
	bar, found, err := b.bars.LatestBar(ctx, order.Symbol, tick)
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if !found || bar.Timestamp.Before(order.PlacedAt) {
		return false, 0, time.Time{}, nil
	}
	return true, bar.Open, tick, nil
}
