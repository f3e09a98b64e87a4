package execution

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/market"
	"intraday_trading/internal/models"
	"intraday_trading/internal/tracker"
)

func at(clock string) time.Time {
	return calendar.MustTimeOfDay(clock).On(calendar.Date(2024, time.July, 2))
}

func ohlc(clock string, open, close float64) models.Bar {
	return models.Bar{Symbol: "AAPL", Timestamp: at(clock), Open: open, High: close + 0.05, Low: open - 0.05, Close: close}
}

var aaplBars = []models.Bar{
	ohlc("09:40:00", 10.3, 10.49),
	ohlc("09:45:00", 10.5, 10.6),
	ohlc("09:50:00", 10.6, 10.8),
	ohlc("09:55:00", 10.9, 11.0),
}

func latest(t *testing.T, src market.BarSource, tick time.Time) models.Bar {
	t.Helper()
	b, ok, err := src.LatestBar(context.Background(), "AAPL", tick)
	require.NoError(t, err)
	require.True(t, ok)
	return b
}

func TestTimedHoldLongLifecycle(t *testing.T) {
	ctx := context.Background()
	src := market.NewMemorySource(aaplBars)
	broker := NewSimulatedBroker(src)
	tr := tracker.New()

	exec, err := NewTimedHoldLong(tr, broker, "AAPL", 10, at("09:45:00"), 10.49, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StateBuy, exec.State())
	require.Len(t, exec.Trade().ActiveOrders, 1)
	assert.True(t, strings.HasPrefix(exec.Trade().ActiveOrders[0].ID, "SIM-"))
	assert.True(t, tr.IsActive("AAPL", at("09:45:00")))

	// 09:50: buy fills at the open of the 09:45 bar; hold has not elapsed.
	fill, err := ProcessOrders(ctx, broker, exec.Trade(), at("09:50:00"))
	require.NoError(t, err)
	require.NotNil(t, fill)
	assert.False(t, fill.Closed)
	assert.True(t, fill.Amount.Equal(decimal.NewFromInt(-105)), fill.Amount.String())
	assert.False(t, exec.HandleOrderFill(fill.Order, at("09:50:00")))
	assert.Equal(t, StateHold, exec.State())
	require.NoError(t, exec.ConsumeBar(latest(t, src, at("09:50:00")), at("09:50:00")))
	assert.Equal(t, StateHold, exec.State())
	assert.Equal(t, 10.6, exec.Trade().CurrentPrice)

	// 09:55: nothing to fill; hold elapsed so the sell goes in at the 09:50 close.
	fill, err = ProcessOrders(ctx, broker, exec.Trade(), at("09:55:00"))
	require.NoError(t, err)
	assert.Nil(t, fill)
	require.NoError(t, exec.ConsumeBar(latest(t, src, at("09:55:00")), at("09:55:00")))
	assert.Equal(t, StateSell, exec.State())
	assert.Equal(t, 10.8, exec.Trade().TargetSellPrice)

	// 10:00: sell fills at the open of the 09:55 bar.
	fill, err = ProcessOrders(ctx, broker, exec.Trade(), at("10:00:00"))
	require.NoError(t, err)
	require.NotNil(t, fill)
	assert.True(t, fill.Closed)
	assert.True(t, fill.Amount.Equal(decimal.NewFromInt(109)), fill.Amount.String())
	assert.True(t, exec.HandleOrderFill(fill.Order, at("10:00:00")))
	assert.Equal(t, StateComplete, exec.State())

	trade := exec.Trade()
	assert.Empty(t, trade.ActiveOrders)
	require.Len(t, trade.ClosedOrders, 2)
	assert.Equal(t, models.Buy, trade.ClosedOrders[0].Side)
	assert.Equal(t, models.Sell, trade.ClosedOrders[1].Side)
	assert.Equal(t, models.OutcomeMarketSell, trade.Outcome)
	require.True(t, trade.IsSettled())
	assert.InDelta(t, 4.0, *trade.ActualProfit, 1e-9)
	assert.InDelta(t, 100*(10.9/10.5-1), *trade.ActualGain, 1e-9)
	assert.Equal(t, at("09:50:00"), trade.BuyTime)
	assert.Equal(t, at("10:00:00"), trade.SellTime)

	// Nothing moves once complete.
	require.NoError(t, exec.ConsumeBar(latest(t, src, at("10:00:00")), at("10:00:00")))
	assert.Equal(t, StateComplete, exec.State())
	require.NoError(t, tr.CloseTrade(trade))
}

func TestTimedHoldLongIgnoresUnexpectedFill(t *testing.T) {
	broker := NewSimulatedBroker(market.NewMemorySource(aaplBars))
	exec, err := NewTimedHoldLong(tracker.New(), broker, "AAPL", 10, at("09:45:00"), 10.49, 10*time.Minute)
	require.NoError(t, err)

	assert.False(t, exec.HandleOrderFill(&models.Order{Side: models.Sell, Type: models.Market}, at("09:50:00")))
	assert.Equal(t, StateBuy, exec.State())

	// Bars in the buy state do not place a sell, however long it has been.
	require.NoError(t, exec.ConsumeBar(aaplBars[3], at("11:00:00")))
	assert.Equal(t, StateBuy, exec.State())
	assert.Nil(t, exec.Trade().ActiveOrder(models.Sell, models.Market))
}

func TestNewTimedHoldLongDuplicate(t *testing.T) {
	broker := NewSimulatedBroker(market.NewMemorySource(aaplBars))
	tr := tracker.New()

	_, err := NewTimedHoldLong(tr, broker, "AAPL", 10, at("09:45:00"), 10.49, 10*time.Minute)
	require.NoError(t, err)
	_, err = NewTimedHoldLong(tr, broker, "AAPL", 10, at("09:45:00"), 10.49, 10*time.Minute)
	assert.True(t, errors.Is(err, tracker.ErrDuplicateTrade))
}

func TestSimulatedBrokerWaitsForBarAfterPlacement(t *testing.T) {
	ctx := context.Background()
	broker := NewSimulatedBroker(market.NewMemorySource(aaplBars))

	trade := models.NewTrade("AAPL", at("09:47:00"), models.Long)
	order, err := broker.PlaceMarketBuy(trade, 5, 10.5, at("09:47:00"))
	require.NoError(t, err)

	// The 09:45 bar started before the order existed.
	filled, _, _, err := broker.CheckOrder(ctx, order, at("09:50:00"))
	require.NoError(t, err)
	assert.False(t, filled)

	filled, price, when, err := broker.CheckOrder(ctx, order, at("09:55:00"))
	require.NoError(t, err)
	assert.True(t, filled)
	assert.Equal(t, 10.6, price)
	assert.Equal(t, at("09:55:00"), when)

	// No bar at all for the tick.
	filled, _, _, err = broker.CheckOrder(ctx, order, at("11:00:00"))
	require.NoError(t, err)
	assert.False(t, filled)
}

func TestProcessOrdersCancelsAfterClosingFill(t *testing.T) {
	ctx := context.Background()
	broker := NewSimulatedBroker(market.NewMemorySource(aaplBars))

	trade := models.NewTrade("AAPL", at("09:45:00"), models.Long)
	_, err := broker.PlaceMarketBuy(trade, 10, 10.5, at("09:50:00"))
	require.NoError(t, err)
	_, err = broker.PlaceMarketSell(trade, 10, 10.5, at("09:45:00"))
	require.NoError(t, err)

	fill, err := ProcessOrders(ctx, broker, trade, at("09:50:00"))
	require.NoError(t, err)
	require.NotNil(t, fill)
	assert.Equal(t, models.Sell, fill.Order.Side)
	assert.True(t, fill.Closed)

	// The closing leg filled without a buy price, so the result stays undefined.
	assert.False(t, trade.IsSettled())
	assert.Empty(t, trade.ActiveOrders)
	require.Len(t, trade.ClosedOrders, 2)
	assert.Equal(t, models.OrderFilled, trade.ClosedOrders[0].Status)
	assert.Equal(t, models.OrderCancelled, trade.ClosedOrders[1].Status)
}
