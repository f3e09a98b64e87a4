package market

import (
	"context"
	"time"

	"intraday_trading/internal/models"
)

// BarSource is an Interface.
// Anything that can hand us closed bars satisfies it: bar files on disk, an in-memory frame,
// or the Alpaca market data API. The trading logic never knows which one it is talking to.
type BarSource interface {
	// LatestBar returns the most recent bar for symbol that is fully closed at decisionTime.
	// found is false when that bar is not (yet) available; that is not an error.
	LatestBar(ctx context.Context, symbol string, decisionTime time.Time) (bar models.Bar, found bool, err error)

	// Bars returns every bar in [start, end] for the given symbols,
	// de-duplicated on (symbol, timestamp) keeping the first one seen.
	Bars(ctx context.Context, start, end time.Time, symbols []string) ([]models.Bar, error)
}

// Calendar knows which days the market is open.
type Calendar interface {
	TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

// LatestBySymbol keeps the first bar seen for each symbol.
func LatestBySymbol(bars []models.Bar) map[string]models.Bar {
	out := make(map[string]models.Bar, len(bars))
	for _, b := range bars {
		if _, ok := out[b.Symbol]; !ok {
			out[b.Symbol] = b
		}
	}
	return out
}
