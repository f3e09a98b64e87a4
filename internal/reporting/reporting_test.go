package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/pairs"
	"intraday_trading/internal/session"
	"intraday_trading/internal/tracker"
)

func TestDaySummary(t *testing.T) {
	var sb strings.Builder
	DaySummary(&sb, []session.DayResult{
		{
			Date:           calendar.Date(2024, time.July, 2),
			TradesOpened:   2,
			TradesClosed:   2,
			RealizedProfit: 1906.4,
			CurrentProfit:  1906.4,
			BuyingPower:    decimal.RequireFromString("101906.4"),
		},
		{
			Date:           calendar.Date(2024, time.July, 3),
			TradesOpened:   1,
			TradesClosed:   1,
			RealizedProfit: -906.4,
			CurrentProfit:  -906.4,
			BuyingPower:    decimal.NewFromInt(101000),
		},
	}, decimal.NewFromInt(100000))

	out := sb.String()
	assert.Contains(t, out, "2024-07-02")
	assert.Contains(t, out, "🟢 1906.40")
	assert.Contains(t, out, "🔴 -906.40")
	assert.Contains(t, out, "$101906.40")
	assert.Contains(t, out, "2 DAYS")
	assert.Contains(t, out, "🟢 1000.00")
	assert.Contains(t, out, "1.00%")
}

func TestTrades(t *testing.T) {
	var sb strings.Builder
	Trades(&sb, nil)
	assert.Equal(t, "ℹ️ No trades.\n", sb.String())

	sb.Reset()
	Trades(&sb, []tracker.TradeRow{{
		DecisionTime:   calendar.MustTimeOfDay("09:50:00").On(calendar.Date(2024, time.July, 2)),
		Symbol:         "AAPL",
		Shares:         4766,
		BuyTime:        "09:50:00",
		ActualBuyPrice: decimal.NullDecimal{Decimal: decimal.RequireFromString("10.5"), Valid: true},
	}})
	out := sb.String()
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "4766")
	assert.Contains(t, out, "10.5")
	assert.Contains(t, out, " - ")
}

func TestPairs(t *testing.T) {
	var sb strings.Builder
	Pairs(&sb, nil)
	assert.Contains(t, sb.String(), "No pairs")

	sb.Reset()
	Pairs(&sb, []pairs.Pair{{
		Independent:   "NVDA",
		Dependent:     "AMD",
		Count:         8,
		MeanGainPct:   0.6125,
		BreakEvenRate: 0.875,
		SuccessRate:   0.75,
		StrongRate:    0.25,
	}})
	out := sb.String()
	assert.Contains(t, out, "NVDA")
	assert.Contains(t, out, "AMD")
	assert.Contains(t, out, "0.613")
	assert.Contains(t, out, "87.5%")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "25.0%")
}
