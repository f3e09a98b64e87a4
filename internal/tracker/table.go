package tracker

import (
	"time"

	"github.com/shopspring/decimal"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

// Columns is the fixed field set of the trade history table.
var Columns = []string{
	"decision_time", "symbol", "shares", "position_side", "outcome",
	"buy_time", "target_buy_price", "actual_buy_price",
	"sell_time", "target_sell_price", "actual_sell_price", "actual_gain", "actual_profit",
}

const pricePlaces = 4

// TradeRow is one row of the trade history table.
// Unknown prices and times are left invalid/empty; numbers are rounded to 4 decimals.
type TradeRow struct {
	DecisionTime    time.Time
	Symbol          string
	Shares          int64
	PositionSide    models.PositionSide
	Outcome         models.Outcome
	BuyTime         string // 15:04:05, empty until filled
	TargetBuyPrice  decimal.NullDecimal
	ActualBuyPrice  decimal.NullDecimal
	SellTime        string
	TargetSellPrice decimal.NullDecimal
	ActualSellPrice decimal.NullDecimal
	ActualGain      decimal.NullDecimal
	ActualProfit    decimal.NullDecimal
}

// Table renders one row per trade, closed trades first.
// Rows for still-active trades show what is known so far, not a final settlement.
func (t *Tracker) Table() []TradeRow {
	trades := t.Trades()
	rows := make([]TradeRow, 0, len(trades))
	for _, trade := range trades {
		rows = append(rows, RowOf(trade))
	}
	return rows
}

// RowOf renders a single trade.
func RowOf(trade *models.Trade) TradeRow {
	row := TradeRow{
		DecisionTime:    trade.DecisionTime,
		Symbol:          trade.Symbol,
		Shares:          trade.Shares,
		PositionSide:    trade.PositionSide,
		Outcome:         trade.Outcome,
		BuyTime:         timeOrEmpty(trade.BuyTime),
		TargetBuyPrice:  price(trade.TargetBuyPrice),
		ActualBuyPrice:  price(trade.ActualBuyPrice),
		SellTime:        timeOrEmpty(trade.SellTime),
		TargetSellPrice: price(trade.TargetSellPrice),
		ActualSellPrice: price(trade.ActualSellPrice),
	}
	if trade.ActualGain != nil {
		row.ActualGain = rounded(*trade.ActualGain)
	}
	if trade.ActualProfit != nil {
		row.ActualProfit = rounded(*trade.ActualProfit)
	}
	return row
}

func timeOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return calendar.TimeString(t)
}

func price(v float64) decimal.NullDecimal {
	if v == 0 {
		return decimal.NullDecimal{}
	}
	return rounded(v)
}

func rounded(v float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v).Round(pricePlaces), Valid: true}
}
