// Package reporting renders run results as text tables for the terminal.
package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/pairs"
	"intraday_trading/internal/session"
	"intraday_trading/internal/tracker"
)

func signed(v decimal.Decimal) string {
	icon := "🟢"
	if v.IsNegative() {
		icon = "🔴"
	}
	return icon + " " + v.StringFixed(2)
}

func cell(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}

func pct(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

// DaySummary writes one row per trading day plus a totals footer.
func DaySummary(w io.Writer, days []session.DayResult, startingBalance decimal.Decimal) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Opened", "Closed", "Realized P/L", "Open P/L", "Buying Power"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	var opened, closed int
	realized := decimal.Zero
	end := startingBalance
	for _, d := range days {
		r := decimal.NewFromFloat(d.RealizedProfit)
		open := decimal.NewFromFloat(d.CurrentProfit - d.RealizedProfit)
		table.Append([]string{
			calendar.DateString(d.Date),
			strconv.Itoa(d.TradesOpened),
			strconv.Itoa(d.TradesClosed),
			signed(r),
			open.StringFixed(2),
			"$" + d.BuyingPower.StringFixed(2),
		})
		opened += d.TradesOpened
		closed += d.TradesClosed
		realized = realized.Add(r)
		end = d.BuyingPower
	}

	change := decimal.Zero
	if !startingBalance.IsZero() {
		change = end.Sub(startingBalance).Div(startingBalance).Mul(decimal.NewFromInt(100))
	}
	table.SetFooter([]string{
		fmt.Sprintf("%d days", len(days)),
		strconv.Itoa(opened),
		strconv.Itoa(closed),
		signed(realized),
		"",
		change.StringFixed(2) + "%",
	})
	table.Render()
}

// Trades writes the trade history table.
func Trades(w io.Writer, rows []tracker.TradeRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "ℹ️ No trades.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Decision", "Symbol", "Shares", "Buy", "Price", "Sell", "Price", "Gain %", "Profit"})
	for _, r := range rows {
		table.Append([]string{
			calendar.DateTimeString(r.DecisionTime),
			r.Symbol,
			strconv.FormatInt(r.Shares, 10),
			r.BuyTime,
			cell(r.ActualBuyPrice),
			r.SellTime,
			cell(r.ActualSellPrice),
			cell(r.ActualGain),
			cell(r.ActualProfit),
		})
	}
	table.Render()
}

// Pairs writes the selected fast follower pairs with their training statistics.
func Pairs(w io.Writer, selected []pairs.Pair) {
	if len(selected) == 0 {
		fmt.Fprintln(w, "ℹ️ No pairs passed the filters.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Leader", "Follower", "Count", "Mean Gain %", "Break Even", "Success", "Gain >= 1%"})
	for _, p := range selected {
		table.Append([]string{
			p.Independent,
			p.Dependent,
			strconv.Itoa(p.Count),
			strconv.FormatFloat(p.MeanGainPct, 'f', 3, 64),
			pct(p.BreakEvenRate),
			pct(p.SuccessRate),
			pct(p.StrongRate),
		})
	}
	table.Render()
}
