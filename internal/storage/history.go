package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/tracker"
)

// historyRow is one CSV line. Unknown values are written as empty cells.
type historyRow struct {
	DecisionTime    string `csv:"decision_time"`
	Symbol          string `csv:"symbol"`
	Shares          int64  `csv:"shares"`
	PositionSide    string `csv:"position_side"`
	Outcome         string `csv:"outcome"`
	BuyTime         string `csv:"buy_time"`
	TargetBuyPrice  string `csv:"target_buy_price"`
	ActualBuyPrice  string `csv:"actual_buy_price"`
	SellTime        string `csv:"sell_time"`
	TargetSellPrice string `csv:"target_sell_price"`
	ActualSellPrice string `csv:"actual_sell_price"`
	ActualGain      string `csv:"actual_gain"`
	ActualProfit    string `csv:"actual_profit"`
}

const decisionTimeLayout = "2006-01-02 15:04:05-07:00"

func cell(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func toHistoryRows(rows []tracker.TradeRow) []*historyRow {
	out := make([]*historyRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, &historyRow{
			DecisionTime:    r.DecisionTime.In(calendar.NewYork).Format(decisionTimeLayout),
			Symbol:          r.Symbol,
			Shares:          r.Shares,
			PositionSide:    string(r.PositionSide),
			Outcome:         string(r.Outcome),
			BuyTime:         r.BuyTime,
			TargetBuyPrice:  cell(r.TargetBuyPrice),
			ActualBuyPrice:  cell(r.ActualBuyPrice),
			SellTime:        r.SellTime,
			TargetSellPrice: cell(r.TargetSellPrice),
			ActualSellPrice: cell(r.ActualSellPrice),
			ActualGain:      cell(r.ActualGain),
			ActualProfit:    cell(r.ActualProfit),
		})
	}
	return out
}

// TradeHistoryFileName is purchaseTracker_<YYYYMMDD>_<MODE>.csv for the last date of the run.
func TradeHistoryFileName(lastDate time.Time, mode string) string {
	return fmt.Sprintf("purchaseTracker_%s_%s.csv",
		strings.ReplaceAll(calendar.DateString(lastDate), "-", ""), strings.ToUpper(mode))
}

// WriteTradeHistoryCSV writes the trade table to dir/name and returns the full path.
// The header is written even when there are no trades.
func WriteTradeHistoryCSV(dir, name string, rows []tracker.TradeRow) (string, error) {
	path := filepath.Join(dir, name)
	records := toHistoryRows(rows)
	err := writeAtomic(path, func(f *os.File) error {
		if len(records) == 0 {
			_, err := f.WriteString(strings.Join(tracker.Columns, ",") + "\n")
			return err
		}
		return gocsv.MarshalFile(&records, f)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}
