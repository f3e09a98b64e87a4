package models

import "github.com/shopspring/decimal"

// StateVersion is the current schema of the session state file.
const StateVersion = "2.1"

// SessionState is what a run carries over to the next one.
// This struct matches the structure of our JSON storage file.
type SessionState struct {
	Version         string          `json:"version"`           // Schema version for future compatibility
	LastSync        string          `json:"last_sync"`         // Timestamp of last file save
	LastTradingDate string          `json:"last_trading_date"` // yyyy-mm-dd of the last completed session
	BuyingPower     decimal.Decimal `json:"buying_power"`      // Cash available at the start of the next session
	RealizedProfit  decimal.Decimal `json:"realized_profit"`   // Running total across sessions
	TradeCount      int             `json:"trade_count"`       // Trades opened across sessions
}
