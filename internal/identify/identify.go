// Package identify holds the pattern detectors that turn a stream of bars into trade candidates.
//
// Detectors are a closed set. The session switches on the concrete type to decide whether to feed
// one bar (single-symbol patterns) or a pair of bars (two-symbol patterns) on each tick.
package identify

import (
	"time"

	"github.com/shopspring/decimal"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

// Identifier is implemented by *HigherHighsHigherLows and *FastFollower only.
type Identifier interface {
	Name() string
	identifier()
}

// Candidate is a detected opportunity, not yet committed to an order.
// Implemented by HigherHighsCandidate and FastFollowerCandidate only.
type Candidate interface {
	// TradeSymbol is the symbol to buy.
	TradeSymbol() string
	// TargetBuyPrice is the close of the triggering bar, rounded to 4 decimals.
	TargetBuyPrice() float64
	candidate()
}

type HigherHighsCandidate struct {
	Symbol   string
	BuyPrice float64
}

func (c HigherHighsCandidate) TradeSymbol() string     { return c.Symbol }
func (c HigherHighsCandidate) TargetBuyPrice() float64 { return c.BuyPrice }
func (HigherHighsCandidate) candidate()                {}

type FastFollowerCandidate struct {
	IndependentSymbol string
	DependentSymbol   string
	BuyPrice          float64
}

func (c FastFollowerCandidate) TradeSymbol() string     { return c.DependentSymbol }
func (c FastFollowerCandidate) TargetBuyPrice() float64 { return c.BuyPrice }
func (FastFollowerCandidate) candidate()                {}

// decisionTime is when a bar becomes usable: the end of its window.
func decisionTime(bar models.Bar) time.Time {
	return bar.Timestamp.Add(calendar.BarInterval)
}

func roundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}
