package identify

import (
	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

type FastFollowerParams struct {
	IndependentTriggerPct float64
	DependentTriggerPct   float64
	EarliestTradeTime     calendar.TimeOfDay
}

// FastFollower fires when an independent symbol and its follower both move up in the same bar.
// The trade is placed on the dependent symbol.
type FastFollower struct {
	IndependentSymbol string
	DependentSymbol   string
	params            FastFollowerParams
}

func NewFastFollower(independent, dependent string, params FastFollowerParams) *FastFollower {
	return &FastFollower{IndependentSymbol: independent, DependentSymbol: dependent, params: params}
}

func (f *FastFollower) Name() string {
	return "fast_follower:" + f.IndependentSymbol + "->" + f.DependentSymbol
}
func (*FastFollower) identifier() {}

// ConsumeBarPair evaluates one bar of each symbol from the same tick.
// Both moves must be strictly greater than their thresholds.
func (f *FastFollower) ConsumeBarPair(independent, dependent models.Bar) (bool, Candidate) {
	if calendar.TimeOfDayOf(decisionTime(independent)) < f.params.EarliestTradeTime {
		return false, nil
	}
	if independent.ChangePct() <= f.params.IndependentTriggerPct || dependent.ChangePct() <= f.params.DependentTriggerPct {
		return false, nil
	}
	return true, FastFollowerCandidate{
		IndependentSymbol: f.IndependentSymbol,
		DependentSymbol:   f.DependentSymbol,
		BuyPrice:          roundPrice(dependent.Close),
	}
}
