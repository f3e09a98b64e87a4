package identify

import (
	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

// HigherHighsParams configure HigherHighsHigherLows.
type HigherHighsParams struct {
	// MinimumGainPct is the floor for high gain + low gain across the window, in percent.
	MinimumGainPct float64
	// MaximumDropPct caps 100*(high/close-1) of the last bar.
	MaximumDropPct float64
	// EarliestTradeTime suppresses triggers whose decision time is earlier.
	EarliestTradeTime calendar.TimeOfDay
}

const higherHighsWindow = 3

// HigherHighsHigherLows watches one symbol for three bars with strictly rising highs and lows.
type HigherHighsHigherLows struct {
	Symbol string
	params HigherHighsParams
	recent []models.Bar
}

func NewHigherHighsHigherLows(symbol string, params HigherHighsParams) *HigherHighsHigherLows {
	return &HigherHighsHigherLows{
		Symbol: symbol,
		params: params,
		recent: make([]models.Bar, 0, higherHighsWindow),
	}
}

func (h *HigherHighsHigherLows) Name() string { return "higher_highs_higher_lows:" + h.Symbol }
func (*HigherHighsHigherLows) identifier()    {}

// ConsumeBar appends bar to the window and reports whether the pattern completed on it.
// Bars must arrive at most once per tick in non-decreasing time order.
// The window advances even while the earliest trade time has not been reached.
func (h *HigherHighsHigherLows) ConsumeBar(bar models.Bar) (bool, Candidate) {
	if len(h.recent) == higherHighsWindow {
		copy(h.recent, h.recent[1:])
		h.recent = h.recent[:higherHighsWindow-1]
	}
	h.recent = append(h.recent, bar)

	if calendar.TimeOfDayOf(decisionTime(bar)) < h.params.EarliestTradeTime || len(h.recent) < higherHighsWindow {
		return false, nil
	}

	b0, b1, b2 := h.recent[0], h.recent[1], h.recent[2]
	if !(b0.High < b1.High && b1.High < b2.High) || !(b0.Low < b1.Low && b1.Low < b2.Low) {
		return false, nil
	}

	highGain := 100 * (b2.High/b0.High - 1)
	lowGain := 100 * (b2.Low/b0.Low - 1)
	drop := 100 * (b2.High/b2.Close - 1)
	if highGain+lowGain < h.params.MinimumGainPct || drop > h.params.MaximumDropPct {
		return false, nil
	}
	return true, HigherHighsCandidate{Symbol: h.Symbol, BuyPrice: roundPrice(b2.Close)}
}
