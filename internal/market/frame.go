package market

import (
	"sort"
	"time"

	"intraday_trading/internal/models"
)

type frameKey struct {
	symbol string
	at     int64
}

// Frame is an immutable, time-ordered set of bars indexed by (symbol, timestamp).
type Frame struct {
	bars  []models.Bar
	index map[frameKey]int
}

// NewFrame builds a frame. Duplicate (symbol, timestamp) pairs keep the first bar.
func NewFrame(bars []models.Bar) *Frame {
	f := &Frame{index: make(map[frameKey]int, len(bars))}
	for _, b := range bars {
		k := frameKey{symbol: b.Symbol, at: b.Timestamp.UnixNano()}
		if _, dup := f.index[k]; dup {
			continue
		}
		f.index[k] = -1
		f.bars = append(f.bars, b)
	}
	sort.SliceStable(f.bars, func(i, j int) bool {
		return f.bars[i].Timestamp.Before(f.bars[j].Timestamp)
	})
	for i, b := range f.bars {
		f.index[frameKey{symbol: b.Symbol, at: b.Timestamp.UnixNano()}] = i
	}
	return f
}

func (f *Frame) Len() int { return len(f.bars) }

// All returns every bar in time order. The slice must not be modified.
func (f *Frame) All() []models.Bar { return f.bars }

// At returns the bar for symbol starting at ts.
func (f *Frame) At(symbol string, ts time.Time) (models.Bar, bool) {
	i, ok := f.index[frameKey{symbol: symbol, at: ts.UnixNano()}]
	if !ok {
		return models.Bar{}, false
	}
	return f.bars[i], true
}

// Window returns bars with start <= timestamp <= end. A nil symbol list means every symbol.
func (f *Frame) Window(start, end time.Time, symbols []string) []models.Bar {
	var want map[string]bool
	if symbols != nil {
		want = make(map[string]bool, len(symbols))
		for _, s := range symbols {
			want[s] = true
		}
	}

	from := sort.Search(len(f.bars), func(i int) bool { return !f.bars[i].Timestamp.Before(start) })
	var out []models.Bar
	for i := from; i < len(f.bars) && !f.bars[i].Timestamp.After(end); i++ {
		if want == nil || want[f.bars[i].Symbol] {
			out = append(out, f.bars[i])
		}
	}
	return out
}

// Symbols lists the distinct symbols in first-seen time order.
func (f *Frame) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range f.bars {
		if !seen[b.Symbol] {
			seen[b.Symbol] = true
			out = append(out, b.Symbol)
		}
	}
	return out
}

// Span returns the first and last bar timestamps.
func (f *Frame) Span() (first, last time.Time) {
	if len(f.bars) == 0 {
		return time.Time{}, time.Time{}
	}
	return f.bars[0].Timestamp, f.bars[len(f.bars)-1].Timestamp
}
