package market

import (
	"context"
	"time"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

// MemorySource serves bars from a Frame held in memory. Tests and replays use it.
type MemorySource struct {
	frame *Frame
	freq  time.Duration
}

var (
	_ BarSource = (*MemorySource)(nil)
	_ Calendar  = (*MemorySource)(nil)
)

func NewMemorySource(bars []models.Bar) *MemorySource {
	return &MemorySource{frame: NewFrame(bars), freq: calendar.BarInterval}
}

func (m *MemorySource) LatestBar(ctx context.Context, symbol string, decisionTime time.Time) (models.Bar, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Bar{}, false, err
	}
	bar, ok := m.frame.At(symbol, calendar.MostRecentBarTime(decisionTime, m.freq))
	return bar, ok, nil
}

func (m *MemorySource) Bars(ctx context.Context, start, end time.Time, symbols []string) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.frame.Window(start, end, symbols), nil
}

// TradingDates lists the weekdays in [start, end] on which the frame has at least one bar.
func (m *MemorySource) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []time.Time
	for _, b := range m.frame.Window(start, end.Add(24*time.Hour-time.Nanosecond), nil) {
		ts := b.Timestamp.In(calendar.NewYork)
		d := calendar.Date(ts.Year(), ts.Month(), ts.Day())
		key := calendar.DateString(d)
		if d.Before(start) || d.After(end) || !calendar.IsWeekday(d) || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out, nil
}
