package pairs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/market"
	"intraday_trading/internal/models"
)

var clocks = []string{"09:30:00", "09:35:00", "09:40:00", "09:45:00", "09:50:00", "09:55:00"}

func series(date time.Time, symbol string, oc [][2]float64) []models.Bar {
	var out []models.Bar
	for i, v := range oc {
		out = append(out, models.Bar{
			Symbol:    symbol,
			Timestamp: calendar.MustTimeOfDay(clocks[i]).On(date),
			Open:      v[0],
			High:      v[0] + 1,
			Low:       v[1] - 1,
			Close:     v[1],
		})
	}
	return out
}

// day builds a session where LEAD jumps 2% into the 09:40 bar, FOLLOW gains 1% over the next
// two bars and LAG loses 0.5%. No other bar triggers.
func day(date time.Time) []models.Bar {
	var bars []models.Bar
	bars = append(bars, series(date, "LEAD", [][2]float64{
		{100, 100.5}, {101.5, 101}, {101, 102}, {102, 102}, {102, 102}, {102, 102},
	})...)
	bars = append(bars, series(date, "FOLLOW", [][2]float64{
		{50, 50}, {50, 50}, {50, 50}, {50, 50.2}, {50.2, 50.5}, {50.5, 50.5},
	})...)
	bars = append(bars, series(date, "LAG", [][2]float64{
		{20, 20}, {20, 20}, {20, 20}, {20, 20}, {20, 19.9}, {19.9, 19.9},
	})...)
	return bars
}

var params = Params{
	LookbackDays:        10,
	EffectWindowMinutes: 10,
	TriggerPct:          1,
	MinCount:            3,
	MeanGainPct:         0.5,
	SuccessRate:         0.666,
}

func threeDays() []models.Bar {
	var bars []models.Bar
	for d := 1; d <= 3; d++ {
		bars = append(bars, day(calendar.Date(2024, time.July, d))...)
	}
	return bars
}

func TestComputeKeepsReliableFollower(t *testing.T) {
	got := Compute(threeDays(), params)
	require.Len(t, got, 1)

	p := got[0]
	assert.Equal(t, "LEAD", p.Independent)
	assert.Equal(t, "FOLLOW", p.Dependent)
	assert.Equal(t, 3, p.Count)
	assert.InDelta(t, 1.0, p.MeanGainPct, 1e-9)
	assert.InDelta(t, 1.0, p.SuccessRate, 1e-9)
	assert.InDelta(t, 1.0, p.BreakEvenRate, 1e-9)
	assert.InDelta(t, 1.0, p.StrongRate, 1e-6)
}

func TestComputeFilters(t *testing.T) {
	p := params
	p.MinCount = 4
	assert.Empty(t, Compute(threeDays(), p))

	p = params
	p.MeanGainPct = -1
	p.SuccessRate = 0
	got := Compute(threeDays(), p)
	require.Len(t, got, 2)
	// Sorted by independent then dependent; a symbol is never paired with itself.
	assert.Equal(t, "FOLLOW", got[0].Dependent)
	assert.Equal(t, "LAG", got[1].Dependent)
	assert.InDelta(t, -0.5, got[1].MeanGainPct, 1e-9)
	assert.InDelta(t, 0.0, got[1].SuccessRate, 1e-9)

	p = params
	p.TriggerPct = 5
	assert.Empty(t, Compute(threeDays(), p))
}

func TestComputeDoesNotShiftAcrossDays(t *testing.T) {
	// One bar per day per symbol: no row has two prior bars on the same day.
	var bars []models.Bar
	for d := 1; d <= 5; d++ {
		bars = append(bars, series(calendar.Date(2024, time.July, d), "LEAD", [][2]float64{{100, 103}})...)
	}
	assert.Empty(t, observations(bars, 1))
}

func TestSelectUsesLookbackDays(t *testing.T) {
	src := market.NewMemorySource(threeDays())
	p := params
	p.LookbackDays = 2
	p.MinCount = 2

	got, err := Select(context.Background(), src, src, calendar.Date(2024, time.July, 5), nil, p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Count)

	got, err = Select(context.Background(), src, src, calendar.Date(2024, time.July, 1), nil, p)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Select(context.Background(), src, src, calendar.Date(2024, time.July, 5), nil, Params{})
	assert.Error(t, err)
}
