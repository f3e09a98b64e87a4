package market

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

var day = calendar.Date(2024, time.July, 2)

func at(clock string) time.Time {
	return calendar.MustTimeOfDay(clock).On(day)
}

func bar(symbol, clock string, open, close float64) models.Bar {
	return models.Bar{Symbol: symbol, Timestamp: at(clock), Open: open, High: close + 0.1, Low: open - 0.1, Close: close}
}

func TestFrameDeduplicatesFirstKept(t *testing.T) {
	f := NewFrame([]models.Bar{
		bar("AAPL", "09:35:00", 10, 11),
		bar("AAPL", "09:30:00", 9, 10),
		bar("AAPL", "09:35:00", 99, 99),
		bar("MSFT", "09:35:00", 20, 21),
	})

	assert.Equal(t, 3, f.Len())
	b, ok := f.At("AAPL", at("09:35:00"))
	require.True(t, ok)
	assert.Equal(t, 10.0, b.Open)

	first, last := f.Span()
	assert.Equal(t, at("09:30:00"), first)
	assert.Equal(t, at("09:35:00"), last)
	assert.Equal(t, []string{"AAPL", "MSFT"}, f.Symbols())
}

func TestFrameWindow(t *testing.T) {
	f := NewFrame([]models.Bar{
		bar("AAPL", "09:30:00", 9, 10),
		bar("AAPL", "09:35:00", 10, 11),
		bar("MSFT", "09:35:00", 20, 21),
		bar("AAPL", "09:40:00", 11, 12),
	})

	got := f.Window(at("09:35:00"), at("09:35:00"), nil)
	require.Len(t, got, 2)

	got = f.Window(at("09:30:00"), at("09:40:00"), []string{"AAPL"})
	require.Len(t, got, 3)
	for _, b := range got {
		assert.Equal(t, "AAPL", b.Symbol)
	}

	assert.Empty(t, f.Window(at("09:30:00"), at("09:40:00"), []string{}))
}

func TestMemorySourceLatestBar(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource([]models.Bar{
		bar("AAPL", "09:35:00", 10, 11),
		bar("AAPL", "09:40:00", 11, 12),
	})

	// The 09:40 bar closed at 09:44:59.
	b, ok, err := src.LatestBar(ctx, "AAPL", at("09:45:00"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, at("09:40:00"), b.Timestamp)

	// At 09:44 only the 09:35 bar is complete.
	b, ok, err = src.LatestBar(ctx, "AAPL", at("09:44:00"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, at("09:35:00"), b.Timestamp)

	_, ok, err = src.LatestBar(ctx, "MSFT", at("09:45:00"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySourceHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewMemorySource(nil).LatestBar(ctx, "AAPL", at("09:45:00"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLatestBySymbol(t *testing.T) {
	got := LatestBySymbol([]models.Bar{
		bar("AAPL", "09:35:00", 10, 11),
		bar("MSFT", "09:35:00", 20, 21),
		bar("AAPL", "09:35:00", 99, 99),
	})
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got["AAPL"].Open)
}

const sampleCSV = `timestamp,symbol,open,high,low,close,volume,trade_count,vwap
2024-07-02 09:30:00-04:00,AAPL,216.5,217.0,216.1,216.8,120000.0,1500.0,216.6
2024-07-02 09:35:00-04:00,AAPL,216.8,217.4,216.7,217.3,98000,1200,217.1
2024-07-02 09:35:00-04:00,MSFT,450.1,451.0,449.9,450.7,50000,800,450.4
`

func writeDay(t *testing.T, dir string, date time.Time, body string) {
	t.Helper()
	path := filepath.Join(dir, FileName(date, calendar.BarInterval))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestFileSourceReadsDayFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeDay(t, dir, day, sampleCSV)

	src := NewFileSource(dir)

	b, ok, err := src.LatestBar(ctx, "AAPL", at("09:40:00"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 216.8, b.Open)
	assert.Equal(t, int64(98000), b.Volume)
	assert.True(t, b.Timestamp.Equal(at("09:35:00")))

	bars, err := src.Bars(ctx, at("09:35:00"), at("09:35:00"), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	bars, err = src.Bars(ctx, at("09:30:00"), at("09:35:00"), []string{"AAPL"})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(120000), bars[0].Volume)
}

func TestFileSourceMissingDay(t *testing.T) {
	src := NewFileSource(t.TempDir())
	_, _, err := src.LatestBar(context.Background(), "AAPL", at("09:40:00"))
	assert.ErrorIs(t, err, ErrNoBarFile)
}

func TestFileSourceTradingDates(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, calendar.Date(2024, time.July, 1), sampleCSV)
	writeDay(t, dir, calendar.Date(2024, time.July, 3), sampleCSV)
	writeDay(t, dir, calendar.Date(2024, time.July, 6), sampleCSV) // Saturday
	writeDay(t, dir, calendar.Date(2024, time.July, 9), sampleCSV)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	src := NewFileSource(dir)
	dates, err := src.TradingDates(context.Background(), calendar.Date(2024, time.July, 1), calendar.Date(2024, time.July, 8))
	require.NoError(t, err)

	var got []string
	for _, d := range dates {
		got = append(got, calendar.DateString(d))
	}
	assert.Equal(t, []string{"2024-07-01", "2024-07-03"}, got)
}

func TestFileSourceCacheIsBounded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for d := 1; d <= 3; d++ {
		writeDay(t, dir, calendar.Date(2024, time.July, d), sampleCSV)
	}

	src := NewFileSource(dir)
	src.cacheDays = 2
	for d := 1; d <= 3; d++ {
		_, err := src.Day(ctx, calendar.Date(2024, time.July, d))
		require.NoError(t, err)
	}
	assert.Len(t, src.days, 2)
	assert.Equal(t, []string{"2024-07-02", "2024-07-03"}, src.order)
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, s := range []string{
		"2024-07-02 09:35:00-04:00",
		"2024-07-02T09:35:00-04:00",
		"2024-07-02T13:35:00Z",
		"2024-07-02 09:35:00",
	} {
		ts, err := parseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, ts.Equal(at("09:35:00")), s)
	}

	_, err := parseTimestamp("yesterday")
	assert.Error(t, err)
}
