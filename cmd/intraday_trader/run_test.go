package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/config"
	"intraday_trading/internal/identify"
	"intraday_trading/internal/market"
	"intraday_trading/internal/models"
	"intraday_trading/internal/session"
	"intraday_trading/internal/storage"
)

var runDay = calendar.Date(2024, time.July, 2)

func at(clock string) time.Time {
	return calendar.MustTimeOfDay(clock).On(runDay)
}

// cancelAt is a simulated clock that reports cancellation once asked to wait past stop.
type cancelAt struct {
	session.SimulatedClock
	stop time.Time
}

func (c *cancelAt) SleepUntil(ctx context.Context, t time.Time) error {
	if !t.Before(c.stop) {
		return context.Canceled
	}
	return c.SimulatedClock.SleepUntil(ctx, t)
}

func TestRunSessionPersistsStoppedDay(t *testing.T) {
	dir := t.TempDir()
	prev := cfg
	cfg = &config.Config{
		OutputDir: dir,
		StateFile: filepath.Join(dir, "state.json"),
		DBPath:    filepath.Join(dir, "trades.db"),
	}
	t.Cleanup(func() { cfg = prev })

	bar := func(clock string, open, high, low, close float64) models.Bar {
		return models.Bar{Symbol: "AAPL", Timestamp: at(clock), Open: open, High: high, Low: low, Close: close}
	}
	bars := []models.Bar{
		bar("09:30:00", 9.95, 10.0, 9.90, 9.98),
		bar("09:35:00", 9.98, 10.2, 9.95, 10.15),
		bar("09:40:00", 10.15, 10.5, 10.10, 10.49),
		bar("09:45:00", 10.5, 10.62, 10.05, 10.6),
		bar("09:50:00", 10.6, 10.85, 10.55, 10.8),
		bar("09:55:00", 10.9, 11.0, 10.5, 10.95),
		bar("10:00:00", 10.95, 11.0, 10.9, 10.97),
	}
	opts := session.Options{
		Params: session.Params{
			MaxConcurrentTrades: 2,
			LatestTradeTime:     calendar.MustTimeOfDay("15:45:00"),
			HoldDuration:        10 * time.Minute,
		},
		Bars:  market.NewMemorySource(bars),
		Clock: &cancelAt{stop: at("10:30:00")},
		Identifiers: func(ctx context.Context, date time.Time) ([]identify.Identifier, error) {
			return []identify.Identifier{identify.NewHigherHighsHigherLows("AAPL", identify.HigherHighsParams{
				MinimumGainPct:    4,
				MaximumDropPct:    0.25,
				EarliestTradeTime: calendar.MustTimeOfDay("09:45:00"),
			})}, nil
		},
		BuyingPower: decimal.NewFromInt(100000),
	}

	state := models.SessionState{Version: models.StateVersion}
	err := runSession(context.Background(), opts, []time.Time{runDay}, state, config.QueryFile)
	require.ErrorIs(t, err, context.Canceled)

	csvPath := filepath.Join(dir, storage.TradeHistoryFileName(runDay, string(config.QueryFile)))
	b, err := os.ReadFile(csvPath)
	require.NoError(t, err, "trade history written for the stopped day")
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "AAPL")

	_, err = os.Stat(cfg.DBPath)
	assert.NoError(t, err, "trade database written for the stopped day")

	saved, err := storage.LoadState(cfg.StateFile)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.TradeCount)
	assert.Equal(t, calendar.DateString(runDay), saved.LastTradingDate)
	assert.True(t, saved.BuyingPower.Equal(decimal.RequireFromString("101906.4")), saved.BuyingPower.String())
}
