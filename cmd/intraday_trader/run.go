package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/config"
	"intraday_trading/internal/market"
	"intraday_trading/internal/market/alpaca"
	"intraday_trading/internal/models"
	"intraday_trading/internal/reporting"
	"intraday_trading/internal/session"
	"intraday_trading/internal/storage"
	"intraday_trading/internal/strategy"
)

// dataSource is a bar source that also knows the trading calendar.
type dataSource interface {
	market.BarSource
	market.Calendar
}

func alpacaOptions(c *config.Config) alpaca.Options {
	return alpaca.Options{
		APIKey:    c.APIKeyID,
		APISecret: c.APISecretKey,
		BaseURL:   c.APIBaseURL,
		Feed:      c.DataFeed,
	}
}

func openDataSource(c *config.Config, mode config.QueryMode) dataSource {
	if mode == config.QueryAPI {
		return alpaca.NewProvider(alpacaOptions(c))
	}
	return market.NewFileSource(c.DataDir)
}

func parseDateFlag(name, value string) (time.Time, error) {
	d, err := calendar.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

// startingBalance picks the buying power for a run: the saved balance when resuming, else the strategy's.
func startingBalance(state models.SessionState, b *strategy.Builder, resume bool) decimal.Decimal {
	if resume && state.BuyingPower.IsPositive() {
		log.WithFields(log.Fields{
			"buying_power":      state.BuyingPower.StringFixed(2),
			"last_trading_date": state.LastTradingDate,
		}).Info("Resuming from saved state")
		return state.BuyingPower
	}
	return b.BuyingPower()
}

// runSession trades dates and persists whatever was traded, also when the run stops early.
func runSession(ctx context.Context, opts session.Options, dates []time.Time, state models.SessionState, mode config.QueryMode) error {
	sess := session.New(opts)
	results, runErr := sess.Run(ctx, dates)
	if len(results) == 0 && sess.Tracker().Len() == 0 {
		return runErr
	}

	reporting.DaySummary(os.Stdout, results, opts.BuyingPower)
	rows := sess.Tracker().Table()
	reporting.Trades(os.Stdout, rows)

	lastDate := dates[0]
	if len(results) > 0 {
		lastDate = results[len(results)-1].Date
	}
	path, err := storage.WriteTradeHistoryCSV(cfg.OutputDir, storage.TradeHistoryFileName(lastDate, string(mode)), rows)
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("write trade history: %w", err))
	}
	log.WithFields(log.Fields{"path": path, "trades": len(rows)}).Info("Trade history written")

	if cfg.DBPath != "" {
		if err := saveToDatabase(ctx, cfg.DBPath, sess); err != nil {
			return errors.Join(runErr, err)
		}
	}

	for _, r := range results {
		state.RealizedProfit = state.RealizedProfit.Add(decimal.NewFromFloat(r.RealizedProfit))
		state.TradeCount += r.TradesOpened
	}
	state.BuyingPower = sess.BuyingPower()
	state.LastTradingDate = calendar.DateString(lastDate)
	if err := storage.SaveState(cfg.StateFile, state); err != nil {
		return errors.Join(runErr, fmt.Errorf("save state: %w", err))
	}
	return runErr
}

func saveToDatabase(ctx context.Context, path string, sess *session.Session) error {
	store, err := storage.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := uuid.NewString()
	// The run may have been cancelled; the rows are still worth keeping.
	if err := store.SaveTrades(context.WithoutCancel(ctx), runID, sess.Tracker().Table()); err != nil {
		return fmt.Errorf("save trades: %w", err)
	}
	log.WithFields(log.Fields{"path": path, "run_id": runID}).Info("Trades saved to database")
	return nil
}
