package main

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/config"
	"intraday_trading/internal/execution"
	"intraday_trading/internal/market/alpaca"
	"intraday_trading/internal/session"
	"intraday_trading/internal/storage"
	"intraday_trading/internal/strategy"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Trade today's session on streamed Alpaca bars with simulated fills",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.APIKeyID == "" || cfg.APISecretKey == "" {
			return errors.New("live trading needs APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
		strat, err := config.LoadStrategy(strategyPath)
		if err != nil {
			return err
		}
		state, err := storage.LoadState(cfg.StateFile)
		if err != nil {
			return err
		}

		now := time.Now().In(calendar.NewYork)
		today := calendar.Date(now.Year(), now.Month(), now.Day())
		if state.LastTradingDate == calendar.DateString(today) {
			return fmt.Errorf("session for %s already completed", state.LastTradingDate)
		}

		opts := alpacaOptions(cfg)
		src := alpaca.NewBarStream(opts, alpaca.NewProvider(opts))
		dates, err := src.TradingDates(ctx, today, today)
		if err != nil {
			return fmt.Errorf("trading calendar: %w", err)
		}
		if len(dates) == 0 {
			log.WithField("date", calendar.DateString(today)).Info("Market closed today, nothing to do")
			return nil
		}

		if err := src.Start(ctx, strat.Symbols); err != nil {
			return fmt.Errorf("subscribe to bars: %w", err)
		}

		builder := strategy.NewBuilder(strat, src, src)
		sessOpts := session.Options{
			Params:      builder.SessionParams(),
			Bars:        src,
			Broker:      execution.NewSimulatedBroker(src),
			Clock:       session.WallClock{},
			Identifiers: builder.Identifiers,
			BuyingPower: startingBalance(state, builder, true),
		}

		log.WithFields(log.Fields{
			"strategy": strat.Strategy,
			"symbols":  len(strat.Symbols),
			"date":     calendar.DateString(today),
		}).Info("Live session started")
		return runSession(ctx, sessOpts, dates, state, config.QueryAPI)
	},
}
