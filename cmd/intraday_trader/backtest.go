package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/config"
	"intraday_trading/internal/execution"
	"intraday_trading/internal/session"
	"intraday_trading/internal/storage"
	"intraday_trading/internal/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest --start 2024-07-01 --end 2024-07-31",
	Short: "Replay a date range against historical bars",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		startFlag, _ := cmd.Flags().GetString("start")
		endFlag, _ := cmd.Flags().GetString("end")
		resume, _ := cmd.Flags().GetBool("resume")

		start, err := parseDateFlag("start", startFlag)
		if err != nil {
			return err
		}
		end := start
		if endFlag != "" {
			if end, err = parseDateFlag("end", endFlag); err != nil {
				return err
			}
		}
		if end.Before(start) {
			return fmt.Errorf("--end %s is before --start %s", calendar.DateString(end), calendar.DateString(start))
		}

		strat, err := config.LoadStrategy(strategyPath)
		if err != nil {
			return err
		}
		state, err := storage.LoadState(cfg.StateFile)
		if err != nil {
			return err
		}

		src := openDataSource(cfg, cfg.QueryMode)
		dates, err := src.TradingDates(ctx, start, end)
		if err != nil {
			return fmt.Errorf("trading dates: %w", err)
		}
		if len(dates) == 0 {
			log.WithFields(log.Fields{"start": startFlag, "end": endFlag}).Warn("No trading dates in range")
			return nil
		}

		builder := strategy.NewBuilder(strat, src, src)
		opts := session.Options{
			Params:      builder.SessionParams(),
			Bars:        src,
			Broker:      execution.NewSimulatedBroker(src),
			Clock:       session.NewSimulatedClock(dates[0]),
			Identifiers: builder.Identifiers,
			BuyingPower: startingBalance(state, builder, resume),
		}

		log.WithFields(log.Fields{
			"strategy": strat.Strategy,
			"symbols":  len(strat.Symbols),
			"from":     calendar.DateString(dates[0]),
			"to":       calendar.DateString(dates[len(dates)-1]),
			"days":     len(dates),
		}).Info("Backtest started")
		return runSession(ctx, opts, dates, state, cfg.QueryMode)
	},
}

func init() {
	backtestCmd.Flags().String("start", "", "first date to trade (YYYY-MM-DD)")
	backtestCmd.Flags().String("end", "", "last date to trade (YYYY-MM-DD), defaults to --start")
	backtestCmd.Flags().Bool("resume", false, "start from the buying power in the state file")
	backtestCmd.MarkFlagRequired("start")
}
