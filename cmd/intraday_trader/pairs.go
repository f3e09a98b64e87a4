package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/config"
	"intraday_trading/internal/pairs"
	"intraday_trading/internal/reporting"
	"intraday_trading/internal/strategy"
)

var pairsCmd = &cobra.Command{
	Use:   "pairs --date 2024-07-15",
	Short: "Print the fast follower pairs selected for a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		dateFlag, _ := cmd.Flags().GetString("date")
		date, err := parseDateFlag("date", dateFlag)
		if err != nil {
			return err
		}

		strat, err := config.LoadStrategy(strategyPath)
		if err != nil {
			return err
		}
		if strat.Strategy != config.FastFollower {
			return fmt.Errorf("strategy %q does not select pairs", strat.Strategy)
		}

		src := openDataSource(cfg, cfg.QueryMode)
		builder := strategy.NewBuilder(strat, src, src)
		selected, err := pairs.Select(cmd.Context(), src, src, date, strat.Symbols, builder.PairParams())
		if err != nil {
			return err
		}

		fmt.Printf("Fast follower pairs for %s\n", calendar.DateString(date))
		reporting.Pairs(os.Stdout, selected)
		return nil
	},
}

func init() {
	pairsCmd.Flags().String("date", "", "date the pairs would trade on (YYYY-MM-DD)")
	pairsCmd.MarkFlagRequired("date")
}
