// Package strategy turns a strategy file into session parameters and per-day identifiers.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/config"
	"intraday_trading/internal/identify"
	"intraday_trading/internal/market"
	"intraday_trading/internal/pairs"
	"intraday_trading/internal/session"
)

// Builder creates identifiers for each trading day.
type Builder struct {
	cfg      *config.Strategy
	bars     market.BarSource
	calendar market.Calendar
	log      *log.Entry

	// last pair selection, kept for reporting
	pairs []pairs.Pair
}

func NewBuilder(cfg *config.Strategy, bars market.BarSource, cal market.Calendar) *Builder {
	return &Builder{
		cfg:      cfg,
		bars:     bars,
		calendar: cal,
		log:      log.WithFields(log.Fields{"component": "strategy", "strategy": cfg.Strategy}),
	}
}

// SessionParams are the trading rules the strategy imposes on a session.
func (b *Builder) SessionParams() session.Params {
	return session.Params{
		MaxConcurrentTrades:    b.cfg.MaxConcurrentTrades,
		LatestTradeTime:        b.cfg.LatestTradeTime,
		HoldDuration:           time.Duration(b.cfg.HoldDurationMinutes) * time.Minute,
		TradeAmountPerPosition: decimal.NewFromFloat(b.cfg.TradeAmountPerPosition),
	}
}

// BuyingPower is the starting cash of a fresh run.
func (b *Builder) BuyingPower() decimal.Decimal {
	return decimal.NewFromFloat(b.cfg.BuyingPower)
}

// PairParams maps the fast follower settings onto pair selection.
func (b *Builder) PairParams() pairs.Params {
	ff := b.cfg.FastFollower
	return pairs.Params{
		LookbackDays:        ff.LookbackWindow,
		EffectWindowMinutes: ff.EffectWindowMinutes,
		TriggerPct:          ff.PairTriggerPct,
		MinCount:            ff.MinCount,
		MeanGainPct:         ff.MeanGainThreshold,
		SuccessRate:         ff.SuccessRateThreshold,
	}
}

// Pairs returns the pairs chosen by the latest fast follower Identifiers call.
func (b *Builder) Pairs() []pairs.Pair { return b.pairs }

// Identifiers builds fresh identifiers for date, so no pattern window spans two days.
func (b *Builder) Identifiers(ctx context.Context, date time.Time) ([]identify.Identifier, error) {
	switch b.cfg.Strategy {
	case config.HigherHighsHigherLows:
		params := identify.HigherHighsParams{
			MinimumGainPct:    b.cfg.MinimumGainPct,
			MaximumDropPct:    b.cfg.MaximumDropPct,
			EarliestTradeTime: b.cfg.EarliestTradeTime,
		}
		out := make([]identify.Identifier, 0, len(b.cfg.Symbols))
		for _, sym := range b.cfg.Symbols {
			out = append(out, identify.NewHigherHighsHigherLows(sym, params))
		}
		return out, nil

	case config.FastFollower:
		selected, err := pairs.Select(ctx, b.bars, b.calendar, date, b.cfg.Symbols, b.PairParams())
		if err != nil {
			return nil, fmt.Errorf("select pairs: %w", err)
		}
		b.pairs = selected

		params := identify.FastFollowerParams{
			IndependentTriggerPct: b.cfg.FastFollower.IndependentTriggerPct,
			DependentTriggerPct:   b.cfg.FastFollower.DependentTriggerPct,
			EarliestTradeTime:     b.cfg.EarliestTradeTime,
		}
		out := make([]identify.Identifier, 0, len(selected))
		for _, p := range selected {
			out = append(out, identify.NewFastFollower(p.Independent, p.Dependent, params))
		}
		if len(out) == 0 {
			b.log.WithField("date", calendar.DateString(date)).Warn("No pairs selected, nothing to trade today")
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", b.cfg.Strategy)
}
