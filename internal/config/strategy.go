package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"intraday_trading/internal/calendar"
)

// StrategyKind names a trading strategy.
type StrategyKind string

const (
	HigherHighsHigherLows StrategyKind = "higher_highs_higher_lows"
	FastFollower          StrategyKind = "fast_follower"
)

// FastFollowerParams covers both pair selection and the intraday trigger.
type FastFollowerParams struct {
	IndependentTriggerPct float64 `yaml:"independent_trigger_pct"`
	DependentTriggerPct   float64 `yaml:"dependent_trigger_pct"`

	PairTriggerPct       float64 `yaml:"pair_trigger_pct"`
	EffectWindowMinutes  int     `yaml:"effect_window_minutes"`
	LookbackWindow       int     `yaml:"lookback_window"`
	MinCount             int     `yaml:"min_count"`
	MeanGainThreshold    float64 `yaml:"mean_gain_threshold"`
	SuccessRateThreshold float64 `yaml:"success_rate_threshold"`
}

// Strategy is the YAML strategy file.
type Strategy struct {
	Strategy StrategyKind `yaml:"strategy"`
	Symbols  []string     `yaml:"symbols"`

	MinimumGainPct float64 `yaml:"minimum_gain_pct"`
	MaximumDropPct float64 `yaml:"maximum_drop_pct"`

	EarliestTradeTime   calendar.TimeOfDay `yaml:"earliest_trade_time"`
	LatestTradeTime     calendar.TimeOfDay `yaml:"latest_trade_time"`
	HoldDurationMinutes int                `yaml:"hold_duration_minutes"`

	MaxConcurrentTrades    int     `yaml:"max_concurrent_trades"`
	BuyingPower            float64 `yaml:"buying_power"`
	TradeAmountPerPosition float64 `yaml:"trade_amount_per_position"` // 0 = buying power / max concurrent trades

	FastFollower FastFollowerParams `yaml:"fast_follower"`
}

// DefaultStrategy returns the parameters the strategies were tuned with.
func DefaultStrategy(kind StrategyKind) Strategy {
	s := Strategy{
		Strategy:            kind,
		EarliestTradeTime:   calendar.MustTimeOfDay("09:50:00"),
		MaxConcurrentTrades: 2,
		BuyingPower:         100000,
	}
	switch kind {
	case FastFollower:
		s.LatestTradeTime = calendar.MustTimeOfDay("15:40:00")
		s.HoldDurationMinutes = 15
		s.FastFollower = FastFollowerParams{
			IndependentTriggerPct: 0.5,
			DependentTriggerPct:   0.5,
			PairTriggerPct:        1.0,
			EffectWindowMinutes:   15,
			LookbackWindow:        10,
			MinCount:              7,
			MeanGainThreshold:     0.5,
			SuccessRateThreshold:  0.666,
		}
	default:
		s.MinimumGainPct = 4.0
		s.MaximumDropPct = 0.25
		s.LatestTradeTime = calendar.MustTimeOfDay("15:45:00")
		s.HoldDurationMinutes = 10
	}
	return s
}

// LoadStrategy reads a strategy file. Keys left out keep the defaults of the named strategy.
func LoadStrategy(path string) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file: %w", err)
	}
	return ParseStrategy(data)
}

// ParseStrategy is LoadStrategy for bytes already in memory.
func ParseStrategy(data []byte) (*Strategy, error) {
	var probe struct {
		Strategy StrategyKind `yaml:"strategy"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse strategy: %w", err)
	}
	if probe.Strategy == "" {
		probe.Strategy = HigherHighsHigherLows
	}

	s := DefaultStrategy(probe.Strategy)
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse strategy: %w", err)
	}
	s.Strategy = probe.Strategy
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Strategy) Validate() error {
	var errs []error
	switch s.Strategy {
	case HigherHighsHigherLows, FastFollower:
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", s.Strategy))
	}
	if len(s.Symbols) == 0 {
		errs = append(errs, errors.New("symbols must not be empty"))
	}
	if s.MaxConcurrentTrades <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrent_trades must be positive, got %d", s.MaxConcurrentTrades))
	}
	if s.HoldDurationMinutes <= 0 {
		errs = append(errs, fmt.Errorf("hold_duration_minutes must be positive, got %d", s.HoldDurationMinutes))
	}
	if s.BuyingPower <= 0 {
		errs = append(errs, fmt.Errorf("buying_power must be positive, got %v", s.BuyingPower))
	}
	if s.TradeAmountPerPosition < 0 {
		errs = append(errs, fmt.Errorf("trade_amount_per_position must not be negative, got %v", s.TradeAmountPerPosition))
	}
	if s.LatestTradeTime < s.EarliestTradeTime {
		errs = append(errs, fmt.Errorf("latest_trade_time %s is before earliest_trade_time %s", s.LatestTradeTime, s.EarliestTradeTime))
	}
	if s.Strategy == FastFollower {
		ff := s.FastFollower
		if ff.LookbackWindow <= 0 {
			errs = append(errs, fmt.Errorf("fast_follower.lookback_window must be positive, got %d", ff.LookbackWindow))
		}
		if ff.EffectWindowMinutes < 5 {
			errs = append(errs, fmt.Errorf("fast_follower.effect_window_minutes must be at least 5, got %d", ff.EffectWindowMinutes))
		}
		if ff.SuccessRateThreshold < 0 || ff.SuccessRateThreshold > 1 {
			errs = append(errs, fmt.Errorf("fast_follower.success_rate_threshold must be within [0, 1], got %v", ff.SuccessRateThreshold))
		}
	}
	return errors.Join(errs...)
}
