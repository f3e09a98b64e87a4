// Package session runs trading days tick by tick: fills, then new candidates, then bars for live executors.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/execution"
	"intraday_trading/internal/identify"
	"intraday_trading/internal/market"
	"intraday_trading/internal/models"
	"intraday_trading/internal/tracker"
)

var (
	DefaultFirstTick = calendar.MustTimeOfDay("09:35:00")
	DefaultLastTick  = calendar.MustTimeOfDay("16:00:00")
)

// DefaultBarDelay gives the data provider time to publish a bar after it closes.
const DefaultBarDelay = 2 * time.Second

// Params are the trading rules a session enforces.
type Params struct {
	MaxConcurrentTrades int
	LatestTradeTime     calendar.TimeOfDay
	HoldDuration        time.Duration
	// TradeAmountPerPosition caps the cash per new trade. Zero means buying power / MaxConcurrentTrades,
	// recomputed at the start of each day.
	TradeAmountPerPosition decimal.Decimal

	FirstTick calendar.TimeOfDay
	LastTick  calendar.TimeOfDay
	BarDelay  time.Duration
}

// IdentifierFactory builds the identifiers for one trading day.
type IdentifierFactory func(ctx context.Context, date time.Time) ([]identify.Identifier, error)

// Options wires a session to its collaborators.
type Options struct {
	Params      Params
	Bars        market.BarSource
	Broker      execution.Broker
	Clock       Clock
	Tracker     *tracker.Tracker
	Identifiers IdentifierFactory
	BuyingPower decimal.Decimal
}

// DayResult summarises one trading day.
type DayResult struct {
	Date           time.Time
	TradesOpened   int
	TradesClosed   int
	RealizedProfit float64
	CurrentProfit  float64
	BuyingPower    decimal.Decimal
}

// Session owns everything a run mutates: the tracker, buying power and the live executors.
// It is single-threaded; one tick completes before the next starts.
type Session struct {
	params      Params
	bars        market.BarSource
	broker      execution.Broker
	clock       Clock
	tracker     *tracker.Tracker
	factory     IdentifierFactory
	buyingPower decimal.Decimal
	log         *log.Entry

	// reset every day
	identifiers []identify.Identifier
	symbols     []string
	executors   []execution.Executor
	tradeAmount decimal.Decimal
	opened      int
	closed      int
	realized    float64
	current     float64
	// tracker totals when the day started
	baseRealized float64
	baseCurrent  float64
}

func New(opts Options) *Session {
	p := opts.Params
	if p.FirstTick == 0 {
		p.FirstTick = DefaultFirstTick
	}
	if p.LastTick == 0 {
		p.LastTick = DefaultLastTick
	}
	if p.BarDelay == 0 {
		p.BarDelay = DefaultBarDelay
	}
	if opts.Tracker == nil {
		opts.Tracker = tracker.New()
	}
	if opts.Clock == nil {
		opts.Clock = &SimulatedClock{}
	}
	if opts.Broker == nil {
		opts.Broker = execution.NewSimulatedBroker(opts.Bars)
	}
	return &Session{
		params:      p,
		bars:        opts.Bars,
		broker:      opts.Broker,
		clock:       opts.Clock,
		tracker:     opts.Tracker,
		factory:     opts.Identifiers,
		buyingPower: opts.BuyingPower,
		log:         log.WithField("component", "session"),
	}
}

func (s *Session) Tracker() *tracker.Tracker      { return s.tracker }
func (s *Session) BuyingPower() decimal.Decimal   { return s.buyingPower }
func (s *Session) Executors() []execution.Executor { return s.executors }

// Run trades each date in turn, sharing one tracker and carrying buying power across days.
// On error the results include the partial day that failed, when it got past StartDay.
func (s *Session) Run(ctx context.Context, dates []time.Time) ([]DayResult, error) {
	results := make([]DayResult, 0, len(dates))
	for _, d := range dates {
		res, err := s.RunDay(ctx, d)
		if err != nil {
			// A day that stopped part way may still have opened trades.
			if !res.Date.IsZero() {
				results = append(results, res)
			}
			return results, fmt.Errorf("trading %s: %w", calendar.DateString(d), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// RunDay walks the decision ticks of one day.
func (s *Session) RunDay(ctx context.Context, date time.Time) (DayResult, error) {
	if err := s.StartDay(ctx, date); err != nil {
		return DayResult{}, err
	}
	for _, tick := range calendar.Ticks(date, s.params.FirstTick, s.params.LastTick, calendar.BarInterval) {
		if err := s.clock.SleepUntil(ctx, tick.Add(s.params.BarDelay)); err != nil {
			return s.result(date), err
		}
		if err := s.Tick(ctx, tick); err != nil {
			return s.result(date), err
		}
	}

	res := s.result(date)
	s.log.WithFields(log.Fields{
		"date":            calendar.DateString(date),
		"opened":          res.TradesOpened,
		"closed":          res.TradesClosed,
		"realized_profit": decimal.NewFromFloat(res.RealizedProfit).StringFixed(2),
		"buying_power":    res.BuyingPower.StringFixed(2),
	}).Info("Trading day completed")
	return res, nil
}

// StartDay builds the day's identifiers and sizes new positions. RunDay calls it.
func (s *Session) StartDay(ctx context.Context, date time.Time) error {
	if s.params.MaxConcurrentTrades <= 0 {
		return errors.New("max concurrent trades must be positive")
	}
	identifiers, err := s.factory(ctx, date)
	if err != nil {
		return fmt.Errorf("build identifiers: %w", err)
	}

	s.identifiers = identifiers
	s.symbols = symbolsOf(identifiers)
	s.executors = nil
	s.opened, s.closed = 0, 0
	s.realized, s.current = 0, 0
	s.baseRealized, s.baseCurrent = s.tracker.Profit()

	s.tradeAmount = s.params.TradeAmountPerPosition
	if s.tradeAmount.IsZero() {
		s.tradeAmount = s.buyingPower.Div(decimal.NewFromInt(int64(s.params.MaxConcurrentTrades)))
	}

	s.log.WithFields(log.Fields{
		"date":             calendar.DateString(date),
		"starting_balance": s.buyingPower.StringFixed(2),
		"trade_amount":     s.tradeAmount.StringFixed(2),
		"identifiers":      len(identifiers),
	}).Info("Trading day started")
	return nil
}

func symbolsOf(identifiers []identify.Identifier) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(sym string) {
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	for _, id := range identifiers {
		switch id := id.(type) {
		case *identify.HigherHighsHigherLows:
			add(id.Symbol)
		case *identify.FastFollower:
			add(id.IndependentSymbol)
			add(id.DependentSymbol)
		}
	}
	return out
}

func (s *Session) result(date time.Time) DayResult {
	return DayResult{
		Date:           date,
		TradesOpened:   s.opened,
		TradesClosed:   s.closed,
		RealizedProfit: s.realized,
		CurrentProfit:  s.current,
		BuyingPower:    s.buyingPower,
	}
}

// Tick processes one decision time.
func (s *Session) Tick(ctx context.Context, tick time.Time) error {
	logger := s.log.WithField("dt", calendar.DateTimeString(tick))
	logger.WithField("buying_power", s.buyingPower.StringFixed(2)).Debug("Interval started")

	if err := s.processFills(ctx, tick); err != nil {
		return err
	}

	active := 0
	for _, e := range s.executors {
		if e.State() != execution.StateComplete {
			active++
		}
	}

	if calendar.TimeOfDayOf(tick) <= s.params.LatestTradeTime {
		candidates, err := s.identify(ctx, tick)
		if err != nil {
			return err
		}
		candidates = s.firstPerSymbol(candidates, tick)
		if free := s.params.MaxConcurrentTrades - active; free > 0 && len(candidates) > 0 {
			if len(candidates) > free {
				candidates = candidates[:free]
			}
			if err := s.openTrades(candidates, tick); err != nil {
				return err
			}
		}
	}

	if err := s.feedBars(ctx, tick); err != nil {
		return err
	}

	// Earlier days' trades no longer move, so the difference is today's profit.
	realized, current := s.tracker.Profit()
	s.realized, s.current = realized-s.baseRealized, current-s.baseCurrent
	logger.WithFields(log.Fields{
		"realized_profit": decimal.NewFromFloat(s.realized).StringFixed(2),
		"current_profit":  decimal.NewFromFloat(s.current).StringFixed(2),
	}).Debug("Interval completed")
	return nil
}

func (s *Session) processFills(ctx context.Context, tick time.Time) error {
	for _, e := range s.executors {
		if e.State() == execution.StateComplete {
			continue
		}
		fill, err := execution.ProcessOrders(ctx, s.broker, e.Trade(), tick)
		if err != nil {
			return err
		}
		if fill == nil {
			continue
		}
		s.buyingPower = s.buyingPower.Add(fill.Amount)
		if !e.HandleOrderFill(fill.Order, tick) {
			continue
		}
		s.closed++
		if err := s.tracker.CloseTrade(e.Trade()); err != nil {
			s.log.WithError(err).Warn("Completed trade was not active in the tracker")
		}
	}
	return nil
}

// identify feeds the tick's bars to every identifier and returns the candidates in identifier order.
// Identifiers are fed even when no slot is free so their windows stay contiguous.
func (s *Session) identify(ctx context.Context, tick time.Time) ([]identify.Candidate, error) {
	barTime := calendar.MostRecentBarTime(tick, calendar.BarInterval)
	bars, err := s.bars.Bars(ctx, barTime, barTime, s.symbols)
	if err != nil {
		return nil, fmt.Errorf("bars at %s: %w", calendar.DateTimeString(barTime), err)
	}
	current := market.LatestBySymbol(bars)

	var candidates []identify.Candidate
	for _, id := range s.identifiers {
		var (
			triggered bool
			c         identify.Candidate
		)
		switch id := id.(type) {
		case *identify.HigherHighsHigherLows:
			bar, ok := current[id.Symbol]
			if !ok {
				continue
			}
			triggered, c = id.ConsumeBar(bar)
		case *identify.FastFollower:
			ind, okInd := current[id.IndependentSymbol]
			dep, okDep := current[id.DependentSymbol]
			if !okInd || !okDep {
				continue
			}
			triggered, c = id.ConsumeBarPair(ind, dep)
		}
		if triggered {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// firstPerSymbol keeps the first candidate for each trade symbol. Two leaders can share a follower,
// and both would otherwise open the same (symbol, decision time) trade.
func (s *Session) firstPerSymbol(candidates []identify.Candidate, tick time.Time) []identify.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]identify.Candidate, 0, len(candidates))
	for _, c := range candidates {
		sym := c.TradeSymbol()
		if seen[sym] {
			entry := s.log.WithFields(log.Fields{"dt": calendar.DateTimeString(tick), "symbol": sym})
			if ff, ok := c.(identify.FastFollowerCandidate); ok {
				entry = entry.WithField("leader", ff.IndependentSymbol)
			}
			entry.Info("Dropping candidate, symbol already selected this interval")
			continue
		}
		seen[sym] = true
		out = append(out, c)
	}
	return out
}

func (s *Session) openTrades(candidates []identify.Candidate, tick time.Time) error {
	for _, c := range candidates {
		target := c.TargetBuyPrice()
		logger := s.log.WithFields(log.Fields{"dt": calendar.DateTimeString(tick), "symbol": c.TradeSymbol(), "price": target})
		if target <= 0 {
			logger.Warn("Skipping candidate without a usable price")
			continue
		}
		shares := s.tradeAmount.Div(decimal.NewFromFloat(target)).Floor().IntPart()
		if shares <= 0 {
			logger.WithField("trade_amount", s.tradeAmount.StringFixed(2)).Warn("Trade amount buys no shares, skipping")
			continue
		}

		e, err := execution.NewTimedHoldLong(s.tracker, s.broker, c.TradeSymbol(), shares, tick, target, s.params.HoldDuration)
		if err != nil {
			return err
		}
		s.executors = append(s.executors, e)
		s.opened++

		entry := logger.WithFields(log.Fields{"shares": shares, "direction": models.Long})
		if ff, ok := c.(identify.FastFollowerCandidate); ok {
			entry = entry.WithField("leader", ff.IndependentSymbol)
		}
		entry.Info("Selected trade")
	}
	return nil
}

func (s *Session) feedBars(ctx context.Context, tick time.Time) error {
	for _, e := range s.executors {
		if e.State() == execution.StateComplete {
			continue
		}
		bar, found, err := s.bars.LatestBar(ctx, e.Trade().Symbol, tick)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := e.ConsumeBar(bar, tick); err != nil {
			return err
		}
	}
	return nil
}
