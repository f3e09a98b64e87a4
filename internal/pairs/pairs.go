// Package pairs picks the (leader, follower) symbol pairs a fast-follower run watches.
//
// For every bar of every symbol over the lookback days we measure a trigger, the move over the
// last three bars, and an effect, the gain from buying at the next open and selling after the
// effect window. Whenever one symbol's trigger is strong enough, every symbol's effect at the same
// bar is credited to the (trigger symbol, effect symbol) pair. Pairs whose effects were large and
// reliable enough are kept.
package pairs

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/market"
	"intraday_trading/internal/models"
)

// Params control the selection.
type Params struct {
	LookbackDays        int
	EffectWindowMinutes int
	TriggerPct          float64
	MinCount            int
	MeanGainPct         float64
	SuccessRate         float64 // share of effects >= SuccessGainPct
}

// SuccessGainPct is the gain an effect needs to count as a success.
const SuccessGainPct = 0.5

// Pair is one candidate leader/follower relationship with its training statistics.
type Pair struct {
	Independent   string
	Dependent     string
	Count         int
	MeanGainPct   float64
	BreakEvenRate float64 // share of gains >= 0
	SuccessRate   float64 // share of gains >= SuccessGainPct
	StrongRate    float64 // share of gains >= 1
}

type observation struct {
	symbol  string
	at      int64
	trigger float64
	gain    float64
}

type pairKey struct {
	independent string
	dependent   string
}

// Select computes the pairs for trading on date from the lookback days before it.
func Select(ctx context.Context, src market.BarSource, cal market.Calendar, date time.Time, symbols []string, p Params) ([]Pair, error) {
	if p.LookbackDays <= 0 {
		return nil, fmt.Errorf("lookback must be positive, got %d", p.LookbackDays)
	}
	// Enough calendar days to cover the lookback across weekends and holidays.
	from := date.AddDate(0, 0, -(2*p.LookbackDays + 10))
	dates, err := cal.TradingDates(ctx, from, date.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("lookback dates: %w", err)
	}
	if len(dates) > p.LookbackDays {
		dates = dates[len(dates)-p.LookbackDays:]
	}
	if len(dates) == 0 {
		log.WithField("date", calendar.DateString(date)).Warn("No lookback days available for pair selection")
		return nil, nil
	}

	var bars []models.Bar
	for _, d := range dates {
		start := calendar.TimeOfDay(0).On(d)
		dayBars, err := src.Bars(ctx, start, start.Add(24*time.Hour-time.Nanosecond), symbols)
		if err != nil {
			return nil, err
		}
		bars = append(bars, dayBars...)
	}

	out := Compute(bars, p)
	log.WithFields(log.Fields{
		"date":  calendar.DateString(date),
		"from":  calendar.DateString(dates[0]),
		"to":    calendar.DateString(dates[len(dates)-1]),
		"bars":  len(bars),
		"pairs": len(out),
	}).Info("Selected fast follower pairs")
	return out, nil
}

// Compute runs the selection over bars already loaded. Shifts never cross a day boundary.
func Compute(bars []models.Bar, p Params) []Pair {
	effectShift := int(math.Round(float64(p.EffectWindowMinutes) / 5))
	if effectShift < 1 {
		effectShift = 1
	}

	byTime := make(map[int64][]observation)
	for _, o := range observations(bars, effectShift) {
		byTime[o.at] = append(byTime[o.at], o)
	}

	gains := make(map[pairKey][]float64)
	for _, group := range byTime {
		for _, trig := range group {
			if trig.trigger < p.TriggerPct {
				continue
			}
			for _, eff := range group {
				k := pairKey{independent: trig.symbol, dependent: eff.symbol}
				gains[k] = append(gains[k], eff.gain)
			}
		}
	}

	var out []Pair
	for k, g := range gains {
		if k.independent == k.dependent || len(g) < p.MinCount {
			continue
		}
		pair := summarise(k, g)
		if pair.MeanGainPct < p.MeanGainPct || pair.SuccessRate < p.SuccessRate {
			continue
		}
		out = append(out, pair)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Independent != out[j].Independent {
			return out[i].Independent < out[j].Independent
		}
		return out[i].Dependent < out[j].Dependent
	})
	return out
}

func summarise(k pairKey, g []float64) Pair {
	mean, _ := stats.Mean(g)
	return Pair{
		Independent:   k.independent,
		Dependent:     k.dependent,
		Count:         len(g),
		MeanGainPct:   mean,
		BreakEvenRate: rate(g, 0),
		SuccessRate:   rate(g, SuccessGainPct),
		StrongRate:    rate(g, 1),
	}
}

func rate(g []float64, threshold float64) float64 {
	hits := make([]float64, len(g))
	for i, v := range g {
		if v >= threshold {
			hits[i] = 1
		}
	}
	r, _ := stats.Mean(hits)
	return r
}

type seriesKey struct {
	symbol string
	day    string
}

// observations builds trigger/effect rows per symbol and day.
// Rows without two prior bars or without the full effect window are dropped.
func observations(bars []models.Bar, effectShift int) []observation {
	series := make(map[seriesKey][]models.Bar)
	var keys []seriesKey
	for _, b := range market.NewFrame(bars).All() {
		k := seriesKey{symbol: b.Symbol, day: calendar.DateString(b.Timestamp)}
		if _, ok := series[k]; !ok {
			keys = append(keys, k)
		}
		series[k] = append(series[k], b)
	}

	var out []observation
	for _, k := range keys {
		s := series[k]
		for i := 2; i+effectShift < len(s); i++ {
			if s[i-2].Open == 0 || s[i+1].Open == 0 {
				continue
			}
			out = append(out, observation{
				symbol:  k.symbol,
				at:      s[i].Timestamp.UnixNano(),
				trigger: 100 * (s[i].Close/s[i-2].Open - 1),
				gain:    100 * (s[i+effectShift].Close/s[i+1].Open - 1),
			})
		}
	}
	return out
}
