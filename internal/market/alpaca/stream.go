package alpaca

import (
	"context"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/market"
	"intraday_trading/internal/models"
)

// History answers whatever the stream has not seen: earlier days, missed bars, the calendar.
type History interface {
	market.BarSource
	market.Calendar
}

type bucketKey struct {
	symbol string
	start  int64
}

// bucket accumulates the minute bars of one 5-minute bar.
type bucket struct {
	bar        models.Bar
	lastMinute time.Time
	pvSum      float64 // price * volume, for the VWAP
}

// BarStream builds 5-minute bars from Alpaca's live minute bar stream.
// A 5-minute bar is served from the stream once its last minute has arrived;
// until then, and for anything older than the subscription, requests go to History.
type BarStream struct {
	history History
	freq    time.Duration
	opts    Options
	log     *log.Entry

	mu      sync.RWMutex
	buckets map[bucketKey]*bucket
}

var (
	_ market.BarSource = (*BarStream)(nil)
	_ market.Calendar  = (*BarStream)(nil)
)

func NewBarStream(opts Options, history History) *BarStream {
	return &BarStream{
		history: history,
		freq:    calendar.BarInterval,
		opts:    opts,
		log:     log.WithField("component", "alpaca_stream"),
		buckets: make(map[bucketKey]*bucket),
	}
}

// Start subscribes to minute bars for symbols and returns once connected.
// The connection lives until ctx is cancelled; the SDK reconnects on its own.
func (s *BarStream) Start(ctx context.Context, symbols []string) error {
	feed := marketdata.IEX
	if s.opts.Feed != "" {
		feed = marketdata.Feed(s.opts.Feed)
	}
	client := stream.NewStocksClient(
		feed,
		stream.WithCredentials(s.opts.APIKey, s.opts.APISecret),
		stream.WithReconnectSettings(10, 500*time.Millisecond),
		stream.WithBars(s.consume, symbols...),
	)

	s.log.WithField("symbols", len(symbols)).Info("Connecting to Alpaca stream")
	if err := client.Connect(ctx); err != nil {
		return err
	}
	go func() {
		if err := <-client.Terminated(); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Error("Stream connection closed")
			return
		}
		s.log.Info("Stream connection closed")
	}()
	return nil
}

func (s *BarStream) consume(b stream.Bar) {
	s.add(b.Symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, int64(b.Volume), int64(b.TradeCount), b.VWAP)
}

func (s *BarStream) add(symbol string, ts time.Time, open, high, low, close float64, volume, trades int64, vwap float64) {
	ts = ts.In(calendar.NewYork)
	// The bar containing ts is one after the most recent closed bar at ts.
	start := calendar.MostRecentBarTime(ts, s.freq).Add(s.freq)
	k := bucketKey{symbol: symbol, start: start.UnixNano()}

	s.mu.Lock()
	defer s.mu.Unlock()

	bk, ok := s.buckets[k]
	if !ok {
		s.buckets[k] = &bucket{
			bar: models.Bar{
				Symbol:     symbol,
				Timestamp:  start,
				Open:       open,
				High:       high,
				Low:        low,
				Close:      close,
				Volume:     volume,
				TradeCount: trades,
				VWAP:       vwap,
			},
			lastMinute: ts,
			pvSum:      vwap * float64(volume),
		}
		return
	}
	if !ts.After(bk.lastMinute) {
		// replayed or out of order minute
		return
	}
	bk.bar.High = max(bk.bar.High, high)
	bk.bar.Low = min(bk.bar.Low, low)
	bk.bar.Close = close
	bk.bar.Volume += volume
	bk.bar.TradeCount += trades
	bk.pvSum += vwap * float64(volume)
	if bk.bar.Volume > 0 {
		bk.bar.VWAP = bk.pvSum / float64(bk.bar.Volume)
	}
	bk.lastMinute = ts
}

// complete returns the streamed bar at barTime if all of its minutes have been seen.
func (s *BarStream) complete(symbol string, barTime time.Time) (models.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bk, ok := s.buckets[bucketKey{symbol: symbol, start: barTime.UnixNano()}]
	if !ok || bk.lastMinute.Before(barTime.Add(s.freq-time.Minute)) {
		return models.Bar{}, false
	}
	return bk.bar, true
}

func (s *BarStream) LatestBar(ctx context.Context, symbol string, decisionTime time.Time) (models.Bar, bool, error) {
	if bar, ok := s.complete(symbol, calendar.MostRecentBarTime(decisionTime, s.freq)); ok {
		return bar, true, nil
	}
	return s.history.LatestBar(ctx, symbol, decisionTime)
}

// Bars serves single-timestamp requests from the stream where it can. Ranges go to History.
func (s *BarStream) Bars(ctx context.Context, start, end time.Time, symbols []string) ([]models.Bar, error) {
	if !start.Equal(end) || symbols == nil {
		return s.history.Bars(ctx, start, end, symbols)
	}
	var (
		out     []models.Bar
		missing []string
	)
	for _, sym := range symbols {
		if bar, ok := s.complete(sym, start); ok {
			out = append(out, bar)
		} else {
			missing = append(missing, sym)
		}
	}
	if len(missing) > 0 {
		rest, err := s.history.Bars(ctx, start, end, missing)
		if err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}
	return out, nil
}

func (s *BarStream) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	return s.history.TradingDates(ctx, start, end)
}
