package alpaca

import (
	"context"
	"fmt"
	"sort"
	"time"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/market"
	"intraday_trading/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	log "github.com/sirupsen/logrus"
)

// Options carries the credentials and data feed. Empty fields fall back to the
// APCA_* environment variables the SDK reads itself.
type Options struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Feed      string // "iex" or "sip"
}

// Provider serves 5-minute bars and the trading calendar from Alpaca.
type Provider struct {
	mdClient    *marketdata.Client
	tradeClient *alpaca.Client
	feed        marketdata.Feed
	freq        time.Duration
	log         *log.Entry
}

// Ensure Provider implements the interfaces
var (
	_ market.BarSource = (*Provider)(nil)
	_ market.Calendar  = (*Provider)(nil)
)

// NewProvider returns a new Alpaca provider.
func NewProvider(opts Options) *Provider {
	feed := marketdata.IEX
	if opts.Feed != "" {
		feed = marketdata.Feed(opts.Feed)
	}
	return &Provider{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
		}),
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
			BaseURL:   opts.BaseURL,
		}),
		feed: feed,
		freq: calendar.BarInterval,
		log:  log.WithField("component", "alpaca"),
	}
}

func (p *Provider) barsRequest(start, end time.Time) marketdata.GetBarsRequest {
	return marketdata.GetBarsRequest{
		TimeFrame:  marketdata.NewTimeFrame(int(p.freq/time.Minute), marketdata.Min),
		Adjustment: marketdata.Raw,
		Start:      start,
		End:        end,
		Feed:       p.feed,
	}
}

func mapBar(symbol string, b marketdata.Bar) models.Bar {
	return models.Bar{
		Symbol:     symbol,
		Timestamp:  b.Timestamp.In(calendar.NewYork),
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		Volume:     int64(b.Volume),
		TradeCount: int64(b.TradeCount),
		VWAP:       b.VWAP,
	}
}

// --- Market Data ---

func (p *Provider) LatestBar(ctx context.Context, symbol string, decisionTime time.Time) (models.Bar, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Bar{}, false, err
	}
	barTime := calendar.MostRecentBarTime(decisionTime, p.freq)
	bars, err := p.mdClient.GetBars(symbol, p.barsRequest(barTime, barTime))
	if err != nil {
		return models.Bar{}, false, fmt.Errorf("get %s bar at %s: %w", symbol, calendar.DateTimeString(barTime), err)
	}
	for _, b := range bars {
		if b.Timestamp.Equal(barTime) {
			return mapBar(symbol, b), true, nil
		}
	}
	return models.Bar{}, false, nil
}

func (p *Provider) Bars(ctx context.Context, start, end time.Time, symbols []string) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, nil
	}
	bySymbol, err := p.mdClient.GetMultiBars(symbols, p.barsRequest(start, end))
	if err != nil {
		return nil, fmt.Errorf("get bars %s..%s: %w", calendar.DateTimeString(start), calendar.DateTimeString(end), err)
	}

	var out []models.Bar
	for _, symbol := range symbols {
		for _, b := range bySymbol[symbol] {
			out = append(out, mapBar(symbol, b))
		}
	}
	// The API pages per symbol; restore time order and drop repeats.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	p.log.WithFields(log.Fields{"symbols": len(symbols), "bars": len(out)}).Debug("Fetched bars")
	return market.NewFrame(out).Window(start, end, nil), nil
}

// --- Calendar ---

func (p *Provider) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	days, err := p.tradeClient.GetCalendar(alpaca.GetCalendarRequest{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}

	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		date, err := calendar.ParseDate(d.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, date)
	}
	return out, nil
}
