package market

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

// DefaultCacheDays bounds how many parsed day files a FileSource keeps in memory.
const DefaultCacheDays = 32

var ErrNoBarFile = errors.New("no bar file for date")

// barRecord is one row of an intraday detail file.
// Volume and trade_count are read as floats because some exports write them as 1234.0.
type barRecord struct {
	Timestamp  string  `csv:"timestamp"`
	Symbol     string  `csv:"symbol"`
	Open       float64 `csv:"open"`
	High       float64 `csv:"high"`
	Low        float64 `csv:"low"`
	Close      float64 `csv:"close"`
	Volume     float64 `csv:"volume"`
	TradeCount float64 `csv:"trade_count"`
	VWAP       float64 `csv:"vwap"`
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, calendar.NewYork)
		if err == nil {
			return t.In(calendar.NewYork), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// FileName is the bar file name for a date, e.g. intradayDetail_5min_2024-07-02.csv.
func FileName(date time.Time, freq time.Duration) string {
	return fmt.Sprintf("intradayDetail_%dmin_%s.csv", int(freq/time.Minute), calendar.DateString(date))
}

// FileSource reads one CSV file of bars per trading day from a directory.
// Parsed days are cached per source, oldest evicted first.
type FileSource struct {
	dir       string
	freq      time.Duration
	cacheDays int

	mu    sync.Mutex
	days  map[string]*Frame
	order []string

	log *log.Entry
}

var (
	_ BarSource = (*FileSource)(nil)
	_ Calendar  = (*FileSource)(nil)
)

func NewFileSource(dir string) *FileSource {
	return &FileSource{
		dir:       dir,
		freq:      calendar.BarInterval,
		cacheDays: DefaultCacheDays,
		days:      make(map[string]*Frame),
		log:       log.WithField("component", "file_source"),
	}
}

// Day loads (or returns the cached) frame for a date.
// A missing file returns an error wrapping ErrNoBarFile.
func (s *FileSource) Day(ctx context.Context, date time.Time) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := calendar.DateString(date)

	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.days[key]; ok {
		return f, nil
	}

	path := filepath.Join(s.dir, FileName(date, s.freq))
	bars, err := readBarFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNoBarFile)
		}
		return nil, err
	}

	f := NewFrame(bars)
	s.days[key] = f
	s.order = append(s.order, key)
	for len(s.order) > s.cacheDays {
		delete(s.days, s.order[0])
		s.order = s.order[1:]
	}
	s.log.WithFields(log.Fields{"date": key, "bars": f.Len()}).Debug("Loaded bar file")
	return f, nil
}

func readBarFile(path string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []*barRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	bars := make([]models.Bar, 0, len(records))
	for i, r := range records {
		ts, err := parseTimestamp(r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		bars = append(bars, models.Bar{
			Symbol:     r.Symbol,
			Timestamp:  ts,
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			Volume:     int64(r.Volume),
			TradeCount: int64(r.TradeCount),
			VWAP:       r.VWAP,
		})
	}
	return bars, nil
}

func (s *FileSource) LatestBar(ctx context.Context, symbol string, decisionTime time.Time) (models.Bar, bool, error) {
	barTime := calendar.MostRecentBarTime(decisionTime, s.freq)
	f, err := s.Day(ctx, barTime)
	if err != nil {
		return models.Bar{}, false, err
	}
	bar, ok := f.At(symbol, barTime)
	return bar, ok, nil
}

// Bars walks every day file between start and end. Days without a file are skipped.
func (s *FileSource) Bars(ctx context.Context, start, end time.Time, symbols []string) ([]models.Bar, error) {
	startDay := calendar.Date(start.In(calendar.NewYork).Date())
	endDay := calendar.Date(end.In(calendar.NewYork).Date())
	dates, err := s.TradingDates(ctx, startDay, endDay)
	if err != nil {
		return nil, err
	}

	var out []models.Bar
	for _, d := range dates {
		f, err := s.Day(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, f.Window(start, end, symbols)...)
	}
	return out, nil
}

// TradingDates lists the weekdays in [start, end] that have a bar file.
func (s *FileSource) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pattern := filepath.Join(s.dir, fmt.Sprintf("intradayDetail_%dmin_*.csv", int(s.freq/time.Minute)))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("intradayDetail_%dmin_", int(s.freq/time.Minute))
	var out []time.Time
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".csv")
		d, err := calendar.ParseDate(name)
		if err != nil {
			s.log.WithField("file", m).Warn("Skipping bar file with unparseable date")
			continue
		}
		if d.Before(start) || d.After(end) || !calendar.IsWeekday(d) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}
