package calendar

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // America/New_York must resolve on hosts without a zoneinfo database
)

// NewYork is the exchange time zone. Every decision time and bar timestamp is expressed in it.
var NewYork = mustLoad("America/New_York")

// BarInterval is the width of the bars the strategies trade on.
const BarInterval = 5 * time.Minute

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Errorf("failed to load location %s: %w", name, err))
	}
	return loc
}

// MostRecentBarTime returns the start of the most recent bar that is fully closed at t.
//
// A 5-minute bar stamped 09:35 covers 09:35:00-09:39:59, so at 09:40:00 (and at 09:41:00)
// the most recent usable bar is the 09:35 bar. Using anything newer would leak activity
// that has not happened yet into the decision.
func MostRecentBarTime(t time.Time, freq time.Duration) time.Time {
	if freq < time.Minute {
		freq = BarInterval
	}
	mins := int(freq / time.Minute)
	t = t.Truncate(time.Minute)
	return t.Add(-time.Duration(t.Minute()%mins)*time.Minute - freq)
}

// Date returns midnight (New York) of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, NewYork)
}

// ParseDate parses "2006-01-02" as a New York date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), NewYork)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// DateString formats the date component, e.g. 2024-07-02.
func DateString(t time.Time) string {
	return t.In(NewYork).Format("2006-01-02")
}

// TimeString formats the time component, e.g. 09:35:00.
func TimeString(t time.Time) string {
	return t.In(NewYork).Format("15:04:05")
}

// DateTimeString is the compact form used in log lines, e.g. 2024-07-02_09:35.
func DateTimeString(t time.Time) string {
	return t.In(NewYork).Format("2006-01-02_15:04")
}

// TimeOfDay is an offset from midnight, e.g. 09:50:00. It is how trading windows are configured.
type TimeOfDay time.Duration

// ParseTimeOfDay accepts "15:04:05" or "15:04".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// MustTimeOfDay is ParseTimeOfDay for constants.
func MustTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// TimeOfDayOf returns the New York wall-clock offset of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	t = t.In(NewYork)
	return TimeOfDay(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second)
}

// On places the time of day on the given date.
func (d TimeOfDay) On(date time.Time) time.Time {
	date = date.In(NewYork)
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, NewYork).Add(time.Duration(d))
}

func (d TimeOfDay) String() string {
	total := int(time.Duration(d) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// UnmarshalYAML lets strategy files write "09:50:00".
func (d *TimeOfDay) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the "15:04:05" form back out.
func (d TimeOfDay) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Ticks returns the decision times of a trading day: every step from first to last inclusive.
func Ticks(date time.Time, first, last TimeOfDay, step time.Duration) []time.Time {
	if step <= 0 {
		step = BarInterval
	}
	var out []time.Time
	for t := first.On(date); !t.After(last.On(date)); t = t.Add(step) {
		out = append(out, t)
	}
	return out
}

// IsWeekday reports whether the date falls Monday-Friday.
func IsWeekday(t time.Time) bool {
	wd := t.In(NewYork).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
