package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/roomboard/internal/models"
)

// DefaultDateLayouts are tried in order by ParseDate.
var DefaultDateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006"}

const oneDay = 24 * time.Hour

// Calendar maps an event id to its ordered day records.
type Calendar map[string][]models.Day

// DateOnly drops the clock and zone, keeping the calendar date as UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a calendar date with the first matching layout.
func ParseDate(raw string, layouts ...string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// ExpandEvent produces the ordered day records of an event.
//
// With a date range the event spans firstDay..lastDay inclusive. When TotalDays is
// also set and disagrees with the span, TotalDays wins: exactly TotalDays records
// are produced and dates continue consecutively from firstDay, so the day count is
// never silently cut short. The mismatch is returned as a warning.
// Without a date range TotalDays records are produced with zero dates.
func ExpandEvent(event models.Event) ([]models.Day, string, error) {
	if !event.HasDateRange() {
		if event.TotalDays < 1 {
			return nil, "", fmt.Errorf("%w: event %s has neither a date range nor a day count", ErrInvalidDateRange, event.ID)
		}
		days := make([]models.Day, event.TotalDays)
		for i := range days {
			days[i] = models.Day{EventID: event.ID, Number: i + 1}
		}
		return days, "", nil
	}

	first := DateOnly(*event.FirstDay)
	last := DateOnly(*event.LastDay)
	if first.IsZero() || last.IsZero() {
		return nil, "", fmt.Errorf("%w: event %s has a zero date", ErrInvalidDateRange, event.ID)
	}
	if last.Before(first) {
		return nil, "", fmt.Errorf("%w: event %s ends %s before it starts %s", ErrInvalidDateRange, event.ID, last.Format("2006-01-02"), first.Format("2006-01-02"))
	}

	span := int(last.Sub(first)/oneDay) + 1
	count := span
	var warning string
	if event.TotalDays > 0 && event.TotalDays != span {
		count = event.TotalDays
		warning = fmt.Sprintf("event %s: total days %d overrides date span of %d days", event.ID, event.TotalDays, span)
	}

	days := make([]models.Day, count)
	for i := range days {
		days[i] = models.Day{EventID: event.ID, Number: i + 1, Date: first.AddDate(0, 0, i)}
	}
	return days, warning, nil
}

// Days returns the day records of an event.
func (c Calendar) Days(eventID string) []models.Day {
	return c[eventID]
}

// DayOf maps a calendar date to its day number within the event.
func (c Calendar) DayOf(eventID string, date time.Time) (int, bool) {
	date = DateOnly(date)
	for _, d := range c[eventID] {
		if !d.Date.IsZero() && d.Date.Equal(date) {
			return d.Number, true
		}
	}
	return 0, false
}

// DateOf maps a day number back to its calendar date.
func (c Calendar) DateOf(eventID string, number int) (time.Time, bool) {
	days := c[eventID]
	if number < 1 || number > len(days) {
		return time.Time{}, false
	}
	d := days[number-1]
	if d.Date.IsZero() {
		return time.Time{}, false
	}
	return d.Date, true
}
