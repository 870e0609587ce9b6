package engine

import (
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// Calendar answers whether a date is a business holiday for delay
// computation. Implementations are tenant-agnostic; the default is loaded
// from configuration at startup.
type Calendar interface {
	IsHoliday(t time.Time) bool
}

// StaticCalendar is a fixed set of holiday dates keyed by "2006-01-02".
type StaticCalendar map[string]bool

func NewStaticCalendar(dates []string) StaticCalendar {
	calendar := make(StaticCalendar, len(dates))
	for _, date := range dates {
		calendar[date] = true
	}

	return calendar
}

func (c StaticCalendar) IsHoliday(t time.Time) bool {
	return c[t.Format("2006-01-02")]
}

// resumeAt computes when a delayed run wakes up. The base interval is
// applied first; weekend and holiday skipping then push the instant to the
// next eligible day preserving the time of day. Skipping applies to the
// landing instant regardless of the delay unit.
func resumeAt(now time.Time, config *models.DelayConfig, calendar Calendar) (time.Time, error) {
	interval, err := config.Interval()
	if err != nil {
		return time.Time{}, err
	}

	at := now.Add(interval)

	for {
		if config.SkipWeekends && isWeekend(at) {
			at = nextWeekday(at)

			continue
		}

		if config.SkipHolidays && calendar != nil && calendar.IsHoliday(at) {
			at = at.AddDate(0, 0, 1)

			continue
		}

		return at, nil
	}
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// nextWeekday moves to the following Monday keeping the time of day.
func nextWeekday(t time.Time) time.Time {
	for isWeekend(t) {
		t = t.AddDate(0, 0, 1)
	}

	return t
}
