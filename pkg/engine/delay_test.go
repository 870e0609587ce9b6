package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

func TestResumeAt_PlainInterval(t *testing.T) {
	// Wednesday 10:00
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	at, err := resumeAt(now, &models.DelayConfig{Duration: 2, Unit: models.DelayUnitHours}, nil)
	require.NoError(t, err)
	assert.Equal(t, now.Add(2*time.Hour), at)
}

func TestResumeAt_SkipsWeekendToMonday(t *testing.T) {
	// Friday 15:00 + 1 day lands on Saturday
	now := time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC)

	config := &models.DelayConfig{Duration: 1, Unit: models.DelayUnitDays, SkipWeekends: true}

	at, err := resumeAt(now, config, nil)
	require.NoError(t, err)

	assert.Equal(t, time.Monday, at.Weekday())
	// The time of day survives the skip
	assert.Equal(t, 15, at.Hour())
	assert.Equal(t, time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC), at)
}

func TestResumeAt_SkipsHoliday(t *testing.T) {
	// Lands on April 21st (Tiradentes)
	now := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)
	calendar := NewStaticCalendar([]string{"2026-04-21"})

	config := &models.DelayConfig{Duration: 1, Unit: models.DelayUnitDays, SkipHolidays: true}

	at, err := resumeAt(now, config, calendar)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 22, 9, 0, 0, 0, time.UTC), at)
}

func TestResumeAt_HolidaySkipLandsOnWeekend(t *testing.T) {
	// Thursday + 1 day = Friday holiday, skipping lands on Saturday, which
	// the weekend rule pushes to Monday
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	calendar := NewStaticCalendar([]string{"2026-04-03"})

	config := &models.DelayConfig{
		Duration:     1,
		Unit:         models.DelayUnitDays,
		SkipWeekends: true,
		SkipHolidays: true,
	}

	at, err := resumeAt(now, config, calendar)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC), at)
}

func TestResumeAt_ShortDelayOnWeekday(t *testing.T) {
	// Skipping rules do not touch an instant already on a weekday
	now := time.Date(2026, 3, 3, 8, 30, 0, 0, time.UTC)
	config := &models.DelayConfig{Duration: 30, Unit: models.DelayUnitMinutes, SkipWeekends: true, SkipHolidays: true}

	at, err := resumeAt(now, config, NewStaticCalendar(nil))
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), at)
}

func TestResumeAt_UnknownUnit(t *testing.T) {
	_, err := resumeAt(time.Now(), &models.DelayConfig{Duration: 1, Unit: "fortnights"}, nil)
	assert.Error(t, err)
}
