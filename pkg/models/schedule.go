package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is a resolved "next fire instant" entry for one schedule-triggered
// workflow. The cron expression is parsed when the entry is (re)built and the
// next due instant is precomputed, so the scheduler tick only compares
// timestamps instead of re-parsing text at dispatch time.
type Schedule struct {
	WorkflowID     string    `json:"workflow_id"     validate:"required"`
	TenantID       string    `json:"tenant_id"`
	CronExpression string    `json:"cron_expression" validate:"required"`
	NextDueAt      time.Time `json:"next_due_at"`
	Active         bool      `json:"active"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ErrInvalidSchedule is returned when schedule validation fails.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")

// NewSchedule builds a schedule entry with the first due instant computed
// from now.
func NewSchedule(workflowID, tenantID, cronExpression string) (*Schedule, error) {
	schedule := &Schedule{
		WorkflowID:     workflowID,
		TenantID:       tenantID,
		CronExpression: cronExpression,
		Active:         true,
	}

	if err := schedule.advance(time.Now().UTC()); err != nil {
		return nil, err
	}

	return schedule, nil
}

// IsDue reports whether the schedule should fire at the given instant.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Active && !s.NextDueAt.After(now)
}

// Fire recomputes the next due instant after a tick was emitted.
func (s *Schedule) Fire(now time.Time) error {
	return s.advance(now)
}

func (s *Schedule) advance(reference time.Time) error {
	if s.WorkflowID == "" || s.CronExpression == "" {
		return ErrInvalidSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	cronSchedule, err := parser.Parse(s.CronExpression)
	if err != nil {
		return err
	}

	s.NextDueAt = cronSchedule.Next(reference)
	s.UpdatedAt = time.Now().UTC()

	return nil
}
