package models

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// TriggerType identifies how a workflow run gets created.
type TriggerType string

const (
	TriggerTypeMessageReceived TriggerType = "message_received"
	TriggerTypeKeyword         TriggerType = "keyword"
	TriggerTypeSchedule        TriggerType = "schedule"
	TriggerTypeManual          TriggerType = "manual"
)

// TriggerConfig describes the event a published workflow reacts to.
type TriggerConfig struct {
	TriggerType TriggerType `json:"triggerType"       validate:"required"`
	Keyword     string      `json:"keyword,omitempty"`
	Cron        string      `json:"cron,omitempty"`
}

// Validate checks the trigger configuration for its type.
func (c *TriggerConfig) Validate() error {
	switch c.TriggerType {
	case TriggerTypeMessageReceived, TriggerTypeManual:
		return nil
	case TriggerTypeKeyword:
		if c.Keyword == "" {
			return errors.New("keyword trigger requires 'keyword'")
		}

		return nil
	case TriggerTypeSchedule:
		if c.Cron == "" {
			return errors.New("schedule trigger requires 'cron'")
		}

		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Cron); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", c.Cron, err)
		}

		return nil
	default:
		return fmt.Errorf("unknown trigger type %q", c.TriggerType)
	}
}

// TriggerEvent is an inbound event consumed by the dispatcher.
type TriggerEvent struct {
	Type     TriggerType    `json:"type"`
	TenantID string         `json:"tenantId"`
	Payload  map[string]any `json:"payload"`
}

// Text returns the event's text payload, used for keyword matching.
func (e *TriggerEvent) Text() string {
	if e.Payload == nil {
		return ""
	}

	text, _ := e.Payload["text"].(string)

	return text
}

// WorkflowID returns the workflow targeted by a manual or schedule event.
func (e *TriggerEvent) WorkflowID() string {
	if e.Payload == nil {
		return ""
	}

	id, _ := e.Payload["workflow_id"].(string)

	return id
}
