package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/condition"
)

// NodeKind identifies what a node does when the engine reaches it.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindAction    NodeKind = "action"
	NodeKindCondition NodeKind = "condition"
	NodeKindDelay     NodeKind = "delay"
)

// Branch labels an outgoing edge. Condition nodes emit "true"/"false",
// every other kind emits "next".
type Branch string

const (
	BranchNext  Branch = "next"
	BranchTrue  Branch = "true"
	BranchFalse Branch = "false"
)

// Node is a unit of work in the graph. Config is the persisted free-form
// shape; it is parsed into the typed union exactly once, at publish time.
type Node struct {
	ID     string         `json:"id"     validate:"required"`
	Kind   NodeKind       `json:"kind"   validate:"required"`
	Config map[string]any `json:"config"`
}

// Edge is a directed link between two nodes.
type Edge struct {
	From   string `json:"from"   validate:"required"`
	To     string `json:"to"     validate:"required"`
	Branch Branch `json:"branch" validate:"required"`
}

// Graph is the persisted wire shape of a workflow body.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// ActionKind identifies one of the dispatchable action types.
type ActionKind string

const (
	ActionSendMessage  ActionKind = "send_message"
	ActionSendEmail    ActionKind = "send_email"
	ActionSendImage    ActionKind = "send_image"
	ActionSendDocument ActionKind = "send_document"
	ActionAddTag       ActionKind = "add_tag"
	ActionUpdateField  ActionKind = "update_field"
	ActionCallWebhook  ActionKind = "call_webhook"
)

// ActionKinds lists every dispatchable action type.
var ActionKinds = []ActionKind{
	ActionSendMessage,
	ActionSendEmail,
	ActionSendImage,
	ActionSendDocument,
	ActionAddTag,
	ActionUpdateField,
	ActionCallWebhook,
}

// MessageParams configures send_message, send_image and send_document.
type MessageParams struct {
	ContactID string `json:"contact_id"`
	Content   string `json:"content"`
	MediaURL  string `json:"media_url,omitempty"`
}

// EmailParams configures send_email.
type EmailParams struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// WebhookParams configures call_webhook. Idempotent marks the endpoint as
// safe to retry; without it the call is attempted exactly once.
type WebhookParams struct {
	URL        string         `json:"url"`
	Method     string         `json:"method"`
	Payload    map[string]any `json:"payload,omitempty"`
	Idempotent bool           `json:"idempotent"`
}

// TagParams configures add_tag.
type TagParams struct {
	EntityID string `json:"entity_id"`
	Tag      string `json:"tag"`
}

// FieldParams configures update_field.
type FieldParams struct {
	EntityID string `json:"entity_id"`
	Field    string `json:"field"`
	Value    string `json:"value"`
}

// ActionConfig is the typed configuration of an action node. Exactly one of
// the kind-specific parameter structs is set, matching Kind.
type ActionConfig struct {
	Kind    ActionKind     `json:"kind"`
	Message *MessageParams `json:"message,omitempty"`
	Email   *EmailParams   `json:"email,omitempty"`
	Webhook *WebhookParams `json:"webhook,omitempty"`
	Tag     *TagParams     `json:"tag,omitempty"`
	Field   *FieldParams   `json:"field,omitempty"`

	// AIEnabled routes the action's text payload through the AI capability
	// before dispatch; tokens and cost land on the log row either way.
	AIEnabled bool `json:"ai_enabled"`

	ContinueOnError bool `json:"continue_on_error"`
	RateLimited     bool `json:"rate_limited"`
	TimeoutSeconds  int  `json:"timeout_seconds,omitempty"`
	MaxAttempts     int  `json:"max_attempts,omitempty"`
}

// Retryable reports whether failed attempts may be retried. Only explicitly
// idempotent webhook calls qualify; every other side effect is attempted once.
func (c *ActionConfig) Retryable() bool {
	return c.Kind == ActionCallWebhook && c.Webhook != nil && c.Webhook.Idempotent
}

// Timeout returns the configured per-attempt timeout, or the fallback.
func (c *ActionConfig) Timeout(fallback time.Duration) time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}

	return fallback
}

// Attempts returns the attempt cap honoring the idempotency contract.
func (c *ActionConfig) Attempts(fallback int) int {
	if !c.Retryable() {
		return 1
	}

	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}

	return fallback
}

// ConditionConfig is the typed configuration of a condition node.
type ConditionConfig struct {
	Field    string             `json:"field"`
	Operator condition.Operator `json:"operator"`
	Value    string             `json:"value"`
}

// DelayUnit is the granularity of a delay node duration.
type DelayUnit string

const (
	DelayUnitSeconds DelayUnit = "seconds"
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
	DelayUnitDays    DelayUnit = "days"
)

// DelayConfig is the typed configuration of a delay node.
type DelayConfig struct {
	Duration     int       `json:"duration"`
	Unit         DelayUnit `json:"unit"`
	SkipWeekends bool      `json:"skip_weekends"`
	SkipHolidays bool      `json:"skip_holidays"`
}

// Interval returns the delay as a duration.
func (c *DelayConfig) Interval() (time.Duration, error) {
	switch c.Unit {
	case DelayUnitSeconds:
		return time.Duration(c.Duration) * time.Second, nil
	case DelayUnitMinutes:
		return time.Duration(c.Duration) * time.Minute, nil
	case DelayUnitHours:
		return time.Duration(c.Duration) * time.Hour, nil
	case DelayUnitDays:
		return time.Duration(c.Duration) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown delay unit %q", c.Unit)
	}
}

// ParseActionConfig parses a raw action node config into the typed union.
func ParseActionConfig(config map[string]any) (*ActionConfig, error) {
	kind := ActionKind(stringValue(config, "action"))
	if kind == "" {
		return nil, errors.New("missing required field 'action'")
	}

	parsed := &ActionConfig{
		Kind:            kind,
		AIEnabled:       boolValue(config, "aiEnabled"),
		ContinueOnError: boolValue(config, "continueOnError"),
		RateLimited:     boolValue(config, "rateLimited"),
		TimeoutSeconds:  intValue(config, "timeoutSeconds"),
		MaxAttempts:     intValue(config, "maxAttempts"),
	}

	switch kind {
	case ActionSendMessage, ActionSendImage, ActionSendDocument:
		parsed.Message = &MessageParams{
			ContactID: stringValue(config, "contactId"),
			Content:   stringValue(config, "content"),
			MediaURL:  stringValue(config, "mediaUrl"),
		}
		if parsed.Message.ContactID == "" {
			return nil, fmt.Errorf("%s: missing required field 'contactId'", kind)
		}

		if kind != ActionSendMessage && parsed.Message.MediaURL == "" {
			return nil, fmt.Errorf("%s: missing required field 'mediaUrl'", kind)
		}

		if kind == ActionSendMessage && parsed.Message.Content == "" {
			return nil, fmt.Errorf("%s: missing required field 'content'", kind)
		}
	case ActionSendEmail:
		parsed.Email = &EmailParams{
			To:      stringValue(config, "to"),
			Subject: stringValue(config, "subject"),
			Body:    stringValue(config, "body"),
		}
		if parsed.Email.To == "" {
			return nil, errors.New("send_email: missing required field 'to'")
		}
	case ActionCallWebhook:
		parsed.Webhook = &WebhookParams{
			URL:        stringValue(config, "url"),
			Method:     stringValue(config, "method"),
			Idempotent: boolValue(config, "idempotent"),
		}
		if payload, ok := config["payload"].(map[string]any); ok {
			parsed.Webhook.Payload = payload
		}

		if parsed.Webhook.URL == "" {
			return nil, errors.New("call_webhook: missing required field 'url'")
		}
	case ActionAddTag:
		parsed.Tag = &TagParams{
			EntityID: stringValue(config, "entityId"),
			Tag:      stringValue(config, "tag"),
		}
		if parsed.Tag.Tag == "" {
			return nil, errors.New("add_tag: missing required field 'tag'")
		}
	case ActionUpdateField:
		parsed.Field = &FieldParams{
			EntityID: stringValue(config, "entityId"),
			Field:    stringValue(config, "field"),
			Value:    stringValue(config, "value"),
		}
		if parsed.Field.Field == "" {
			return nil, errors.New("update_field: missing required field 'field'")
		}
	default:
		return nil, fmt.Errorf("unknown action type %q", kind)
	}

	return parsed, nil
}

// ParseConditionConfig parses a raw condition node config.
func ParseConditionConfig(config map[string]any) (*ConditionConfig, error) {
	parsed := &ConditionConfig{
		Field:    stringValue(config, "field"),
		Operator: condition.Operator(stringValue(config, "operator")),
		Value:    stringValue(config, "value"),
	}

	if parsed.Field == "" {
		return nil, errors.New("missing required field 'field'")
	}

	if !parsed.Operator.Valid() {
		return nil, fmt.Errorf("unknown operator %q", parsed.Operator)
	}

	return parsed, nil
}

// ParseDelayConfig parses a raw delay node config.
func ParseDelayConfig(config map[string]any) (*DelayConfig, error) {
	parsed := &DelayConfig{
		Duration:     intValue(config, "duration"),
		Unit:         DelayUnit(stringValue(config, "unit")),
		SkipWeekends: boolValue(config, "skipWeekends"),
		SkipHolidays: boolValue(config, "skipHolidays"),
	}

	if parsed.Duration <= 0 {
		return nil, errors.New("delay duration must be positive")
	}

	if _, err := parsed.Interval(); err != nil {
		return nil, err
	}

	return parsed, nil
}

func stringValue(config map[string]any, key string) string {
	value, _ := config[key].(string)

	return value
}

func boolValue(config map[string]any, key string) bool {
	value, _ := config[key].(bool)

	return value
}

func intValue(config map[string]any, key string) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
