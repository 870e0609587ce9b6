package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionConfigWebhook(t *testing.T) {
	parsed, err := ParseActionConfig(map[string]any{
		"action":     "call_webhook",
		"url":        "https://example.com/hook",
		"method":     "POST",
		"idempotent": true,
		"payload":    map[string]any{"k": "v"},
	})
	require.NoError(t, err)

	assert.Equal(t, ActionCallWebhook, parsed.Kind)
	require.NotNil(t, parsed.Webhook)
	assert.Equal(t, "https://example.com/hook", parsed.Webhook.URL)
	assert.True(t, parsed.Retryable())
}

func TestParseActionConfigWebhookRequiresURL(t *testing.T) {
	_, err := ParseActionConfig(map[string]any{"action": "call_webhook"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestParseActionConfigMessage(t *testing.T) {
	parsed, err := ParseActionConfig(map[string]any{
		"action":    "send_message",
		"contactId": "c-1",
		"content":   "Olá!",
		"aiEnabled": true,
	})
	require.NoError(t, err)

	assert.Equal(t, ActionSendMessage, parsed.Kind)
	assert.True(t, parsed.AIEnabled)
	assert.False(t, parsed.Retryable(), "messages are not idempotent")
	assert.Equal(t, 1, parsed.Attempts(3), "non-idempotent actions get one attempt")
}

func TestParseActionConfigMediaRequiresURL(t *testing.T) {
	_, err := ParseActionConfig(map[string]any{
		"action":    "send_image",
		"contactId": "c-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mediaUrl")
}

func TestParseActionConfigUnknownKind(t *testing.T) {
	_, err := ParseActionConfig(map[string]any{"action": "teleport"})
	require.Error(t, err)
}

func TestActionConfigAttempts(t *testing.T) {
	idempotent := &ActionConfig{
		Kind:    ActionCallWebhook,
		Webhook: &WebhookParams{URL: "https://example.com", Idempotent: true},
	}
	assert.Equal(t, 3, idempotent.Attempts(3))

	idempotent.MaxAttempts = 5
	assert.Equal(t, 5, idempotent.Attempts(3))
}

func TestParseConditionConfig(t *testing.T) {
	parsed, err := ParseConditionConfig(map[string]any{
		"field":    "intent",
		"operator": "equals",
		"value":    "vendas",
	})
	require.NoError(t, err)
	assert.Equal(t, "intent", parsed.Field)

	_, err = ParseConditionConfig(map[string]any{
		"field":    "intent",
		"operator": "matches",
	})
	require.Error(t, err)
}

func TestParseDelayConfig(t *testing.T) {
	parsed, err := ParseDelayConfig(map[string]any{
		"duration": float64(5),
		"unit":     "minutes",
	})
	require.NoError(t, err)

	interval, err := parsed.Interval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, interval)

	_, err = ParseDelayConfig(map[string]any{"duration": float64(5), "unit": "fortnights"})
	require.Error(t, err)

	_, err = ParseDelayConfig(map[string]any{"duration": float64(0), "unit": "minutes"})
	require.Error(t, err)
}

func TestCompileResolvesAdjacency(t *testing.T) {
	graph := &Graph{
		Nodes: []*Node{
			{ID: "t", Kind: NodeKindTrigger},
			{ID: "a", Kind: NodeKindAction, Config: map[string]any{
				"action": "send_message", "contactId": "c-1", "content": "oi",
			}},
			{ID: "c", Kind: NodeKindCondition, Config: map[string]any{
				"field": "intent", "operator": "equals", "value": "vendas",
			}},
			{ID: "yes", Kind: NodeKindAction, Config: map[string]any{
				"action": "add_tag", "entityId": "c-1", "tag": "lead",
			}},
			{ID: "no", Kind: NodeKindAction, Config: map[string]any{
				"action": "add_tag", "entityId": "c-1", "tag": "geral",
			}},
		},
		Edges: []*Edge{
			{From: "t", To: "a", Branch: BranchNext},
			{From: "a", To: "c", Branch: BranchNext},
			{From: "c", To: "yes", Branch: BranchTrue},
			{From: "c", To: "no", Branch: BranchFalse},
		},
	}

	compiled, err := Compile(graph)
	require.NoError(t, err)
	require.NotNil(t, compiled.TriggerNode)

	next, ok := compiled.Successor("t")
	require.True(t, ok)
	assert.Equal(t, "a", next)

	target, ok := compiled.BranchTarget("c", BranchTrue)
	require.True(t, ok)
	assert.Equal(t, "yes", target)

	target, ok = compiled.BranchTarget("c", BranchFalse)
	require.True(t, ok)
	assert.Equal(t, "no", target)

	_, ok = compiled.Successor("yes")
	assert.False(t, ok, "terminal node has no successor")
}

func TestCompileReportsNodeParseErrors(t *testing.T) {
	graph := &Graph{
		Nodes: []*Node{
			{ID: "t", Kind: NodeKindTrigger},
			{ID: "bad", Kind: NodeKindAction, Config: map[string]any{"action": "call_webhook"}},
		},
	}

	_, err := Compile(graph)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestTriggerConfigValidate(t *testing.T) {
	assert.NoError(t, (&TriggerConfig{TriggerType: TriggerTypeManual}).Validate())
	assert.Error(t, (&TriggerConfig{TriggerType: TriggerTypeKeyword}).Validate())
	assert.NoError(t, (&TriggerConfig{TriggerType: TriggerTypeKeyword, Keyword: "oi"}).Validate())
	assert.Error(t, (&TriggerConfig{TriggerType: TriggerTypeSchedule, Cron: "not-cron"}).Validate())
	assert.NoError(t, (&TriggerConfig{TriggerType: TriggerTypeSchedule, Cron: "*/5 * * * *"}).Validate())
	assert.Error(t, (&TriggerConfig{TriggerType: "push"}).Validate())
}

func TestRunStatusHelpers(t *testing.T) {
	run := &WorkflowRun{Status: RunStatusWaiting}
	assert.Equal(t, RunStatusRunning, run.ExternalStatus())
	assert.True(t, run.IsActive())

	run.Status = RunStatusCompleted
	assert.True(t, run.IsTerminal())

	run.RecordOutput("n1", map[string]any{"ok": true})
	assert.Equal(t, map[string]any{"ok": true}, run.Context["n1"])
}

func TestScheduleDue(t *testing.T) {
	schedule, err := NewSchedule("wf-1", "tenant-1", "*/5 * * * *")
	require.NoError(t, err)
	assert.True(t, schedule.Active)
	assert.False(t, schedule.IsDue(time.Now().UTC()), "fresh schedule is not due yet")

	schedule.NextDueAt = time.Now().UTC().Add(-time.Minute)
	assert.True(t, schedule.IsDue(time.Now().UTC()))

	require.NoError(t, schedule.Fire(time.Now().UTC()))
	assert.False(t, schedule.IsDue(time.Now().UTC()))

	_, err = NewSchedule("wf-1", "tenant-1", "bad cron")
	require.Error(t, err)
}
