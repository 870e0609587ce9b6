// Package events defines the messages exchanged between the dispatcher,
// the workers and the scheduler.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const RunStepsTopic = "fluxa.runs.steps" // Step dispatch queue consumed by workers
const TriggersTopic = "fluxa.triggers"   // Inbound trigger events consumed by the dispatcher

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Run lifecycle events.
	RunCreatedEvent   EventType = "run.created"
	RunResumedEvent   EventType = "run.resumed"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
	RunCancelledEvent EventType = "run.cancelled"

	// Step dispatch events.
	RunStepAvailableEvent EventType = "run.step.available"

	// Inbound trigger events.
	TriggerEventReceivedEvent EventType = "trigger.received"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id,omitempty"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RunCreated announces a freshly admitted run ready for its first step.
type RunCreated struct {
	BaseEvent

	WorkflowID      string `json:"workflow_id"`
	WorkflowVersion int    `json:"workflow_version"`
	TenantID        string `json:"tenant_id"`
}

func (e RunCreated) GetType() EventType {
	return RunCreatedEvent
}

// RunStepAvailable asks a worker to execute one node of a run. Workers
// deduplicate on (run_id, node_id, attempt).
type RunStepAvailable struct {
	BaseEvent

	NodeID  string `json:"node_id"`
	Attempt int    `json:"attempt"`
}

func (e RunStepAvailable) GetType() EventType {
	return RunStepAvailableEvent
}

// RunResumed re-admits a run parked on a delay or a rate limit deferral.
type RunResumed struct {
	BaseEvent

	NodeID string `json:"node_id"`
}

func (e RunResumed) GetType() EventType {
	return RunResumedEvent
}

type RunCompleted struct {
	BaseEvent

	Result     map[string]any `json:"result,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	NodeID     string `json:"node_id"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type RunCancelled struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (e RunCancelled) GetType() EventType {
	return RunCancelledEvent
}

// TriggerEventReceived carries an inbound event (message, schedule fire,
// manual start) toward the dispatcher.
type TriggerEventReceived struct {
	BaseEvent

	TriggerType string         `json:"trigger_type"`
	TenantID    string         `json:"tenant_id"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func (e TriggerEventReceived) GetType() EventType {
	return TriggerEventReceivedEvent
}

func NewBaseEvent(eventType EventType, runID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Metadata:  make(map[string]any),
	}
}
