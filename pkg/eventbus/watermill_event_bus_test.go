package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/channels/gochannel"
	"github.com/fluxa-crm/fluxa/pkg/events"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	received := make(chan *events.RunStepAvailable, 1)

	require.NoError(t, bus.Handle(events.RunStepAvailableEvent, func(_ context.Context, event interface{}) error {
		step, ok := event.(*events.RunStepAvailable)
		if ok {
			received <- step
		}

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	step := events.RunStepAvailable{
		BaseEvent: events.NewBaseEvent(events.RunStepAvailableEvent, "run-1"),
		NodeID:    "node-a",
		Attempt:   1,
	}
	require.NoError(t, bus.Publish(ctx, "run-1", step))

	select {
	case got := <-received:
		assert.Equal(t, "run-1", got.RunID)
		assert.Equal(t, "node-a", got.NodeID)
		assert.Equal(t, 1, got.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for step event")
	}
}

func TestWatermillEventBus_TriggerTopicRouting(t *testing.T) {
	assert.Equal(t, events.TriggersTopic, topicFor(events.TriggerEventReceivedEvent))
	assert.Equal(t, events.RunStepsTopic, topicFor(events.RunCreatedEvent))
	assert.Equal(t, events.RunStepsTopic, topicFor(events.RunCompletedEvent))
}
