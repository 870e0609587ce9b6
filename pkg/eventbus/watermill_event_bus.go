package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/fluxa-crm/fluxa/pkg/events"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(topicFor(event.GetType()), msg)
}

// Subscribe starts consuming every topic that has at least one registered
// handler. Handlers must be registered before calling Subscribe.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	for _, topic := range eb.topics() {
		messages, err := eb.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return err
		}

		go eb.consume(ctx, messages)
	}

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, messages <-chan *message.Message) {
	for msg := range messages {
		var event any

		eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

		handler, exists := eb.subscriptions[eventType]
		if !exists {
			msg.Ack()

			continue
		}

		switch eventType {
		case events.RunCreatedEvent:
			event = &events.RunCreated{}
		case events.RunStepAvailableEvent:
			event = &events.RunStepAvailable{}
		case events.RunResumedEvent:
			event = &events.RunResumed{}
		case events.RunCompletedEvent:
			event = &events.RunCompleted{}
		case events.RunFailedEvent:
			event = &events.RunFailed{}
		case events.RunCancelledEvent:
			event = &events.RunCancelled{}
		case events.TriggerEventReceivedEvent:
			event = &events.TriggerEventReceived{}
		default:
			msg.Nack()

			continue
		}

		err := json.Unmarshal(msg.Payload, event)
		if err != nil {
			msg.Nack()

			continue
		}

		err = handler(ctx, event)
		if err != nil {
			msg.Nack()

			continue
		}

		msg.Ack()
	}
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}

func (eb *WatermillEventBus) topics() []string {
	seen := make(map[string]bool)
	topics := make([]string, 0, 2)

	for eventType := range eb.subscriptions {
		topic := topicFor(eventType)
		if !seen[topic] {
			seen[topic] = true

			topics = append(topics, topic)
		}
	}

	return topics
}

// topicFor routes trigger traffic and run traffic to separate topics so the
// dispatcher and the workers scale independently.
func topicFor(eventType events.EventType) string {
	if eventType == events.TriggerEventReceivedEvent {
		return events.TriggersTopic
	}

	return events.RunStepsTopic
}
