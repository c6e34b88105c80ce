// Package eventbus publishes and consumes run and node lifecycle events
// over a watermill-backed message channel.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/tapestry-ai/tapestry/pkg/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
}

type EventHandler func(ctx context.Context, event events.Event) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// eventFactories maps wire event types back to concrete structs for
// decoding on the subscribe side.
var eventFactories = map[events.EventType]func() events.Event{
	events.RunCreatedEvent:    func() events.Event { return &runCreated{} },
	events.RunCompletedEvent:  func() events.Event { return &runCompleted{} },
	events.RunFailedEvent:     func() events.Event { return &runFailed{} },
	events.RunPausedEvent:     func() events.Event { return &runPaused{} },
	events.RunResumedEvent:    func() events.Event { return &runResumed{} },
	events.RunCancelledEvent:  func() events.Event { return &runCancelled{} },
	events.NodeStartedEvent:   func() events.Event { return &nodeStarted{} },
	events.NodeWaitingEvent:   func() events.Event { return &nodeWaiting{} },
	events.NodeCompletedEvent: func() events.Event { return &nodeCompleted{} },
	events.NodeFailedEvent:    func() events.Event { return &nodeFailed{} },
	events.NodeSkippedEvent:   func() events.Event { return &nodeSkipped{} },
}

// Aliases keep the factory map readable without re-importing.
type (
	runCreated    = events.RunCreated
	runCompleted  = events.RunCompleted
	runFailed     = events.RunFailed
	runPaused     = events.RunPaused
	runResumed    = events.RunResumed
	runCancelled  = events.RunCancelled
	nodeStarted   = events.NodeStarted
	nodeWaiting   = events.NodeWaiting
	nodeCompleted = events.NodeCompleted
	nodeFailed    = events.NodeFailed
	nodeSkipped   = events.NodeSkipped
)

func topicFor(eventType events.EventType) string {
	switch eventType {
	case events.NodeStartedEvent, events.NodeWaitingEvent, events.NodeCompletedEvent,
		events.NodeFailedEvent, events.NodeSkippedEvent:
		return events.NodeTopic
	default:
		return events.RunTopic
	}
}

type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(_ context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.GetType(), err)
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(topicFor(event.GetType()), msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context, topic string, handler EventHandler) error {
	messages, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			factory, ok := eventFactories[eventType]
			if !ok {
				msg.Nack()

				continue
			}

			event := factory()
			if err := json.Unmarshal(msg.Payload, event); err != nil {
				msg.Nack()

				continue
			}

			if err := handler(ctx, event); err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
