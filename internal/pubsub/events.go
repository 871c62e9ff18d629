// Package pubsub provides a generic, non-blocking publish/subscribe broker.
package pubsub

import (
	"context"
	"time"
)

// EventType names what happened. Publishers define their own constants.
type EventType string

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
