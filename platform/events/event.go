// Package events is the in-process publish/subscribe bus modules use to react
// to each other's state changes.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is anything published on the bus. Subscribers select by EventName.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// Keyed events carry a partition key used when they leave the process, for
// example as a broker routing key suffix.
type Keyed interface {
	Event
	PartitionKey() string
}

// Identified events carry a unique id consumers can deduplicate on.
type Identified interface {
	Event
	EventID() uuid.UUID
}

// BaseEvent is embedded by every domain event.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) EventID() uuid.UUID    { return e.ID }

// NewBaseEvent stamps a fresh id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events to the handlers subscribed to their name. Publish does not
// wait and only logs handler errors; PublishSync runs every handler in order
// and joins their errors.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
