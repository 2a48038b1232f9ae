package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"crm_backend/internal/events"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher writes events as persistent JSON messages. The routing key is the
// event name, suffixed with the partition key for keyed events.
type Publisher struct {
	ch       Channel
	exchange string
	log      *logger.Logger
}

func NewPublisher(ch Channel, exchange string, log *logger.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

// Subscribe forwards the lead events to the exchange.
func (p *Publisher) Subscribe(bus events.Bus) {
	for _, name := range []string{
		events.LeadCreated{}.EventName(),
		events.LeadAssigned{}.EventName(),
		events.LeadImportCompleted{}.EventName(),
		events.WebhookLeadReceived{}.EventName(),
	} {
		bus.Subscribe(name, p)
	}
}

// Handle implements events.Handler.
func (p *Publisher) Handle(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt(),
		Type:         event.EventName(),
		Body:         body,
	}
	if identified, ok := event.(events.Identified); ok && identified.EventID() != uuid.Nil {
		msg.MessageId = identified.EventID().String()
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(event), false, false, msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.EventName(), err)
	}
	p.log.Debug("event forwarded to broker", "event", event.EventName())
	return nil
}

// RoutingKey returns "<event name>.<partition key>" for keyed events and the
// bare event name otherwise.
func RoutingKey(event events.Event) string {
	if keyed, ok := event.(events.Keyed); ok && keyed.PartitionKey() != "" {
		return event.EventName() + "." + keyed.PartitionKey()
	}
	return event.EventName()
}

var _ events.Handler = (*Publisher)(nil)
