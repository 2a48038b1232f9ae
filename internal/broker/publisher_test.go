package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"crm_backend/internal/events"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{exchange: exchange, key: key, msg: msg})
	return nil
}

type unkeyedEvent struct{ events.BaseEvent }

func (unkeyedEvent) EventName() string { return "test.unkeyed" }

func TestRoutingKey(t *testing.T) {
	tenant := uuid.New()
	if got := RoutingKey(events.LeadCreated{TenantID: tenant}); got != "leads.lead.created."+tenant.String() {
		t.Fatalf("unexpected key %q", got)
	}
	if got := RoutingKey(unkeyedEvent{}); got != "test.unkeyed" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestPublisherForwardsSubscribedEvents(t *testing.T) {
	log := logger.New("test")
	ch := &fakeChannel{}
	bus := events.NewInMemoryBus(log)
	NewPublisher(ch, "crm.leads", log).Subscribe(bus)

	tenant, lead, eventID := uuid.New(), uuid.New(), uuid.New()
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	err := bus.PublishSync(context.Background(), events.LeadAssigned{
		BaseEvent: events.BaseEvent{ID: eventID, Timestamp: ts},
		LeadID:    lead,
		TenantID:  tenant,
		AgentID:   uuid.New(),
		Strategy:  "location",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(ch.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(ch.msgs))
	}
	m := ch.msgs[0]
	if m.exchange != "crm.leads" || m.key != "leads.lead.assigned."+tenant.String() {
		t.Fatalf("unexpected destination %s %s", m.exchange, m.key)
	}
	if m.msg.DeliveryMode != amqp.Persistent || m.msg.Type != "leads.lead.assigned" || !m.msg.Timestamp.Equal(ts) || m.msg.MessageId != eventID.String() {
		t.Fatalf("unexpected publishing %+v", m.msg)
	}
	var body map[string]any
	if err := json.Unmarshal(m.msg.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["leadId"] != lead.String() || body["strategy"] != "location" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestPublisherReportsChannelErrors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := NewPublisher(ch, "crm.leads", logger.New("test"))
	if err := p.Handle(context.Background(), events.LeadCreated{TenantID: uuid.New()}); err == nil {
		t.Fatalf("expected an error")
	}
}
