// Package events declares the domain events the lead engine publishes and
// re-exports the platform bus so modules depend on one import.
package events

import (
	"crm_backend/platform/events"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Keyed       = events.Keyed
	Identified  = events.Identified
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// Leads

// LeadCreated is published once per inserted lead, after the creation lock is released.
type LeadCreated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Source   string    `json:"source"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	City     *string   `json:"city,omitempty"`
}

func (e LeadCreated) EventName() string    { return "leads.lead.created" }
func (e LeadCreated) PartitionKey() string { return e.TenantID.String() }

// LeadAssigned is published when a new lead receives an agent.
type LeadAssigned struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	TenantID   uuid.UUID `json:"tenantId"`
	AgentID    uuid.UUID `json:"agentId"`
	AgentName  string    `json:"agentName"`
	AgentEmail string    `json:"agentEmail,omitempty"`
	LeadName   string    `json:"leadName"`
	LeadPhone  string    `json:"leadPhone"`
	Strategy   string    `json:"strategy"`
	Branch     *string   `json:"branch,omitempty"`
	Department *string   `json:"department,omitempty"`
}

func (e LeadAssigned) EventName() string    { return "leads.lead.assigned" }
func (e LeadAssigned) PartitionKey() string { return e.TenantID.String() }

// LeadImportCompleted is published when a bulk import batch finishes.
type LeadImportCompleted struct {
	BaseEvent
	TenantID     uuid.UUID  `json:"tenantId"`
	ActorID      uuid.UUID  `json:"actorId"`
	JobID        *uuid.UUID `json:"jobId,omitempty"`
	FileName     string     `json:"fileName"`
	CreatedCount int        `json:"createdCount"`
	SkippedCount int        `json:"skippedCount"`
	ErrorCount   int        `json:"errorCount"`
}

func (e LeadImportCompleted) EventName() string    { return "leads.import.completed" }
func (e LeadImportCompleted) PartitionKey() string { return e.TenantID.String() }

// Webhook

// WebhookLeadReceived is published for every accepted webhook submission,
// whether it created a lead or matched an existing one.
type WebhookLeadReceived struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	LeadID   uuid.UUID `json:"leadId"`
	Channel  string    `json:"channel"`
	Created  bool      `json:"created"`
}

func (e WebhookLeadReceived) EventName() string    { return "webhook.lead.received" }
func (e WebhookLeadReceived) PartitionKey() string { return e.TenantID.String() }
