package webhook

import (
	"context"
	"strings"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/intake"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	channelForms = "forms"
	channelChat  = "chat"
)

// Ingester runs the lead intake flow. Satisfied by intake.Service.
type Ingester interface {
	Ingest(ctx context.Context, tenantID uuid.UUID, contact domain.Contact) (intake.Result, error)
}

// FormSubmission represents an inbound form submission via the webhook.
type FormSubmission struct {
	Fields       map[string]string
	SourceDomain string
	APIKeyID     uuid.UUID
}

// ChatContact is the contact payload chat platforms post.
type ChatContact struct {
	ContactID      string `json:"contactId" validate:"required,max=200"`
	Name           string `json:"name" validate:"max=200"`
	Phone          string `json:"phone" validate:"required,phonelike,max=50"`
	SecondaryPhone string `json:"secondaryPhone" validate:"max=50"`
	Email          string `json:"email" validate:"omitempty,email"`
	City           string `json:"city" validate:"max=100"`
	LeadType       string `json:"leadType" validate:"max=100"`
}

// SubmissionResponse is returned to the caller on success.
type SubmissionResponse struct {
	LeadID          uuid.UUID         `json:"leadId"`
	Created         bool              `json:"created"`
	IsIncomplete    bool              `json:"isIncomplete"`
	AssignedAgentID *uuid.UUID        `json:"assignedAgentId,omitempty"`
	Extracted       map[string]string `json:"extractedFields,omitempty"`
	Message         string            `json:"message"`
}

// Service normalizes inbound channel payloads into contact records and runs intake.
type Service struct {
	ingester Ingester
	eventBus events.Bus
	log      *logger.Logger
}

// NewService creates a new webhook service.
func NewService(ingester Ingester, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{ingester: ingester, eventBus: eventBus, log: log}
}

// ProcessFormSubmission extracts contact fields from an arbitrary form and ingests them.
func (s *Service) ProcessFormSubmission(ctx context.Context, orgID uuid.UUID, sub FormSubmission) (SubmissionResponse, error) {
	extracted := ExtractFields(sub.Fields)
	if !extracted.HasPhone() {
		s.log.Info("webhook: form without phone rejected", "domain", sub.SourceDomain, "fields", len(sub.Fields))
		return SubmissionResponse{}, apperr.Validation("no phone number found in form data").
			WithDetails(extracted.Map())
	}

	resp, err := s.ingest(ctx, orgID, extracted.Contact(domain.SourceWebForm), channelForms)
	if err != nil {
		s.log.Error("webhook: failed to ingest form submission", "error", err, "domain", sub.SourceDomain)
		return SubmissionResponse{}, err
	}
	resp.IsIncomplete = extracted.IsIncomplete()
	resp.Extracted = extracted.Map()
	return resp, nil
}

// ProcessChatContact ingests a contact pushed by a chat platform.
func (s *Service) ProcessChatContact(ctx context.Context, orgID uuid.UUID, payload ChatContact) (SubmissionResponse, error) {
	contact := domain.Contact{
		ExternalContactID: strings.TrimSpace(payload.ContactID),
		Name:              strings.TrimSpace(payload.Name),
		Phone:             payload.Phone,
		SecondaryPhone:    optional(payload.SecondaryPhone),
		Email:             optional(payload.Email),
		City:              optional(payload.City),
		LeadType:          optional(payload.LeadType),
		Source:            domain.SourceChat,
	}
	resp, err := s.ingest(ctx, orgID, contact, channelChat)
	if err != nil {
		s.log.Error("webhook: failed to ingest chat contact", "error", err, "contactId", payload.ContactID)
		return SubmissionResponse{}, err
	}
	resp.IsIncomplete = contact.Name == ""
	return resp, nil
}

func (s *Service) ingest(ctx context.Context, orgID uuid.UUID, contact domain.Contact, channel string) (SubmissionResponse, error) {
	result, err := s.ingester.Ingest(ctx, orgID, contact)
	if err != nil {
		return SubmissionResponse{}, err
	}

	s.eventBus.Publish(ctx, events.WebhookLeadReceived{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  orgID,
		LeadID:    result.Lead.ID,
		Channel:   channel,
		Created:   result.Created,
	})

	resp := SubmissionResponse{
		LeadID:  result.Lead.ID,
		Created: result.Created,
		Message: "Lead created",
	}
	if !result.Created {
		resp.Message = "Existing lead matched"
	}
	if result.Agent != nil {
		agentID := result.Agent.ID
		resp.AssignedAgentID = &agentID
	}
	return resp, nil
}
