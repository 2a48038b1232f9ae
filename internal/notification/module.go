// Package notification turns lead domain events into in-app notifications
// and emails, and serves the notification inbox API.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crm_backend/internal/email"
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/notification/handler"
	"crm_backend/internal/notification/inapp"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	resourceTypeLead      = "lead"
	resourceTypeImportJob = "lead_import_job"
)

// Recipient is the contact data of a notified user.
type Recipient struct {
	Name  string
	Email string
}

// RecipientResolver looks up users who are notified by id only.
type RecipientResolver interface {
	ResolveRecipient(ctx context.Context, tenantID, userID uuid.UUID) (Recipient, error)
}

type Module struct {
	inapp      *inapp.Service
	handler    *handler.HTTPHandler
	sender     email.Sender
	recipients RecipientResolver
	cfg        config.NotificationConfig
	log        *logger.Logger
}

// New creates the notification module. recipients may be nil, in which case
// import summaries are only delivered in-app.
func New(store inapp.Store, sender email.Sender, recipients RecipientResolver, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	svc := inapp.NewService(store, log)
	return &Module{
		inapp:      svc,
		handler:    handler.NewHTTPHandler(svc),
		sender:     sender,
		recipients: recipients,
		cfg:        cfg,
		log:        log,
	}
}

func (m *Module) Name() string {
	return "notification"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// RegisterHandlers subscribes the module to the lead events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(m.handleLeadAssigned))
	bus.Subscribe(events.LeadImportCompleted{}.EventName(), events.HandlerFunc(m.handleImportCompleted))
}

func (m *Module) handleLeadAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadAssigned)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	leadID := e.LeadID
	_, inAppErr := m.inapp.Send(ctx, inapp.SendParams{
		TenantID:     e.TenantID,
		UserID:       e.AgentID,
		Title:        "New lead assigned",
		Content:      fmt.Sprintf("%s (%s) has been assigned to you.", e.LeadName, e.LeadPhone),
		ResourceID:   &leadID,
		ResourceType: resourceTypeLead,
		Category:     inapp.CategoryInfo,
	})

	var mailErr error
	if e.AgentEmail != "" {
		mailErr = m.sender.SendLeadAssignedEmail(ctx, e.AgentEmail, email.LeadAssignedEmail{
			AgentName: e.AgentName,
			LeadName:  e.LeadName,
			LeadPhone: e.LeadPhone,
			Strategy:  e.Strategy,
			LeadURL:   m.leadURL(e.LeadID),
		})
		if mailErr != nil {
			m.log.Warn("lead assignment email failed", "leadId", e.LeadID, "agentId", e.AgentID, "error", mailErr)
		}
	}

	return errors.Join(inAppErr, mailErr)
}

func (m *Module) handleImportCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadImportCompleted)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	if e.ActorID == uuid.Nil {
		return nil
	}

	category := inapp.CategorySuccess
	if e.ErrorCount > 0 {
		category = inapp.CategoryWarning
	}
	params := inapp.SendParams{
		TenantID: e.TenantID,
		UserID:   e.ActorID,
		Title:    "Lead import finished",
		Content: fmt.Sprintf("%s: %d created, %d skipped, %d errors.",
			e.FileName, e.CreatedCount, e.SkippedCount, e.ErrorCount),
		Category: category,
	}
	if e.JobID != nil {
		params.ResourceID = e.JobID
		params.ResourceType = resourceTypeImportJob
	}
	_, inAppErr := m.inapp.Send(ctx, params)

	if m.recipients == nil {
		return inAppErr
	}
	recipient, err := m.recipients.ResolveRecipient(ctx, e.TenantID, e.ActorID)
	if err != nil || recipient.Email == "" {
		m.log.Debug("import summary email skipped", "actorId", e.ActorID, "error", err)
		return inAppErr
	}
	mailErr := m.sender.SendImportCompletedEmail(ctx, recipient.Email, email.ImportCompletedEmail{
		FileName:     e.FileName,
		CreatedCount: e.CreatedCount,
		SkippedCount: e.SkippedCount,
		ErrorCount:   e.ErrorCount,
	})
	return errors.Join(inAppErr, mailErr)
}

func (m *Module) leadURL(leadID uuid.UUID) string {
	if m.cfg == nil {
		return ""
	}
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	if base == "" {
		return ""
	}
	return base + "/leads/" + leadID.String()
}

var _ apphttp.Module = (*Module)(nil)
