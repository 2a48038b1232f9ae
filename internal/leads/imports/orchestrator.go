package imports

import (
	"context"
	"fmt"
	"strings"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/assignment"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/intake"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"
	"crm_backend/platform/metrics"
	"crm_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type PhoneIndex interface {
	ListPhoneKeys(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}

// Options describes one batch.
type Options struct {
	ActorID         uuid.UUID
	DefaultLeadType *string
	FileName        string
	JobID           *uuid.UUID
}

// Orchestrator drives match, create and assign over a batch. Rows run without
// the creation lock; uniqueness is still enforced by the store.
type Orchestrator struct {
	phones            PhoneIndex
	factory           *intake.Factory
	selector          *assignment.Selector
	bus               events.Bus
	placeholderDomain string
	log               *logger.Logger
}

func NewOrchestrator(phones PhoneIndex, factory *intake.Factory, selector *assignment.Selector, bus events.Bus, placeholderDomain string, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		phones:            phones,
		factory:           factory,
		selector:          selector,
		bus:               bus,
		placeholderDomain: placeholderDomain,
		log:               log,
	}
}

// ImportBatch imports every row it can. A header without the required columns
// fails the whole batch with a single structural error and creates nothing.
// Rows whose phone already exists, or repeats an earlier row, are skipped
// without an error entry. A row whose lead was created but could not be
// assigned counts as created and also gets an error entry.
func (o *Orchestrator) ImportBatch(ctx context.Context, tenantID uuid.UUID, batch Batch, opts Options) (domain.ImportResult, error) {
	result := domain.ImportResult{Errors: []domain.ImportRowError{}}

	if tenantID == uuid.Nil {
		return result, apperr.Validation("tenant is required")
	}
	if missing := batch.MissingColumns(); len(missing) > 0 {
		msg := fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))
		result.Errors = append(result.Errors, domain.ImportRowError{Row: 0, Message: msg})
		return result, apperr.Validation(msg).WithDetails(result.Errors)
	}

	cursor := assignment.NewCursor()
	existing := map[string]bool{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keys, err := o.phones.ListPhoneKeys(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("load existing phones: %w", err)
		}
		for _, k := range keys {
			existing[k] = true
		}
		return nil
	})
	g.Go(func() error {
		return o.selector.Warm(gctx, tenantID, cursor)
	})
	if err := g.Wait(); err != nil {
		return result, err
	}

	seen := map[string]bool{}
	for _, row := range batch.Rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		o.importRow(ctx, tenantID, row, opts, cursor, existing, seen, &result)
	}

	o.log.Info("lead_import_completed",
		"tenantId", tenantID.String(),
		"fileName", opts.FileName,
		"created", result.CreatedCount,
		"skipped", result.SkippedCount,
		"failed", len(result.Errors),
	)
	o.bus.Publish(ctx, events.LeadImportCompleted{
		BaseEvent:    events.NewBaseEvent(),
		TenantID:     tenantID,
		ActorID:      opts.ActorID,
		JobID:        opts.JobID,
		FileName:     opts.FileName,
		CreatedCount: result.CreatedCount,
		SkippedCount: result.SkippedCount,
		ErrorCount:   len(result.Errors),
	})
	return result, nil
}

func (o *Orchestrator) importRow(ctx context.Context, tenantID uuid.UUID, row Row, opts Options, cursor *assignment.Cursor, existing, seen map[string]bool, result *domain.ImportResult) {
	fail := func(rawPhone, msg string) {
		result.Errors = append(result.Errors, domain.ImportRowError{Row: row.Line, Phone: rawPhone, Message: msg})
		metrics.ImportRows.WithLabelValues("failed").Inc()
	}
	skip := func(outcome string) {
		result.SkippedCount++
		metrics.ImportRows.WithLabelValues(outcome).Inc()
	}

	rawPhone := row.Get(ColumnPhone)
	name := row.Get(ColumnName)
	if rawPhone == "" {
		fail("", "phone is required")
		return
	}
	if name == "" {
		fail(rawPhone, "name is required")
		return
	}
	key := phone.MatchKey(rawPhone)
	if key == "" {
		fail(rawPhone, "phone has no digits")
		return
	}
	if existing[key] {
		skip("existing")
		return
	}
	if seen[key] {
		skip("duplicate")
		return
	}
	seen[key] = true

	contact := o.contactFromRow(row, name, rawPhone, key, opts)
	if contact.SecondaryPhone != nil {
		seen[phone.MatchKey(*contact.SecondaryPhone)] = true
	}

	lead, created, err := o.factory.Create(ctx, tenantID, contact, nil)
	if err != nil {
		fail(rawPhone, err.Error())
		return
	}
	if !created {
		skip("existing")
		return
	}
	result.CreatedCount++
	metrics.ImportRows.WithLabelValues("created").Inc()
	metrics.LeadsCreated.WithLabelValues(string(domain.SourceImport)).Inc()
	o.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  tenantID,
		Source:    string(lead.Source),
		Name:      lead.Name,
		Phone:     lead.Phone,
		City:      lead.City,
	})

	assigned, err := o.selector.Assign(ctx, lead, contact.City, cursor)
	if err != nil {
		o.log.Error("lead_assignment_failed", "tenantId", tenantID.String(), "leadId", lead.ID.String(), "row", row.Line, "error", err.Error())
		result.Errors = append(result.Errors, domain.ImportRowError{
			Row:     row.Line,
			Phone:   rawPhone,
			Message: "lead created but assignment failed: " + err.Error(),
		})
		if _, err := o.selector.LeaveUnassigned(ctx, lead, contact.City); err != nil {
			o.log.Error("lead_unassigned_update_failed", "leadId", lead.ID.String(), "error", err.Error())
		}
		return
	}
	if assigned.Agent != nil {
		o.bus.Publish(ctx, intake.AssignedEvent(assigned.Lead, *assigned.Agent, assigned.Strategy))
	}
}

// contactFromRow applies the import defaults: whatsapp falls back to the phone
// and email to <phone key>@<placeholder domain>.
func (o *Orchestrator) contactFromRow(row Row, name, rawPhone, key string, opts Options) domain.Contact {
	contact := domain.Contact{
		Name:     name,
		Phone:    rawPhone,
		City:     domain.OptionalString(row.Get(ColumnCity)),
		LeadType: domain.OptionalString(row.Get(ColumnLeadType)),
		Source:   domain.SourceImport,
	}
	if contact.LeadType == nil {
		contact.LeadType = opts.DefaultLeadType
	}

	whatsapp := row.Get(ColumnWhatsApp)
	if whatsapp == "" {
		whatsapp = rawPhone
	}
	if wk := phone.MatchKey(whatsapp); wk != "" && wk != key {
		contact.SecondaryPhone = &whatsapp
	}

	email := row.Get(ColumnEmail)
	if email == "" {
		email = fmt.Sprintf("%s@%s", key, o.placeholderDomain)
	}
	contact.Email = &email
	return contact
}
