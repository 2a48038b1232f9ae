// Package matching resolves an inbound contact to the tenant's existing lead.
package matching

import (
	"context"
	"errors"
	"strings"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/repository"
	"crm_backend/platform/logger"
	"crm_backend/platform/metrics"
	"crm_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the persistence the matcher needs.
type Store interface {
	FindByExternalContactID(ctx context.Context, tenantID uuid.UUID, externalID string) (domain.Lead, error)
	FindLatestByPhoneKey(ctx context.Context, tenantID uuid.UUID, key string) (domain.Lead, error)
	SetExternalContactID(ctx context.Context, tenantID, leadID uuid.UUID, externalID string) (bool, error)
}

type Matcher struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Matcher {
	return &Matcher{store: store, log: log}
}

// Find returns the lead for the contact or nil when none exists. The external
// contact id is tried first; the phone match key second, newest lead first.
// A phone match adopts a new, non-empty external id unless another lead of
// the tenant already holds it.
func (m *Matcher) Find(ctx context.Context, tenantID uuid.UUID, externalContactID, rawPhone string) (*domain.Lead, error) {
	externalContactID = strings.TrimSpace(externalContactID)

	if externalContactID != "" {
		lead, err := m.store.FindByExternalContactID(ctx, tenantID, externalContactID)
		switch {
		case err == nil:
			metrics.LeadsMatched.WithLabelValues("external_id").Inc()
			return &lead, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	key := phone.MatchKey(rawPhone)
	if key == "" {
		return nil, nil
	}

	lead, err := m.store.FindLatestByPhoneKey(ctx, tenantID, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	metrics.LeadsMatched.WithLabelValues("phone").Inc()

	if externalContactID != "" && (lead.ExternalContactID == nil || *lead.ExternalContactID != externalContactID) {
		updated, err := m.store.SetExternalContactID(ctx, tenantID, lead.ID, externalContactID)
		if err != nil {
			return nil, err
		}
		if updated {
			lead.ExternalContactID = &externalContactID
			m.log.LeadEvent("lead_external_id_updated", tenantID.String(), lead.ID.String())
		} else {
			m.log.Warn("lead_external_id_taken", "tenantId", tenantID.String(), "leadId", lead.ID.String(), "externalContactId", externalContactID)
		}
	}

	return &lead, nil
}
