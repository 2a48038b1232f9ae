// Package intake turns inbound contacts into leads: match, lock, create, assign.
package intake

import (
	"context"
	"strings"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/matching"
	"crm_backend/internal/leads/repository"
	"crm_backend/platform/apperr"
	"crm_backend/platform/phone"

	"github.com/google/uuid"
)

type FactoryStore interface {
	CreateWithLifecycle(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, bool, error)
}

// Factory creates leads idempotently. Callers outside a bulk import hold the
// creation lock for the contact's phone key.
type Factory struct {
	store       FactoryStore
	matcher     *matching.Matcher
	phoneRegion string
	now         func() time.Time
}

func NewFactory(store FactoryStore, matcher *matching.Matcher, phoneRegion string) *Factory {
	return &Factory{store: store, matcher: matcher, phoneRegion: phoneRegion, now: time.Now}
}

// WithClock replaces the factory clock.
func (f *Factory) WithClock(now func() time.Time) *Factory {
	f.now = now
	return f
}

// Create returns the existing lead for the contact or inserts a new one with the
// open lifecycle fact. A lead already holding the contact's secondary number,
// as primary or secondary phone, counts as existing. created reports whether a
// row was inserted.
func (f *Factory) Create(ctx context.Context, tenantID uuid.UUID, contact domain.Contact, department *string) (domain.Lead, bool, error) {
	key := contact.PhoneKey()
	if key == "" {
		return domain.Lead{}, false, apperr.Validation("contact phone has no digits")
	}

	existing, err := f.matcher.Find(ctx, tenantID, contact.ExternalContactID, contact.Phone)
	if err != nil {
		return domain.Lead{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	var secondaryKey string
	if contact.SecondaryPhone != nil {
		secondaryKey = phone.MatchKey(*contact.SecondaryPhone)
	}
	if secondaryKey != "" && secondaryKey != key {
		// A secondary number already on file belongs to that lead's contact.
		existing, err := f.matcher.Find(ctx, tenantID, contact.ExternalContactID, *contact.SecondaryPhone)
		if err != nil {
			return domain.Lead{}, false, err
		}
		if existing != nil {
			return *existing, false, nil
		}
	}

	source := contact.Source
	if !source.Valid() {
		source = domain.SourceManual
	}
	now := f.now().UTC()

	params := repository.CreateLeadParams{
		TenantID:          tenantID,
		ExternalContactID: domain.OptionalString(contact.ExternalContactID),
		Name:              contact.DisplayName(),
		Phone:             phone.NormalizeE164(contact.Phone, f.phoneRegion),
		PhoneKey:          key,
		Email:             normalizeEmail(contact.Email),
		City:              trimmed(contact.City),
		Department:        trimmed(department),
		Status:            domain.StatusNew,
		ActivityStatus:    domain.ActivityActive,
		Source:            source,
		LeadType:          trimmed(contact.LeadType),
		NextFollowUpAt:    domain.NextFollowUp(source, now),
		Now:               now,
	}
	if secondaryKey != "" && secondaryKey != key {
		normalized := phone.NormalizeE164(*contact.SecondaryPhone, f.phoneRegion)
		params.SecondaryPhone = &normalized
		params.SecondaryPhoneKey = &secondaryKey
	}

	return f.store.CreateWithLifecycle(ctx, params)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return domain.OptionalString(*s)
}

func normalizeEmail(s *string) *string {
	if s == nil {
		return nil
	}
	return domain.OptionalString(strings.ToLower(*s))
}
