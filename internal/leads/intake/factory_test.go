package intake

import (
	"context"
	"testing"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/leadstest"
	"crm_backend/internal/leads/matching"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

func newTestFactory(store *leadstest.Store, now time.Time) *Factory {
	return NewFactory(store, matching.New(store, logger.New("test")), "PK").
		WithClock(func() time.Time { return now })
}

func TestFactoryCreateDefaults(t *testing.T) {
	store := leadstest.NewStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newTestFactory(store, now)
	tenant := uuid.New()

	email := "  Ali@Example.COM "
	secondary := "0321 7654321"
	leadType := "residential"
	department := "retail"
	lead, created, err := f.Create(context.Background(), tenant, domain.Contact{
		Name:           "  ",
		Phone:          "0300 1234567",
		SecondaryPhone: &secondary,
		Email:          &email,
		LeadType:       &leadType,
		Source:         domain.SourceImport,
	}, &department)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected a new lead")
	}
	if lead.Name != "0300 1234567" {
		t.Fatalf("expected phone as fallback name, got %q", lead.Name)
	}
	if lead.Email == nil || *lead.Email != "ali@example.com" {
		t.Fatalf("expected normalized email, got %v", lead.Email)
	}
	if lead.SecondaryPhoneKey == nil || *lead.SecondaryPhoneKey != "217654321" {
		t.Fatalf("expected secondary key, got %v", lead.SecondaryPhoneKey)
	}
	if lead.Department == nil || *lead.Department != "retail" {
		t.Fatalf("expected department, got %v", lead.Department)
	}
	if !lead.NextFollowUpAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("expected next-day follow-up for imports, got %v", lead.NextFollowUpAt)
	}
}

func TestFactoryCreateIsGetOrCreate(t *testing.T) {
	store := leadstest.NewStore()
	f := newTestFactory(store, time.Now())
	tenant := uuid.New()

	first, created, err := f.Create(context.Background(), tenant, domain.Contact{Phone: "0300 1234567", ExternalContactID: "x-1"}, nil)
	if err != nil || !created {
		t.Fatalf("expected creation, created=%v err=%v", created, err)
	}

	cases := []domain.Contact{
		{Phone: "+92 300 1234567"},
		{Phone: "0300 0000001", ExternalContactID: "x-1"},
	}
	for _, c := range cases {
		got, created, err := f.Create(context.Background(), tenant, c, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created || got.ID != first.ID {
			t.Fatalf("expected existing lead for %+v, got created=%v id=%s", c, created, got.ID)
		}
	}
	if store.Creates != 1 {
		t.Fatalf("expected a single insert, got %d", store.Creates)
	}
}

func TestFactoryRejectsPhoneWithoutDigits(t *testing.T) {
	f := newTestFactory(leadstest.NewStore(), time.Now())
	_, _, err := f.Create(context.Background(), uuid.New(), domain.Contact{Phone: "---"}, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFactoryCreateReusesLeadOwningSecondaryPhone(t *testing.T) {
	store := leadstest.NewStore()
	f := newTestFactory(store, time.Now())
	tenant := uuid.New()
	secondary := "0611 111111"

	first, created, err := f.Create(context.Background(), tenant, domain.Contact{Phone: "0612 345678", SecondaryPhone: &secondary}, nil)
	if err != nil || !created {
		t.Fatalf("expected creation, created=%v err=%v", created, err)
	}

	sameSecondary := "+31 611 111111"
	firstPrimary := "0612 345678"
	cases := []domain.Contact{
		{Phone: "0622 222222", SecondaryPhone: &sameSecondary},
		{Phone: "0633 333333", SecondaryPhone: &firstPrimary},
	}
	for _, c := range cases {
		got, created, err := f.Create(context.Background(), tenant, c, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created || got.ID != first.ID {
			t.Fatalf("expected the lead holding %s, got created=%v id=%s", *c.SecondaryPhone, created, got.ID)
		}
	}
	if n := len(store.Leads(tenant)); n != 1 {
		t.Fatalf("expected one lead for the tenant, got %d", n)
	}

	other, created, err := f.Create(context.Background(), uuid.New(), domain.Contact{Phone: "0622 222222", SecondaryPhone: &sameSecondary}, nil)
	if err != nil || !created || other.ID == first.ID {
		t.Fatalf("expected another tenant to get its own lead, created=%v err=%v", created, err)
	}
}
