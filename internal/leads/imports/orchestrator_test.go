package imports

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/assignment"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/intake"
	"crm_backend/internal/leads/leadstest"
	"crm_backend/internal/leads/matching"
	"crm_backend/internal/leads/ports"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"
	"crm_backend/platform/phone"

	"github.com/google/uuid"
)

type countingBus struct {
	mu    sync.Mutex
	names []string
	last  events.Event
}

func (b *countingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.names = append(b.names, e.EventName())
	b.last = e
}

func (b *countingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *countingBus) Subscribe(string, events.Handler) {}

func (b *countingBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, got := range b.names {
		if got == name {
			n++
		}
	}
	return n
}

type env struct {
	tenant uuid.UUID
	store  *leadstest.Store
	dir    *leadstest.Directory
	bus    *countingBus
	agents []ports.Agent
	orch   *Orchestrator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.New("test")
	e := &env{tenant: uuid.New(), store: leadstest.NewStore(), dir: leadstest.NewDirectory(), bus: &countingBus{}}
	e.agents = e.dir.Add(e.tenant,
		ports.Agent{Name: "A", Role: "sales_agent", Active: true},
		ports.Agent{Name: "B", Role: "sales_agent", Active: true},
	)
	regions, err := assignment.NewRegions(nil)
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	matcher := matching.New(e.store, log)
	factory := intake.NewFactory(e.store, matcher, "PK")
	selector := assignment.NewSelector(e.store, e.store, e.store, e.dir, assignment.Options{
		Regions:           regions,
		AssignableRoles:   []string{"sales_agent"},
		FallbackAdminRole: "admin",
		DefaultDepartment: "sales",
	}, log)
	e.orch = NewOrchestrator(e.store, factory, selector, e.bus, "placeholder.invalid", log)
	return e
}

func mustParseCSV(t *testing.T, data string) Batch {
	t.Helper()
	batch, err := ParseCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return batch
}

func TestImportSkipsExistingPhoneSilently(t *testing.T) {
	e := newEnv(t)
	e.store.Seed(domain.Lead{TenantID: e.tenant, Phone: "+923001111111", PhoneKey: phone.MatchKey("03001111111")})

	batch := mustParseCSV(t, "Name,Phone\nAli,0300 1111111\nSara,0300 2222222\nOmar,0300 3333333\n")
	res, err := e.orch.ImportBatch(context.Background(), e.tenant, batch, Options{FileName: "leads.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CreatedCount != 2 || res.SkippedCount != 1 || len(res.Errors) != 0 {
		t.Fatalf("expected created=2 skipped=1 errors=0, got %+v", res)
	}
	if e.bus.count("leads.import.completed") != 1 {
		t.Fatal("expected an import completed event")
	}
}

func TestImportTwiceCreatesNothingTheSecondTime(t *testing.T) {
	e := newEnv(t)
	data := "name,phone,city\nAli,0300 1111111,Lahore\nSara,0300 2222222,Karachi\n"

	first, err := e.orch.ImportBatch(context.Background(), e.tenant, mustParseCSV(t, data), Options{})
	if err != nil || first.CreatedCount != 2 {
		t.Fatalf("expected first import to create 2, got %+v err=%v", first, err)
	}
	second, err := e.orch.ImportBatch(context.Background(), e.tenant, mustParseCSV(t, data), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.CreatedCount != 0 || second.SkippedCount != 2 {
		t.Fatalf("expected re-import to create nothing, got %+v", second)
	}
	if len(e.store.Leads(e.tenant)) != 2 {
		t.Fatalf("expected 2 leads in total, got %d", len(e.store.Leads(e.tenant)))
	}
}

func TestImportWithoutPhoneColumnIsStructuralError(t *testing.T) {
	e := newEnv(t)
	batch := mustParseCSV(t, "name,mobile\nAli,0300 1111111\n")

	res, err := e.orch.ImportBatch(context.Background(), e.tenant, batch, Options{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if res.CreatedCount != 0 || len(res.Errors) != 1 {
		t.Fatalf("expected a single structural error and nothing created, got %+v", res)
	}
	if !strings.Contains(res.Errors[0].Message, "phone") {
		t.Fatalf("expected the error to name the missing column, got %q", res.Errors[0].Message)
	}
	if len(e.store.Leads(e.tenant)) != 0 {
		t.Fatal("expected no leads to be created")
	}
}

func TestImportRowErrorsDoNotAbortBatch(t *testing.T) {
	e := newEnv(t)
	batch := mustParseCSV(t, "name,phone\n,0300 1111111\nNo Phone,\nBad,n/a\nGood,0300 4444444\nGood again,+92 300 4444444\n")

	res, err := e.orch.ImportBatch(context.Background(), e.tenant, batch, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CreatedCount != 1 || res.SkippedCount != 1 || len(res.Errors) != 3 {
		t.Fatalf("expected created=1 skipped=1 errors=3, got %+v", res)
	}
	wantRows := []int{2, 3, 4}
	for i, rowErr := range res.Errors {
		if rowErr.Row != wantRows[i] {
			t.Fatalf("expected error rows %v, got %+v", wantRows, res.Errors)
		}
	}
}

func TestImportAppliesRowDefaultsAndRotates(t *testing.T) {
	e := newEnv(t)
	leadType := "cold"
	batch := mustParseCSV(t, "Name,PHONE, WhatsApp ,Email,City\n"+
		"Ali,0321 1111111,,,Lahore\n"+
		"Sara,0321 2222222,0333 9999999,sara@example.com,\n")

	res, err := e.orch.ImportBatch(context.Background(), e.tenant, batch, Options{DefaultLeadType: &leadType})
	if err != nil || res.CreatedCount != 2 {
		t.Fatalf("expected 2 created, got %+v err=%v", res, err)
	}

	leads := e.store.Leads(e.tenant)
	ali, sara := leads[0], leads[1]
	if want := phone.MatchKey("0321 1111111") + "@placeholder.invalid"; ali.Email == nil || *ali.Email != want {
		t.Fatalf("expected placeholder email, got %v", ali.Email)
	}
	if ali.SecondaryPhone != nil {
		t.Fatalf("expected whatsapp to default to the phone, got %v", *ali.SecondaryPhone)
	}
	if sara.SecondaryPhoneKey == nil || *sara.SecondaryPhoneKey != phone.MatchKey("0333 9999999") {
		t.Fatalf("expected whatsapp as secondary phone, got %v", sara.SecondaryPhoneKey)
	}
	if ali.LeadType == nil || *ali.LeadType != "cold" {
		t.Fatalf("expected default lead type, got %v", ali.LeadType)
	}
	if ali.Source != domain.SourceImport || !ali.NextFollowUpAt.After(ali.CreatedAt) {
		t.Fatalf("expected import source and deferred follow-up, got %+v", ali)
	}
	if ali.AssignedAgentID == nil || sara.AssignedAgentID == nil || *ali.AssignedAgentID == *sara.AssignedAgentID {
		t.Fatal("expected the batch cursor to rotate across agents")
	}
	if e.dir.Calls != 1 {
		t.Fatalf("expected the agent pool to be loaded once for the batch, got %d", e.dir.Calls)
	}
}

func TestImportDuplicateWithinBatchViaWhatsApp(t *testing.T) {
	e := newEnv(t)
	batch := mustParseCSV(t, "name,phone,whatsapp\nAli,0300 1111111,0321 5555555\nAli Alt,0321 5555555,\n")

	res, err := e.orch.ImportBatch(context.Background(), e.tenant, batch, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CreatedCount != 1 || res.SkippedCount != 1 {
		t.Fatalf("expected the whatsapp number to dedupe the second row, got %+v", res)
	}
}

func TestImportReportsRowsWhoseAssignmentFailed(t *testing.T) {
	e := newEnv(t)
	cfg := domain.NewRoutingConfig(e.tenant)
	cfg.AddLocation("Lahore")
	cfg.AddUser(e.agents[0].ID, "A")
	e.store.PutRoutingConfig(cfg)
	e.store.SaveRoutingErr = errors.New("db down")

	batch := mustParseCSV(t, "name,phone,city\nAli,0300 1111111,Lahore\nSara,0300 2222222,\n")
	res, err := e.orch.ImportBatch(context.Background(), e.tenant, batch, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CreatedCount != 2 || len(res.Errors) != 1 {
		t.Fatalf("expected 2 created and 1 row error, got %+v", res)
	}
	rowErr := res.Errors[0]
	if rowErr.Row != 2 || rowErr.Phone != "0300 1111111" || !strings.Contains(rowErr.Message, "assignment failed") {
		t.Fatalf("unexpected row error %+v", rowErr)
	}

	leads := e.store.Leads(e.tenant)
	ali, sara := leads[0], leads[1]
	if ali.AssignedAgentID != nil || ali.Department == nil || *ali.Department != "sales" {
		t.Fatalf("expected the failed row's lead unassigned with the default department, got %+v", ali)
	}
	if sara.AssignedAgentID == nil {
		t.Fatal("expected the next row to be assigned")
	}
}
