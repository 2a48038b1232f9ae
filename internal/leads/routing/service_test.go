package routing

import (
	"context"
	"testing"

	"crm_backend/internal/leads/leadstest"
	"crm_backend/internal/leads/ports"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

func newService() (*Service, *leadstest.Directory, uuid.UUID) {
	dir := leadstest.NewDirectory()
	return New(leadstest.NewStore(), dir, logger.New("test")), dir, uuid.New()
}

func TestLocationLifecycle(t *testing.T) {
	svc, _, tenant := newService()
	ctx := context.Background()

	if _, err := svc.ByCity(ctx, tenant, "Lahore"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found before any config, got %v", err)
	}

	cfg, err := svc.AddLocation(ctx, tenant, " Lahore ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc, ok := cfg.Locations["lahore"]; !ok || loc.DisplayName != "Lahore" || !loc.Active {
		t.Fatalf("unexpected locations %+v", cfg.Locations)
	}
	if _, err := svc.ByCity(ctx, tenant, "LAHORE"); err != nil {
		t.Fatalf("expected city to be routed, got %v", err)
	}

	if _, err := svc.SetActive(ctx, tenant, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ByCity(ctx, tenant, "Lahore"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected inactive config to route nothing, got %v", err)
	}

	if _, err := svc.RemoveLocation(ctx, tenant, "lahore"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.RemoveLocation(ctx, tenant, "lahore"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second removal, got %v", err)
	}
	if _, err := svc.AddLocation(ctx, tenant, "   "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for blank city, got %v", err)
	}
}

func TestUserLifecycleAndNextUser(t *testing.T) {
	svc, dir, tenant := newService()
	ctx := context.Background()
	inactive := ports.Agent{Name: "Gone", Role: "sales_agent"}
	agents := dir.Add(tenant,
		ports.Agent{Name: "A", Role: "sales_agent", Active: true},
		ports.Agent{Name: "B", Role: "sales_agent", Active: true},
		inactive,
	)

	if _, err := svc.NextUser(ctx, tenant); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for empty pool, got %v", err)
	}
	if _, err := svc.AddUser(ctx, tenant, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected unknown user to be rejected, got %v", err)
	}
	if _, err := svc.AddUser(ctx, tenant, agents[2].ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected inactive user to be rejected, got %v", err)
	}

	for _, a := range agents[:2] {
		if _, err := svc.AddUser(ctx, tenant, a.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	next, err := svc.NextUser(ctx, tenant)
	if err != nil || next.UserID != agents[0].ID {
		t.Fatalf("expected A next, got %+v err=%v", next, err)
	}
	// Peeking does not consume the turn.
	again, _ := svc.NextUser(ctx, tenant)
	if again.UserID != next.UserID || again.Count != 0 {
		t.Fatalf("expected NextUser to be read-only, got %+v", again)
	}

	if _, err := svc.RemoveUser(ctx, tenant, agents[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next, _ = svc.NextUser(ctx, tenant)
	if next.UserID != agents[1].ID {
		t.Fatalf("expected B after removing A, got %+v", next)
	}
	if _, err := svc.RemoveUser(ctx, tenant, agents[0].ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for removed user, got %v", err)
	}
}
