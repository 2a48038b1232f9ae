package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/crm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetLockTTL() != 30*time.Second {
		t.Fatalf("expected 30s lock TTL, got %v", cfg.GetLockTTL())
	}
	if cfg.GetLockBackoff() != 500*time.Millisecond {
		t.Fatalf("expected 500ms backoff, got %v", cfg.GetLockBackoff())
	}
	if cfg.GetLockMaxAttempts() != 2 {
		t.Fatalf("expected 2 attempts, got %d", cfg.GetLockMaxAttempts())
	}
	if len(cfg.GetAssignableRoles()) != 1 || cfg.GetAssignableRoles()[0] != "sales_agent" {
		t.Fatalf("unexpected assignable roles %v", cfg.GetAssignableRoles())
	}
	if cfg.IsBrokerEnabled() || cfg.IsSMTPEnabled() || cfg.IsMinIOEnabled() {
		t.Fatalf("expected optional integrations to be disabled by default")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is empty")
	}
}

func TestLoadRejectsEmptyAssignableRoles(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ROUTING_ASSIGNABLE_ROLES", " , ")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for empty role list")
	}
}

func TestLoadReportsEveryMalformedValue(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LEAD_LOCK_TTL", "soon")
	t.Setenv("SMTP_PORT", "smtp")

	_, err := Load()
	if err == nil {
		t.Fatal("expected parse errors")
	}
	for _, key := range []string{"LEAD_LOCK_TTL", "SMTP_PORT"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in %q", key, err)
		}
	}
}

func TestValidateHTTP(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = cfg.ValidateHTTP()
	if err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") || !strings.Contains(err.Error(), "CORS_ALLOW_CREDENTIALS") {
		t.Fatalf("expected both HTTP problems, got %v", err)
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, ,b ,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected split result %v", got)
	}
}
