package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("tenant-1", "leads.csv")
	if !strings.HasPrefix(key, "tenant-1/leads_") || !strings.HasSuffix(key, ".csv") {
		t.Fatalf("unexpected key %q", key)
	}
	if other := ObjectKey("tenant-1", "leads.csv"); other == key {
		t.Fatal("expected keys to differ between uploads")
	}
	if key := ObjectKey("t", "../../etc/passwd"); !strings.HasPrefix(key, "t/passwd_") {
		t.Fatalf("expected path components to be dropped, got %q", key)
	}
	if key := ObjectKey("t", ".csv"); !strings.HasPrefix(key, "t/upload_") {
		t.Fatalf("expected a fallback stem, got %q", key)
	}
}

func TestImportPolicy(t *testing.T) {
	p := ImportPolicy(10)

	mediaType, err := p.Check("text/csv; charset=utf-8", 5)
	if err != nil || mediaType != "text/csv" {
		t.Fatalf("expected csv to be allowed, got %q %v", mediaType, err)
	}
	if _, err := p.Check("image/png", 5); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected png to be rejected, got %v", err)
	}
	if _, err := p.Check("text/csv", 11); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected an oversize file to be rejected, got %v", err)
	}
	if _, err := p.Check("text/csv", 0); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected an empty file to be rejected, got %v", err)
	}
}
