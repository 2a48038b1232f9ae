package imports

import (
	"strings"
	"testing"

	"crm_backend/platform/apperr"
)

func TestNormalizeColumn(t *testing.T) {
	cases := map[string]string{
		"Name":              "name",
		" PHONE ":           "phone",
		"WhatsApp  Number":  "whatsapp_number",
		"\ufeffname":        "name",
		"Lead Type":         "lead_type",
		"":                  "",
	}
	for in, want := range cases {
		if got := NormalizeColumn(in); got != want {
			t.Fatalf("NormalizeColumn(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseCSVLineNumbersSkipBlankRows(t *testing.T) {
	batch, err := ParseCSV(strings.NewReader("Name,Phone\n\nAli,0300 1\n , \nSara,0300 2,extra\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(batch.Rows))
	}
	if batch.Rows[0].Line != 3 || batch.Rows[1].Line != 5 {
		t.Fatalf("unexpected line numbers %d, %d", batch.Rows[0].Line, batch.Rows[1].Line)
	}
	if got := batch.Rows[1].Get("phone"); got != "0300 2" {
		t.Fatalf("unexpected phone %q", got)
	}
	if missing := batch.MissingColumns(); len(missing) != 0 {
		t.Fatalf("expected no missing columns, got %v", missing)
	}
}

func TestParseCSVEmptyFile(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseJSON(t *testing.T) {
	batch, err := ParseJSON(strings.NewReader(`[{"Name":"Ali","Phone":3001234567,"city":null},{"name":"Sara","phone":"0300 2"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Rows) != 2 || batch.Rows[0].Get("phone") != "3001234567" {
		t.Fatalf("unexpected rows %+v", batch.Rows)
	}
	if batch.Rows[0].Get("city") != "" {
		t.Fatalf("expected null to be empty")
	}
	if missing := batch.MissingColumns(); len(missing) != 0 {
		t.Fatalf("expected no missing columns, got %v", missing)
	}

	if _, err := ParseJSON(strings.NewReader(`[{"name":{"first":"Ali"}}]`)); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected nested values to be rejected, got %v", err)
	}
	if _, err := ParseJSON(strings.NewReader(`{"name":"Ali"}`)); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a non-array document to be rejected, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		file, contentType, want string
	}{
		{"leads.CSV", "", FormatCSV},
		{"leads.json", "text/plain", FormatJSON},
		{"upload", "text/csv; charset=utf-8", FormatCSV},
		{"upload", "application/json", FormatJSON},
	}
	for _, tc := range cases {
		got, err := DetectFormat(tc.file, tc.contentType)
		if err != nil || got != tc.want {
			t.Fatalf("DetectFormat(%q, %q) = %q, %v", tc.file, tc.contentType, got, err)
		}
	}
	if _, err := DetectFormat("leads.xlsx", "application/octet-stream"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected unsupported type to be rejected, got %v", err)
	}
}
