package webhook

import (
	"testing"

	"crm_backend/internal/leads/domain"
)

func TestExtractFieldsRecognisesCommonLabels(t *testing.T) {
	got := ExtractFields(map[string]string{
		"Your Name":       "Ali Raza Khan",
		"E-mail":          "ali@example.com",
		"Mobile Number":   "0321-1234567",
		"alt_phone":       "042 35761234",
		"City":            " Lahore ",
		"property-type":   "plot",
		"Message":         "call after 5",
		"utm_source":      "facebook",
		"contact_id":      "fb-991",
		"unrelated_empty": "",
	})

	if got.FirstName != "Ali" || got.LastName != "Raza Khan" {
		t.Fatalf("unexpected name split %q / %q", got.FirstName, got.LastName)
	}
	if got.Phone != "0321-1234567" || got.SecondaryPhone != "042 35761234" {
		t.Fatalf("unexpected phones %q / %q", got.Phone, got.SecondaryPhone)
	}
	if got.Email != "ali@example.com" || got.City != "Lahore" || got.LeadType != "plot" || got.ExternalID != "fb-991" {
		t.Fatalf("unexpected fields %+v", got)
	}
	if got.IsIncomplete() {
		t.Fatalf("expected a complete submission")
	}

	contact := got.Contact(domain.SourceWebForm)
	if contact.Name != "Ali Raza Khan" || contact.City == nil || *contact.City != "Lahore" || contact.Source != domain.SourceWebForm {
		t.Fatalf("unexpected contact %+v", contact)
	}
}

func TestExtractFieldsRejectsInvalidEmail(t *testing.T) {
	got := ExtractFields(map[string]string{"email": "not an email", "phone": "03001234567"})
	if got.Email != "" {
		t.Fatalf("expected invalid email to be dropped, got %q", got.Email)
	}
	if !got.IsIncomplete() {
		t.Fatalf("expected a submission without a name to be incomplete")
	}
	if c := got.Contact(domain.SourceWebForm); c.Email != nil || c.SecondaryPhone != nil {
		t.Fatalf("expected empty optionals to be nil, got %+v", c)
	}
}

func TestOriginAllowed(t *testing.T) {
	cases := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{"https://www.example.com", []string{"www.example.com"}, true},
		{"https://shop.example.com/form", []string{"*.example.com"}, true},
		{"https://example.com", []string{"*.example.com"}, true},
		{"https://evil.com", []string{"*.example.com"}, false},
		{"https://badexample.com", []string{"*.example.com"}, false},
		{"", []string{"*"}, false},
		{"https://any.org", []string{"*"}, true},
	}
	for _, tc := range cases {
		if got := originAllowed(tc.origin, tc.allowed); got != tc.want {
			t.Fatalf("originAllowed(%q, %v) = %v, want %v", tc.origin, tc.allowed, got, tc.want)
		}
	}
}

func TestExtractFieldsIsDeterministic(t *testing.T) {
	form := map[string]string{
		"phone":      "0300 1111111",
		"mobile":     "0300 2222222",
		"first_name": "Sara",
		"name":       "Someone Else",
		"email":      "bad",
		"mail":       "sara@example.com",
	}
	for i := 0; i < 20; i++ {
		got := ExtractFields(form)
		if got.Phone != "0300 2222222" || got.FirstName != "Sara" || got.LastName != "" || got.Email != "sara@example.com" {
			t.Fatalf("run %d: unexpected fields %+v", i, got)
		}
	}
}
