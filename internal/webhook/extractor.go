package webhook

import (
	"maps"
	"net/mail"
	"slices"
	"strings"

	"crm_backend/internal/leads/domain"
)

// ExtractedFields holds the contact fields recognised in arbitrary form data.
type ExtractedFields struct {
	ExternalID     string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	SecondaryPhone string
	City           string
	LeadType       string
	Message        string
}

// HasPhone reports whether the form carried a phone number, the only field
// intake cannot do without.
func (e ExtractedFields) HasPhone() bool {
	return e.Phone != ""
}

// IsIncomplete reports a submission without a name or without any way to
// reach the contact.
func (e ExtractedFields) IsIncomplete() bool {
	return e.FullName() == "" || (e.Phone == "" && e.Email == "")
}

// FullName joins first and last name.
func (e ExtractedFields) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Contact converts the extracted fields into an intake contact record.
func (e ExtractedFields) Contact(source domain.Source) domain.Contact {
	return domain.Contact{
		ExternalContactID: e.ExternalID,
		Name:              e.FullName(),
		Phone:             e.Phone,
		SecondaryPhone:    optional(e.SecondaryPhone),
		Email:             optional(e.Email),
		City:              optional(e.City),
		LeadType:          optional(e.LeadType),
		Source:            source,
	}
}

// Map returns the recognised fields keyed by name, omitting empty ones.
func (e ExtractedFields) Map() map[string]string {
	m := map[string]string{
		"externalId":     e.ExternalID,
		"firstName":      e.FirstName,
		"lastName":       e.LastName,
		"email":          e.Email,
		"phone":          e.Phone,
		"secondaryPhone": e.SecondaryPhone,
		"city":           e.City,
		"leadType":       e.LeadType,
		"message":        e.Message,
	}
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}

type formField int

const (
	fieldExternalID formField = iota + 1
	fieldFirstName
	fieldLastName
	fieldFullName
	fieldEmail
	fieldPhone
	fieldSecondaryPhone
	fieldCity
	fieldLeadType
	fieldMessage
)

var fieldLabels = map[formField][]string{
	fieldExternalID:     {"external_id", "contact_id", "external_contact_id", "lead_id"},
	fieldFirstName:      {"first_name", "given_name", "fname"},
	fieldLastName:       {"last_name", "family_name", "surname", "lname"},
	fieldFullName:       {"name", "full_name", "your_name", "contact_name", "naam"},
	fieldEmail:          {"email", "email_address", "mail"},
	fieldPhone:          {"phone", "tel", "telephone", "phone_number", "mobile", "mobile_number", "cell", "whatsapp", "contact_number"},
	fieldSecondaryPhone: {"secondary_phone", "alternate_phone", "alt_phone", "phone2", "other_phone", "landline"},
	fieldCity:           {"city", "town", "location", "shehar"},
	fieldLeadType:       {"lead_type", "interest", "project", "property_type", "category"},
	fieldMessage:        {"message", "comment", "comments", "notes", "description", "question", "query"},
}

// labelFolder makes "E-mail", "e_mail" and "E Mail" the same label.
var labelFolder = strings.NewReplacer("-", "", "_", "", " ", "", ".", "")

var labelIndex = func() map[string]formField {
	idx := map[string]formField{}
	for field, labels := range fieldLabels {
		for _, l := range labels {
			idx[labelFolder.Replace(l)] = field
		}
	}
	return idx
}()

// ExtractFields recognises contact fields in a flat form by label. Keys are
// visited in sorted order and the first non-empty value for a field wins, so
// the result does not depend on map iteration.
func ExtractFields(data map[string]string) ExtractedFields {
	var out ExtractedFields
	seen := map[formField]bool{}

	for _, key := range slices.Sorted(maps.Keys(data)) {
		value := strings.TrimSpace(data[key])
		field, known := labelIndex[labelFolder.Replace(strings.ToLower(strings.TrimSpace(key)))]
		if value == "" || !known || seen[field] {
			continue
		}
		if out.set(field, value) {
			seen[field] = true
		}
	}

	if out.LastName == "" && strings.Contains(out.FirstName, " ") {
		out.FirstName, out.LastName = splitName(out.FirstName)
	}
	return out
}

// set stores value and reports whether it was accepted.
func (e *ExtractedFields) set(field formField, value string) bool {
	switch field {
	case fieldExternalID:
		e.ExternalID = value
	case fieldFirstName:
		e.FirstName = value
	case fieldLastName:
		e.LastName = value
	case fieldFullName:
		if e.FirstName != "" || e.LastName != "" {
			return false
		}
		e.FirstName, e.LastName = splitName(value)
	case fieldEmail:
		addr, err := mail.ParseAddress(value)
		if err != nil {
			return false
		}
		e.Email = addr.Address
	case fieldPhone:
		e.Phone = value
	case fieldSecondaryPhone:
		e.SecondaryPhone = value
	case fieldCity:
		e.City = value
	case fieldLeadType:
		e.LeadType = value
	case fieldMessage:
		e.Message = value
	}
	return true
}

func splitName(full string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(full), " ")
	return first, strings.TrimSpace(last)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
