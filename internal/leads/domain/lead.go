// Package domain holds the lead intake types shared by the matching, intake,
// assignment, routing and import slices. It has no infrastructure imports.
package domain

import (
	"strings"
	"time"

	"crm_backend/platform/phone"

	"github.com/google/uuid"
)

// Source identifies the channel a lead arrived through.
type Source string

const (
	SourceWebForm Source = "web_form"
	SourceChat    Source = "chat"
	SourceImport  Source = "import"
	SourceManual  Source = "manual"
)

// Valid reports whether s is a known channel.
func (s Source) Valid() bool {
	switch s {
	case SourceWebForm, SourceChat, SourceImport, SourceManual:
		return true
	}
	return false
}

const (
	StatusNew      = "new"
	ActivityActive = "active"
)

// LifecycleOpen is recorded once, in the same transaction that inserts the lead.
const LifecycleOpen = "open"

// Lead is one real-world contact within a tenant.
type Lead struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	ExternalContactID *string
	Name              string
	Phone             string
	PhoneKey          string
	SecondaryPhone    *string
	SecondaryPhoneKey *string
	Email             *string
	City              *string
	AssignedAgentID   *uuid.UUID
	Branch            *string
	Department        *string
	Status            string
	ActivityStatus    string
	Source            Source
	LeadType          *string
	NextFollowUpAt    time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Contact is the channel-independent inbound record handed to the engine.
// Optional fields are nil when the channel did not supply them.
type Contact struct {
	ExternalContactID string
	Name              string
	Phone             string
	SecondaryPhone    *string
	Email             *string
	City              *string
	LeadType          *string
	Source            Source
}

// PhoneKey is the match key of the primary phone.
func (c Contact) PhoneKey() string {
	return phone.MatchKey(c.Phone)
}

// DisplayName falls back to the phone when the channel sent no name.
func (c Contact) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return strings.TrimSpace(c.Phone)
}

// NextFollowUp returns the first follow-up time for a lead created now.
// Imported leads are followed up a day later; live channels immediately.
func NextFollowUp(source Source, now time.Time) time.Time {
	if source == SourceImport {
		return now.Add(24 * time.Hour)
	}
	return now
}

// OptionalString trims s and returns nil when nothing is left.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
