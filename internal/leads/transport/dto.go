package transport

import (
	"time"

	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// IntakeRequest is a single contact record submitted by an authenticated caller.
type IntakeRequest struct {
	ExternalContactID string  `json:"externalContactId" validate:"max=255"`
	Name              string  `json:"name" validate:"max=255"`
	Phone             string  `json:"phone" validate:"required,phonelike,max=50"`
	SecondaryPhone    *string `json:"secondaryPhone,omitempty" validate:"omitempty,max=50"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	City              *string `json:"city,omitempty" validate:"omitempty,max=120"`
	LeadType          *string `json:"leadType,omitempty" validate:"omitempty,max=60"`
	Source            string  `json:"source" validate:"omitempty,oneof=web_form chat import manual"`
}

// Contact converts the request into a domain contact record.
func (r IntakeRequest) Contact() domain.Contact {
	source := domain.Source(r.Source)
	if source == "" {
		source = domain.SourceManual
	}
	return domain.Contact{
		ExternalContactID: r.ExternalContactID,
		Name:              r.Name,
		Phone:             r.Phone,
		SecondaryPhone:    r.SecondaryPhone,
		Email:             r.Email,
		City:              r.City,
		LeadType:          r.LeadType,
		Source:            source,
	}
}

type LeadResponse struct {
	ID                uuid.UUID  `json:"id"`
	ExternalContactID *string    `json:"externalContactId,omitempty"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	SecondaryPhone    *string    `json:"secondaryPhone,omitempty"`
	Email             *string    `json:"email,omitempty"`
	City              *string    `json:"city,omitempty"`
	AssignedAgentID   *uuid.UUID `json:"assignedAgentId,omitempty"`
	Branch            *string    `json:"branch,omitempty"`
	Department        *string    `json:"department,omitempty"`
	Status            string     `json:"status"`
	ActivityStatus    string     `json:"activityStatus"`
	Source            string     `json:"source"`
	LeadType          *string    `json:"leadType,omitempty"`
	NextFollowUpAt    time.Time  `json:"nextFollowUpAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func ToLeadResponse(lead domain.Lead) LeadResponse {
	return LeadResponse{
		ID:                lead.ID,
		ExternalContactID: lead.ExternalContactID,
		Name:              lead.Name,
		Phone:             lead.Phone,
		SecondaryPhone:    lead.SecondaryPhone,
		Email:             lead.Email,
		City:              lead.City,
		AssignedAgentID:   lead.AssignedAgentID,
		Branch:            lead.Branch,
		Department:        lead.Department,
		Status:            lead.Status,
		ActivityStatus:    lead.ActivityStatus,
		Source:            string(lead.Source),
		LeadType:          lead.LeadType,
		NextFollowUpAt:    lead.NextFollowUpAt,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
	}
}

// IntakeResponse reports the lead a contact resolved to. Created is false when
// an existing lead was returned.
type IntakeResponse struct {
	Lead          LeadResponse `json:"lead"`
	Created       bool         `json:"created"`
	AssignedAgent *AgentRef    `json:"assignedAgent,omitempty"`
	Strategy      string       `json:"strategy,omitempty"`
}

type AgentRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// LookupQuery finds a lead without creating one. At least one field is required.
type LookupQuery struct {
	Phone             string `form:"phone" validate:"required_without=ExternalContactID,max=50"`
	ExternalContactID string `form:"externalContactId" validate:"required_without=Phone,max=255"`
}
