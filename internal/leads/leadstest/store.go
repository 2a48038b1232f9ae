// Package leadstest provides in-memory fakes of the leads persistence and
// collaborators for service tests.
package leadstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Store mirrors the Postgres repository, including its tenant uniqueness keys.
type Store struct {
	mu        sync.Mutex
	leads     []domain.Lead
	lifecycle map[uuid.UUID][]string
	routing   map[uuid.UUID]domain.RoutingConfig
	jobs      map[uuid.UUID]domain.ImportJob

	// OnCreate runs after a lead is inserted, outside the store lock.
	OnCreate func(domain.Lead)
	// SaveRoutingErr, when set, fails SaveRoutingConfig.
	SaveRoutingErr error
	// Creates counts CreateWithLifecycle calls that inserted a row.
	Creates int
	// LoadQueries counts CountAssignedLeads calls.
	LoadQueries int
}

func NewStore() *Store {
	return &Store{
		lifecycle: map[uuid.UUID][]string{},
		routing:   map[uuid.UUID]domain.RoutingConfig{},
		jobs:      map[uuid.UUID]domain.ImportJob{},
	}
}

// Seed inserts a lead as if it had been created earlier.
func (s *Store) Seed(lead domain.Lead) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().Add(-time.Hour)
	}
	s.leads = append(s.leads, lead)
	return lead
}

// Leads returns a snapshot of the tenant's leads in insertion order.
func (s *Store) Leads(tenantID uuid.UUID) []domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, l := range s.leads {
		if l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	return out
}

// Lifecycle returns the lifecycle kinds recorded for a lead.
func (s *Store) Lifecycle(leadID uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lifecycle[leadID]...)
}

func (s *Store) GetByID(_ context.Context, tenantID, id uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leads {
		if l.TenantID == tenantID && l.ID == id {
			return l, nil
		}
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (s *Store) FindByExternalContactID(_ context.Context, tenantID uuid.UUID, externalID string) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leads {
		if l.TenantID == tenantID && l.ExternalContactID != nil && *l.ExternalContactID == externalID {
			return l, nil
		}
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (s *Store) FindLatestByPhoneKey(_ context.Context, tenantID uuid.UUID, key string) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestByKeyLocked(tenantID, key)
}

func (s *Store) latestByKeyLocked(tenantID uuid.UUID, key string) (domain.Lead, error) {
	var found *domain.Lead
	for i := range s.leads {
		l := s.leads[i]
		if l.TenantID != tenantID || !matchesKey(l, key) {
			continue
		}
		if found == nil || l.CreatedAt.After(found.CreatedAt) {
			found = &s.leads[i]
		}
	}
	if found == nil {
		return domain.Lead{}, repository.ErrNotFound
	}
	return *found, nil
}

func matchesKey(l domain.Lead, key string) bool {
	if key == "" {
		return false
	}
	return l.PhoneKey == key || (l.SecondaryPhoneKey != nil && *l.SecondaryPhoneKey == key)
}

// SetExternalContactID reports false without writing when another lead of the
// tenant already owns externalID.
func (s *Store) SetExternalContactID(_ context.Context, tenantID, leadID uuid.UUID, externalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		l := s.leads[i]
		if l.TenantID == tenantID && l.ID != leadID && l.ExternalContactID != nil && *l.ExternalContactID == externalID {
			return false, nil
		}
	}
	for i := range s.leads {
		if s.leads[i].TenantID == tenantID && s.leads[i].ID == leadID {
			id := externalID
			s.leads[i].ExternalContactID = &id
			return true, nil
		}
	}
	return false, repository.ErrNotFound
}

func (s *Store) CreateWithLifecycle(_ context.Context, params repository.CreateLeadParams) (domain.Lead, bool, error) {
	s.mu.Lock()
	if existing, ok := s.conflictLocked(params); ok {
		s.mu.Unlock()
		return existing, false, nil
	}

	lead := domain.Lead{
		ID:                uuid.New(),
		TenantID:          params.TenantID,
		ExternalContactID: params.ExternalContactID,
		Name:              params.Name,
		Phone:             params.Phone,
		PhoneKey:          params.PhoneKey,
		SecondaryPhone:    params.SecondaryPhone,
		SecondaryPhoneKey: params.SecondaryPhoneKey,
		Email:             params.Email,
		City:              params.City,
		Department:        params.Department,
		Status:            params.Status,
		ActivityStatus:    params.ActivityStatus,
		Source:            params.Source,
		LeadType:          params.LeadType,
		NextFollowUpAt:    params.NextFollowUpAt,
		CreatedAt:         params.Now,
		UpdatedAt:         params.Now,
	}
	s.leads = append(s.leads, lead)
	s.lifecycle[lead.ID] = append(s.lifecycle[lead.ID], domain.LifecycleOpen)
	s.Creates++
	hook := s.OnCreate
	s.mu.Unlock()

	if hook != nil {
		hook(lead)
	}
	return lead, true, nil
}

// conflictLocked applies the unique indexes of the leads table: phone key,
// secondary phone key and external contact id, each within the tenant.
func (s *Store) conflictLocked(params repository.CreateLeadParams) (domain.Lead, bool) {
	for _, l := range s.leads {
		if l.TenantID != params.TenantID {
			continue
		}
		if params.ExternalContactID != nil && l.ExternalContactID != nil && *l.ExternalContactID == *params.ExternalContactID {
			return l, true
		}
		if l.PhoneKey == params.PhoneKey {
			return l, true
		}
		if params.SecondaryPhoneKey != nil && l.SecondaryPhoneKey != nil && *l.SecondaryPhoneKey == *params.SecondaryPhoneKey {
			return l, true
		}
	}
	return domain.Lead{}, false
}

func (s *Store) UpdateAssignment(_ context.Context, params repository.AssignmentParams) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		l := &s.leads[i]
		if l.TenantID != params.TenantID || l.ID != params.LeadID {
			continue
		}
		l.AssignedAgentID = params.AssignedAgentID
		if !params.KeepBranch {
			l.Branch = params.Branch
		}
		l.Department = params.Department
		l.UpdatedAt = time.Now()
		return *l, nil
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (s *Store) ListPhoneKeys(_ context.Context, tenantID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0)
	for _, l := range s.leads {
		if l.TenantID != tenantID {
			continue
		}
		if l.PhoneKey != "" {
			keys = append(keys, l.PhoneKey)
		}
		if l.SecondaryPhoneKey != nil {
			keys = append(keys, *l.SecondaryPhoneKey)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) CountAssignedLeads(_ context.Context, tenantID uuid.UUID, agentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoadQueries++
	counts := make(map[uuid.UUID]int, len(agentIDs))
	for _, id := range agentIDs {
		counts[id] = 0
	}
	for _, l := range s.leads {
		if l.TenantID != tenantID || l.AssignedAgentID == nil {
			continue
		}
		if _, ok := counts[*l.AssignedAgentID]; ok {
			counts[*l.AssignedAgentID]++
		}
	}
	return counts, nil
}
