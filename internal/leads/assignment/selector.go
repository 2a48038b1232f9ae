// Package assignment picks the agent that owns a new lead. Location routing is
// tried first; load-based round robin over region buckets is the fallback.
package assignment

import (
	"context"
	"errors"
	"fmt"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/leads/repository"
	"crm_backend/platform/logger"
	"crm_backend/platform/metrics"

	"github.com/google/uuid"
)

// Strategy names the rule that produced an assignment.
type Strategy string

const (
	StrategyLocation      Strategy = "location"
	StrategyLoad          Strategy = "load"
	StrategyFallbackAdmin Strategy = "fallback_admin"
	StrategyNone          Strategy = "none"
)

type LeadWriter interface {
	UpdateAssignment(ctx context.Context, params repository.AssignmentParams) (domain.Lead, error)
}

type RoutingStore interface {
	GetRoutingConfig(ctx context.Context, tenantID uuid.UUID) (domain.RoutingConfig, error)
	SaveRoutingConfig(ctx context.Context, cfg domain.RoutingConfig) error
}

type LoadCounter interface {
	CountAssignedLeads(ctx context.Context, tenantID uuid.UUID, agentIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// Options configures the selector.
type Options struct {
	Regions           Regions
	AssignableRoles   []string
	FallbackAdminRole string
	DefaultDepartment string
}

// Result is the lead after assignment. Agent is nil when the assignment degraded.
type Result struct {
	Lead     domain.Lead
	Agent    *ports.Agent
	Strategy Strategy
}

type Selector struct {
	leads   LeadWriter
	routing RoutingStore
	loads   LoadCounter
	agents  ports.AgentDirectory
	opts    Options
	log     *logger.Logger
}

func NewSelector(leads LeadWriter, routing RoutingStore, loads LoadCounter, agents ports.AgentDirectory, opts Options, log *logger.Logger) *Selector {
	return &Selector{leads: leads, routing: routing, loads: loads, agents: agents, opts: opts, log: log}
}

// Assign chooses an agent for lead and stamps the agent's branch and department
// on it. When nobody is eligible the lead stays unassigned and receives the
// default department. A nil cursor starts a fresh run.
func (s *Selector) Assign(ctx context.Context, lead domain.Lead, city *string, cursor *Cursor) (Result, error) {
	if cursor == nil {
		cursor = NewCursor()
	}

	agent, strategy, err := s.byLocation(ctx, lead.TenantID, city)
	if err != nil {
		return Result{}, err
	}
	if agent == nil {
		agent, strategy, err = s.byLoad(ctx, lead.TenantID, city, cursor)
		if err != nil {
			return Result{}, err
		}
	}

	if agent == nil {
		updated, err := s.LeaveUnassigned(ctx, lead, city)
		if err != nil {
			return Result{}, err
		}
		return Result{Lead: updated, Strategy: StrategyNone}, nil
	}

	updated, err := s.leads.UpdateAssignment(ctx, repository.AssignmentParams{
		TenantID:        lead.TenantID,
		LeadID:          lead.ID,
		AssignedAgentID: &agent.ID,
		Branch:          agent.Branch,
		Department:      agent.Department,
	})
	if err != nil {
		return Result{}, fmt.Errorf("record assignment: %w", err)
	}
	metrics.Assignments.WithLabelValues(string(strategy)).Inc()
	s.log.LeadEvent("lead_assigned", lead.TenantID.String(), lead.ID.String(),
		"agentId", agent.ID.String(), "strategy", string(strategy))

	return Result{Lead: updated, Agent: agent, Strategy: strategy}, nil
}

// LeaveUnassigned records the degraded outcome: no agent and the default
// department. Callers use it when Assign itself failed.
func (s *Selector) LeaveUnassigned(ctx context.Context, lead domain.Lead, city *string) (domain.Lead, error) {
	department := s.opts.DefaultDepartment
	updated, err := s.leads.UpdateAssignment(ctx, repository.AssignmentParams{
		TenantID:   lead.TenantID,
		LeadID:     lead.ID,
		Department: &department,
		KeepBranch: true,
	})
	if err != nil {
		return domain.Lead{}, fmt.Errorf("record degraded assignment: %w", err)
	}
	cityName := ""
	if city != nil {
		cityName = *city
	}
	s.log.DegradedAssignment(lead.TenantID.String(), lead.ID.String(), cityName, department)
	metrics.DegradedAssignments.Inc()
	return updated, nil
}

// Warm loads the tenant's assignable agents into cursor so the rest of the run
// does not query the directory again.
func (s *Selector) Warm(ctx context.Context, tenantID uuid.UUID, cursor *Cursor) error {
	_, err := s.pool(ctx, tenantID, cursor)
	return err
}

func (s *Selector) byLocation(ctx context.Context, tenantID uuid.UUID, city *string) (*ports.Agent, Strategy, error) {
	if city == nil || domain.CityKey(*city) == "" {
		return nil, "", nil
	}

	cfg, err := s.routing.GetRoutingConfig(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrRoutingConfigNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if !cfg.Serves(*city) {
		return nil, "", nil
	}

	active, err := s.agents.ListAgents(ctx, tenantID, ports.AgentQuery{ActiveOnly: true})
	if err != nil {
		return nil, "", err
	}
	byID := make(map[uuid.UUID]ports.Agent, len(active))
	for _, a := range active {
		byID[a.ID] = a
	}

	idx := cfg.NextUserIndex(func(id uuid.UUID) bool {
		_, ok := byID[id]
		return ok
	})
	if idx < 0 {
		s.log.Warn("location_routing_no_eligible_user", "tenantId", tenantID.String(), "city", domain.CityKey(*city))
		return nil, "", nil
	}

	cfg.AssignedUsers[idx].Count++
	if err := s.routing.SaveRoutingConfig(ctx, cfg); err != nil {
		return nil, "", fmt.Errorf("save routing config: %w", err)
	}

	agent := byID[cfg.AssignedUsers[idx].UserID]
	return &agent, StrategyLocation, nil
}

func (s *Selector) byLoad(ctx context.Context, tenantID uuid.UUID, city *string, cursor *Cursor) (*ports.Agent, Strategy, error) {
	pool, err := s.pool(ctx, tenantID, cursor)
	if err != nil {
		return nil, "", err
	}

	if !pool.empty() {
		order := append([]string{s.opts.Regions.ForCity(city), DefaultRegion}, s.opts.Regions.Names()...)
		for _, bucket := range order {
			agents := pool.buckets[bucket]
			if len(agents) == 0 {
				continue
			}
			agent, err := s.pickLeastLoaded(ctx, tenantID, bucket, agents, cursor)
			if err != nil {
				return nil, "", err
			}
			return agent, StrategyLoad, nil
		}
	}

	if s.opts.FallbackAdminRole == "" {
		return nil, "", nil
	}
	admins, err := s.agents.ListAgents(ctx, tenantID, ports.AgentQuery{
		Roles:      []string{s.opts.FallbackAdminRole},
		ActiveOnly: true,
	})
	if err != nil {
		return nil, "", err
	}
	if len(admins) == 0 {
		return nil, "", nil
	}
	return &admins[0], StrategyFallbackAdmin, nil
}

// pickLeastLoaded returns the agent with the fewest assigned leads, the first
// in bucket order on ties. Counts are read once per bucket and run, then kept
// on the cursor as picks are made.
func (s *Selector) pickLeastLoaded(ctx context.Context, tenantID uuid.UUID, bucket string, agents []ports.Agent, cursor *Cursor) (*ports.Agent, error) {
	if !cursor.counted[bucket] {
		ids := make([]uuid.UUID, len(agents))
		for i, a := range agents {
			ids[i] = a.ID
		}
		counts, err := s.loads.CountAssignedLeads(ctx, tenantID, ids)
		if err != nil {
			return nil, fmt.Errorf("count assigned leads: %w", err)
		}
		for _, id := range ids {
			cursor.loads[id] = counts[id]
		}
		cursor.counted[bucket] = true
	}

	best := 0
	for i := 1; i < len(agents); i++ {
		if cursor.loads[agents[i].ID] < cursor.loads[agents[best].ID] {
			best = i
		}
	}
	cursor.loads[agents[best].ID]++
	cursor.advance(bucket, best+1)

	agent := agents[best]
	return &agent, nil
}

func (s *Selector) pool(ctx context.Context, tenantID uuid.UUID, cursor *Cursor) (*agentPool, error) {
	if cursor.pool != nil {
		return cursor.pool, nil
	}
	agents, err := s.agents.ListAgents(ctx, tenantID, ports.AgentQuery{
		Roles:      s.opts.AssignableRoles,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list assignable agents: %w", err)
	}

	pool := &agentPool{buckets: map[string][]ports.Agent{}}
	for _, a := range agents {
		bucket := s.opts.Regions.ForBranch(a.Branch)
		pool.buckets[bucket] = append(pool.buckets[bucket], a)
	}
	cursor.pool = pool
	return pool, nil
}
