package intake

import (
	"context"
	"fmt"
	"time"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/assignment"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/matching"
	"crm_backend/internal/leads/ports"
	"crm_backend/platform/apperr"
	"crm_backend/platform/lock"
	"crm_backend/platform/logger"
	"crm_backend/platform/metrics"

	"github.com/google/uuid"
)

// Sleeper waits between lock attempts. lock.Sleep is the production sleeper.
type Sleeper func(ctx context.Context, d time.Duration) error

// Result is the outcome of one intake.
type Result struct {
	Lead     domain.Lead
	Created  bool
	Agent    *ports.Agent
	Strategy assignment.Strategy
}

// Service runs the single-contact flow: match, lock, re-check, create, assign.
type Service struct {
	matcher  *matching.Matcher
	factory  *Factory
	selector *assignment.Selector
	locker   lock.Locker
	policy   lock.Policy
	sleep    Sleeper
	bus      events.Bus
	log      *logger.Logger
}

func NewService(matcher *matching.Matcher, factory *Factory, selector *assignment.Selector, locker lock.Locker, policy lock.Policy, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		matcher:  matcher,
		factory:  factory,
		selector: selector,
		locker:   locker,
		policy:   policy.Normalize(),
		sleep:    lock.Sleep,
		bus:      bus,
		log:      log,
	}
}

// WithSleeper replaces the backoff sleeper.
func (s *Service) WithSleeper(sleep Sleeper) *Service {
	s.sleep = sleep
	return s
}

// CreationLockKey is the lock key guarding lead creation for one phone in one tenant.
func CreationLockKey(tenantID uuid.UUID, phoneKey string) string {
	return fmt.Sprintf("lead-create:%s:%s", tenantID, phoneKey)
}

// Ingest resolves contact to exactly one lead. An existing lead is returned
// untouched; a new lead is created under the creation lock and assigned.
// Lock contention that outlasts the policy yields a retryable Unavailable error.
func (s *Service) Ingest(ctx context.Context, tenantID uuid.UUID, contact domain.Contact) (Result, error) {
	if tenantID == uuid.Nil {
		return Result{}, apperr.Validation("tenant is required")
	}
	key := contact.PhoneKey()
	if key == "" {
		return Result{}, apperr.Validation("phone is required")
	}

	existing, err := s.matcher.Find(ctx, tenantID, contact.ExternalContactID, contact.Phone)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return Result{Lead: *existing}, nil
	}

	lockKey := CreationLockKey(tenantID, key)
	owner := lock.NewOwnerToken()

	acquired := false
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		ok, err := s.locker.Acquire(ctx, lockKey, owner, s.policy.TTL)
		if err != nil {
			return Result{}, fmt.Errorf("acquire creation lock: %w", err)
		}
		if ok {
			acquired = true
			if attempt > 1 {
				metrics.LockContention.WithLabelValues("acquired_on_retry").Inc()
			}
			break
		}

		existing, err := s.matcher.Find(ctx, tenantID, contact.ExternalContactID, contact.Phone)
		if err != nil {
			return Result{}, err
		}
		if existing != nil {
			metrics.LockContention.WithLabelValues("matched").Inc()
			return Result{Lead: *existing}, nil
		}

		if attempt < s.policy.MaxAttempts {
			if err := s.sleep(ctx, s.policy.Backoff); err != nil {
				return Result{}, err
			}
		}
	}
	if !acquired {
		metrics.LockContention.WithLabelValues("gave_up").Inc()
		s.log.Warn("lead_lock_contention", "tenantId", tenantID.String(), "lockKey", lockKey)
		return Result{}, apperr.Unavailable("lead creation in progress for this phone, retry shortly").
			WithRetryAfter(s.policy.Backoff)
	}

	result, err := s.createLocked(ctx, tenantID, contact)

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, relErr := s.locker.Release(releaseCtx, lockKey, owner); relErr != nil {
		s.log.Warn("lead_lock_release_failed", "lockKey", lockKey, "error", relErr.Error())
	}

	if err != nil {
		return Result{}, err
	}
	if result.Created {
		s.publish(ctx, result)
	}
	return result, nil
}

func (s *Service) createLocked(ctx context.Context, tenantID uuid.UUID, contact domain.Contact) (Result, error) {
	lead, created, err := s.factory.Create(ctx, tenantID, contact, nil)
	if err != nil {
		return Result{}, err
	}
	if !created {
		return Result{Lead: lead}, nil
	}

	metrics.LeadsCreated.WithLabelValues(string(lead.Source)).Inc()
	s.log.LeadEvent("lead_created", tenantID.String(), lead.ID.String(), "source", string(lead.Source))

	assigned, err := s.selector.Assign(ctx, lead, contact.City, nil)
	if err != nil {
		// The lead exists; a failed assignment must not turn into a retry that
		// would only match it again.
		s.log.Error("lead_assignment_failed", "tenantId", tenantID.String(), "leadId", lead.ID.String(), "error", err.Error())
		if updated, err := s.selector.LeaveUnassigned(ctx, lead, contact.City); err == nil {
			lead = updated
		}
		return Result{Lead: lead, Created: true, Strategy: assignment.StrategyNone}, nil
	}

	return Result{Lead: assigned.Lead, Created: true, Agent: assigned.Agent, Strategy: assigned.Strategy}, nil
}

func (s *Service) publish(ctx context.Context, result Result) {
	lead := result.Lead
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  lead.TenantID,
		Source:    string(lead.Source),
		Name:      lead.Name,
		Phone:     lead.Phone,
		City:      lead.City,
	})
	if result.Agent != nil {
		s.bus.Publish(ctx, AssignedEvent(lead, *result.Agent, result.Strategy))
	}
}

// AssignedEvent builds the LeadAssigned event for an assignment.
func AssignedEvent(lead domain.Lead, agent ports.Agent, strategy assignment.Strategy) events.LeadAssigned {
	return events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		TenantID:   lead.TenantID,
		AgentID:    agent.ID,
		AgentName:  agent.Name,
		AgentEmail: agent.Email,
		LeadName:   lead.Name,
		LeadPhone:  lead.Phone,
		Strategy:   string(strategy),
		Branch:     lead.Branch,
		Department: lead.Department,
	}
}
