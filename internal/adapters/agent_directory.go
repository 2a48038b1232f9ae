// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// wrapping services from providing domains.
package adapters

import (
	"context"
	"errors"
	"strings"

	agentsrepo "crm_backend/internal/agents/repository"
	"crm_backend/internal/leads/ports"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UserDirectory is the part of the agents repository the adapter reads.
type UserDirectory interface {
	ListUsers(ctx context.Context, tenantID uuid.UUID, filter agentsrepo.ListFilter) ([]agentsrepo.User, error)
	GetUser(ctx context.Context, tenantID, userID uuid.UUID) (agentsrepo.User, error)
}

// AgentDirectory adapts the user directory to the leads domain's
// AgentDirectory port. This is the Anti-Corruption Layer that keeps the leads
// domain unaware of how users are stored.
type AgentDirectory struct {
	users UserDirectory
}

// NewAgentDirectory creates a new adapter wrapping the user directory.
func NewAgentDirectory(users UserDirectory) *AgentDirectory {
	return &AgentDirectory{users: users}
}

// ListAgents returns the tenant's users matching query in creation order.
func (d *AgentDirectory) ListAgents(ctx context.Context, tenantID uuid.UUID, query ports.AgentQuery) ([]ports.Agent, error) {
	users, err := d.users.ListUsers(ctx, tenantID, agentsrepo.ListFilter{
		Roles:      query.Roles,
		ActiveOnly: query.ActiveOnly,
		Branch:     query.Branch,
	})
	if err != nil {
		return nil, err
	}

	agents := make([]ports.Agent, 0, len(users))
	for _, u := range users {
		agents = append(agents, toAgent(u))
	}
	return agents, nil
}

// GetAgent returns one user of the tenant.
func (d *AgentDirectory) GetAgent(ctx context.Context, tenantID, agentID uuid.UUID) (ports.Agent, error) {
	u, err := d.users.GetUser(ctx, tenantID, agentID)
	if errors.Is(err, agentsrepo.ErrNotFound) {
		return ports.Agent{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return ports.Agent{}, err
	}
	return toAgent(u), nil
}

func toAgent(u agentsrepo.User) ports.Agent {
	return ports.Agent{
		ID:         u.ID,
		Name:       buildDisplayName(u.FirstName, u.LastName, u.Email),
		Email:      u.Email,
		Role:       u.Role,
		Branch:     u.Branch,
		Department: u.Department,
		Active:     u.Active,
	}
}

func buildDisplayName(firstName, lastName *string, email string) string {
	first := ""
	last := ""
	if firstName != nil {
		first = strings.TrimSpace(*firstName)
	}
	if lastName != nil {
		last = strings.TrimSpace(*lastName)
	}
	full := strings.TrimSpace(strings.Join([]string{first, last}, " "))
	if full != "" {
		return full
	}
	return deriveNameFromEmail(email)
}

var titleCaser = cases.Title(language.Und)

// deriveNameFromEmail creates a display name from an email local part.
func deriveNameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	name = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(name)
	return titleCaser.String(strings.Join(strings.Fields(name), " "))
}

// Compile-time check that AgentDirectory implements ports.AgentDirectory
var _ ports.AgentDirectory = (*AgentDirectory)(nil)
