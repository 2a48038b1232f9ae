// Package ports defines the interfaces the leads domain requires from other
// bounded contexts and infrastructure. Implementations live in internal/adapters
// and are wired by the composition root, so leads never imports them directly.
package ports

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Agent is the view of a user the leads domain needs for routing.
type Agent struct {
	ID         uuid.UUID
	Name       string
	Email      string
	Role       string
	Branch     *string
	Department *string
	Active     bool
}

// AgentQuery filters the agent directory. Empty Roles means any role.
type AgentQuery struct {
	Roles      []string
	ActiveOnly bool
	Branch     *string
}

// AgentDirectory is the read-only directory of a tenant's users. Results are
// returned in a stable order.
type AgentDirectory interface {
	ListAgents(ctx context.Context, tenantID uuid.UUID, query AgentQuery) ([]Agent, error)
	GetAgent(ctx context.Context, tenantID, agentID uuid.UUID) (Agent, error)
}

// FileStore keeps uploaded import files until the worker processes them.
type FileStore interface {
	Upload(ctx context.Context, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	Download(ctx context.Context, fileKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, fileKey string) error
}

// ImportEnqueuer schedules background processing of a stored import.
type ImportEnqueuer interface {
	EnqueueLeadImport(ctx context.Context, tenantID, jobID uuid.UUID) error
}
