package leadstest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"crm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

var ErrAgentNotFound = errors.New("agent not found")

// Directory is a static agent directory. Agents are returned in slice order.
type Directory struct {
	mu     sync.Mutex
	agents map[uuid.UUID][]ports.Agent
	Calls  int
}

func NewDirectory() *Directory {
	return &Directory{agents: map[uuid.UUID][]ports.Agent{}}
}

// Add registers agents for a tenant and returns them.
func (d *Directory) Add(tenantID uuid.UUID, agents ...ports.Agent) []ports.Agent {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range agents {
		if agents[i].ID == uuid.Nil {
			agents[i].ID = uuid.New()
		}
	}
	d.agents[tenantID] = append(d.agents[tenantID], agents...)
	return agents
}

func (d *Directory) ListAgents(_ context.Context, tenantID uuid.UUID, query ports.AgentQuery) ([]ports.Agent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	out := make([]ports.Agent, 0)
	for _, a := range d.agents[tenantID] {
		if query.ActiveOnly && !a.Active {
			continue
		}
		if len(query.Roles) > 0 && !contains(query.Roles, a.Role) {
			continue
		}
		if query.Branch != nil && (a.Branch == nil || *a.Branch != *query.Branch) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (d *Directory) GetAgent(_ context.Context, tenantID, agentID uuid.UUID) (ports.Agent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.agents[tenantID] {
		if a.ID == agentID {
			return a, nil
		}
	}
	return ports.Agent{}, ErrAgentNotFound
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Files is an in-memory FileStore.
type Files struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewFiles() *Files {
	return &Files{files: map[string][]byte{}}
}

func (f *Files) Upload(_ context.Context, folder, fileName, _ string, reader io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%s/%s", folder, uuid.NewString(), fileName)
	f.files[key] = data
	return key, nil
}

func (f *Files) Download(_ context.Context, fileKey string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[fileKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", fileKey)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *Files) Delete(_ context.Context, fileKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, fileKey)
	return nil
}

// Len returns the number of stored objects.
func (f *Files) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// Enqueuer records enqueued imports.
type Enqueuer struct {
	mu   sync.Mutex
	Jobs []uuid.UUID
	Err  error
}

func (e *Enqueuer) EnqueueLeadImport(_ context.Context, _ uuid.UUID, jobID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	e.Jobs = append(e.Jobs, jobID)
	return nil
}
