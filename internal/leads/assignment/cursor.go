package assignment

import (
	"crm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// Cursor carries load-based rotation state through one processing run (a single
// contact or one import batch): the tenant's agent pool, the per-agent lead
// counts seen so far and the position after each bucket's last pick. It is not
// safe for concurrent use.
type Cursor struct {
	positions map[string]int
	loads     map[uuid.UUID]int
	counted   map[string]bool
	pool      *agentPool
}

// NewCursor returns an empty cursor starting every bucket at its first agent.
func NewCursor() *Cursor {
	return &Cursor{
		positions: map[string]int{},
		loads:     map[uuid.UUID]int{},
		counted:   map[string]bool{},
	}
}

// Position returns the index following the agent last picked from bucket.
func (c *Cursor) Position(bucket string) int {
	return c.positions[bucket]
}

// Load returns the number of leads the run believes agentID holds.
func (c *Cursor) Load(agentID uuid.UUID) int {
	return c.loads[agentID]
}

func (c *Cursor) advance(bucket string, next int) {
	c.positions[bucket] = next
}

// agentPool is the tenant's assignable agents split into region buckets,
// cached on the cursor for the rest of the run.
type agentPool struct {
	buckets map[string][]ports.Agent
}

func (p *agentPool) empty() bool {
	for _, agents := range p.buckets {
		if len(agents) > 0 {
			return false
		}
	}
	return true
}
