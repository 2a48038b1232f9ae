package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportJobStatus tracks an import from upload to completion.
type ImportJobStatus string

const (
	ImportPending   ImportJobStatus = "pending"
	ImportRunning   ImportJobStatus = "running"
	ImportCompleted ImportJobStatus = "completed"
	ImportFailed    ImportJobStatus = "failed"
)

// ImportRowError describes one row that could not be imported.
type ImportRowError struct {
	Row     int    `json:"row"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
}

// ImportResult is the outcome of one batch. A batch with row errors is still
// a successful batch.
type ImportResult struct {
	CreatedCount int              `json:"createdCount"`
	SkippedCount int              `json:"skippedCount"`
	Errors       []ImportRowError `json:"errors"`
}

// ImportJob is a tracked bulk import, run inline or by the worker.
type ImportJob struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	ActorID         uuid.UUID
	FileName        string
	FileKey         *string
	Format          string
	DefaultLeadType *string
	Status          ImportJobStatus
	Result          *ImportResult
	FailureReason   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}
