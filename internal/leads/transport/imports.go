package transport

import (
	"time"

	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ImportRowsRequest is the JSON variant of an import upload.
type ImportRowsRequest struct {
	FileName        string           `json:"fileName" validate:"max=255"`
	DefaultLeadType *string          `json:"defaultLeadType,omitempty" validate:"omitempty,max=60"`
	Rows            []map[string]any `json:"rows" validate:"required,min=1,dive,required"`
}

type ImportJobResponse struct {
	ID            uuid.UUID            `json:"id"`
	FileName      string               `json:"fileName"`
	Format        string               `json:"format"`
	Status        string               `json:"status"`
	Result        *domain.ImportResult `json:"result,omitempty"`
	FailureReason *string              `json:"failureReason,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	CompletedAt   *time.Time           `json:"completedAt,omitempty"`
}

// ImportSubmissionResponse is returned by the upload endpoint. Result is
// present when the file ran inline.
type ImportSubmissionResponse struct {
	Job    ImportJobResponse    `json:"job"`
	Queued bool                 `json:"queued"`
	Result *domain.ImportResult `json:"result,omitempty"`
}

func ToImportJobResponse(job domain.ImportJob) ImportJobResponse {
	return ImportJobResponse{
		ID:            job.ID,
		FileName:      job.FileName,
		Format:        job.Format,
		Status:        string(job.Status),
		Result:        job.Result,
		FailureReason: job.FailureReason,
		CreatedAt:     job.CreatedAt,
		CompletedAt:   job.CompletedAt,
	}
}
