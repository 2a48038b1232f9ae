package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskLeadImport = "leads.import"

type LeadImportPayload struct {
	TenantID string `json:"tenantId"`
	JobID    string `json:"jobId"`
}

func NewLeadImportTask(payload LeadImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadImport, data), nil
}

// ParseLeadImportPayload decodes the task and validates both ids.
func ParseLeadImportPayload(task *asynq.Task) (tenantID, jobID uuid.UUID, err error) {
	var payload LeadImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if tenantID, err = uuid.Parse(payload.TenantID); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid tenant id: %w", err)
	}
	if jobID, err = uuid.Parse(payload.JobID); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid job id: %w", err)
	}
	return tenantID, jobID, nil
}
