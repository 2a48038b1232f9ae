package scheduler

import (
	"context"
	"errors"
	"time"

	"crm_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	importMaxRetry  = 3
	importTimeout   = 30 * time.Minute
	importRetention = 24 * time.Hour
)

// Client enqueues lead import jobs for the worker.
type Client struct {
	asynq *asynq.Client
	queue string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{asynq: asynq.NewClient(opt), queue: queueOf(cfg)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.asynq == nil {
		return nil
	}
	return c.asynq.Close()
}

// EnqueueLeadImport queues one stored import. The task id is the job id so a
// repeated submit of the same job is dropped by the queue.
func (c *Client) EnqueueLeadImport(ctx context.Context, tenantID, jobID uuid.UUID) error {
	task, err := NewLeadImportTask(LeadImportPayload{TenantID: tenantID.String(), JobID: jobID.String()})
	if err != nil {
		return err
	}
	_, err = c.asynq.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(jobID.String()),
		asynq.MaxRetry(importMaxRetry),
		asynq.Timeout(importTimeout),
		asynq.Retention(importRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}
