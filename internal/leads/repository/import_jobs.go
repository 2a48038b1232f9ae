package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrImportJobNotFound = errors.New("import job not found")

const importJobColumns = `id, organization_id, actor_id, file_name, file_key, format, default_lead_type,
	status, result, failure_reason, created_at, updated_at, completed_at`

func scanImportJob(row pgx.Row) (domain.ImportJob, error) {
	var job domain.ImportJob
	var status string
	var result []byte
	err := row.Scan(
		&job.ID, &job.TenantID, &job.ActorID, &job.FileName, &job.FileKey, &job.Format, &job.DefaultLeadType,
		&status, &result, &job.FailureReason, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ImportJob{}, ErrImportJobNotFound
		}
		return domain.ImportJob{}, err
	}
	job.Status = domain.ImportJobStatus(status)
	if len(result) > 0 {
		var res domain.ImportResult
		if err := json.Unmarshal(result, &res); err != nil {
			return domain.ImportJob{}, err
		}
		job.Result = &res
	}
	return job, nil
}

type CreateImportJobParams struct {
	TenantID        uuid.UUID
	ActorID         uuid.UUID
	FileName        string
	FileKey         *string
	Format          string
	DefaultLeadType *string
	Status          domain.ImportJobStatus
}

func (r *Repository) CreateImportJob(ctx context.Context, params CreateImportJobParams) (domain.ImportJob, error) {
	return scanImportJob(r.pool.QueryRow(ctx, `
		INSERT INTO lead_import_jobs (organization_id, actor_id, file_name, file_key, format, default_lead_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+importJobColumns,
		params.TenantID, params.ActorID, params.FileName, params.FileKey, params.Format, params.DefaultLeadType,
		string(params.Status),
	))
}

func (r *Repository) GetImportJob(ctx context.Context, tenantID, jobID uuid.UUID) (domain.ImportJob, error) {
	return scanImportJob(r.pool.QueryRow(ctx, `
		SELECT `+importJobColumns+`
		FROM lead_import_jobs
		WHERE organization_id = $1 AND id = $2
	`, tenantID, jobID))
}

// MarkImportJobRunning moves a pending job to running. It returns
// ErrImportJobNotFound when the job is missing or already claimed.
func (r *Repository) MarkImportJobRunning(ctx context.Context, tenantID, jobID uuid.UUID) (domain.ImportJob, error) {
	return scanImportJob(r.pool.QueryRow(ctx, `
		UPDATE lead_import_jobs
		SET status = 'running', updated_at = now()
		WHERE organization_id = $1 AND id = $2 AND status = 'pending'
		RETURNING `+importJobColumns,
		tenantID, jobID,
	))
}

func (r *Repository) CompleteImportJob(ctx context.Context, tenantID, jobID uuid.UUID, result domain.ImportResult, at time.Time) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_import_jobs
		SET status = 'completed', result = $3, failure_reason = NULL, completed_at = $4, updated_at = $4
		WHERE organization_id = $1 AND id = $2
	`, tenantID, jobID, payload, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrImportJobNotFound
	}
	return nil
}

func (r *Repository) FailImportJob(ctx context.Context, tenantID, jobID uuid.UUID, reason string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_import_jobs
		SET status = 'failed', failure_reason = $3, completed_at = $4, updated_at = $4
		WHERE organization_id = $1 AND id = $2
	`, tenantID, jobID, reason, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrImportJobNotFound
	}
	return nil
}
