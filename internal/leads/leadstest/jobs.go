package leadstest

import (
	"context"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

func (s *Store) CreateImportJob(_ context.Context, params repository.CreateImportJobParams) (domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	job := domain.ImportJob{
		ID:              uuid.New(),
		TenantID:        params.TenantID,
		ActorID:         params.ActorID,
		FileName:        params.FileName,
		FileKey:         params.FileKey,
		Format:          params.Format,
		DefaultLeadType: params.DefaultLeadType,
		Status:          params.Status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.jobs[job.ID] = job
	return job, nil
}

func (s *Store) GetImportJob(_ context.Context, tenantID, jobID uuid.UUID) (domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return domain.ImportJob{}, repository.ErrImportJobNotFound
	}
	return job, nil
}

func (s *Store) MarkImportJobRunning(_ context.Context, tenantID, jobID uuid.UUID) (domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.TenantID != tenantID || job.Status != domain.ImportPending {
		return domain.ImportJob{}, repository.ErrImportJobNotFound
	}
	job.Status = domain.ImportRunning
	s.jobs[jobID] = job
	return job, nil
}

func (s *Store) CompleteImportJob(_ context.Context, tenantID, jobID uuid.UUID, result domain.ImportResult, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return repository.ErrImportJobNotFound
	}
	job.Status = domain.ImportCompleted
	job.Result = &result
	job.CompletedAt = &at
	s.jobs[jobID] = job
	return nil
}

func (s *Store) FailImportJob(_ context.Context, tenantID, jobID uuid.UUID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return repository.ErrImportJobNotFound
	}
	job.Status = domain.ImportFailed
	job.FailureReason = &reason
	job.CompletedAt = &at
	s.jobs[jobID] = job
	return nil
}
