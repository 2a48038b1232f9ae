package imports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/leads/repository"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

type JobStore interface {
	CreateImportJob(ctx context.Context, params repository.CreateImportJobParams) (domain.ImportJob, error)
	GetImportJob(ctx context.Context, tenantID, jobID uuid.UUID) (domain.ImportJob, error)
	MarkImportJobRunning(ctx context.Context, tenantID, jobID uuid.UUID) (domain.ImportJob, error)
	CompleteImportJob(ctx context.Context, tenantID, jobID uuid.UUID, result domain.ImportResult, at time.Time) error
	FailImportJob(ctx context.Context, tenantID, jobID uuid.UUID, reason string, at time.Time) error
}

// Upload is an import file received from a client.
type Upload struct {
	FileName        string
	ContentType     string
	Data            []byte
	ActorID         uuid.UUID
	DefaultLeadType *string
}

// Submission reports how an upload was handled. Result is set when the batch
// ran inline; Queued when it was handed to the worker.
type Submission struct {
	Job    domain.ImportJob
	Result *domain.ImportResult
	Queued bool
}

// Service tracks imports as jobs. Files with at most inlineMaxRows rows run in
// the request; larger files are stored and processed by the worker.
type Service struct {
	orchestrator  *Orchestrator
	jobs          JobStore
	files         ports.FileStore
	enqueuer      ports.ImportEnqueuer
	inlineMaxRows int
	log           *logger.Logger
	now           func() time.Time
}

// NewService wires the import service. files and enqueuer may be nil, in which
// case every import runs inline.
func NewService(orchestrator *Orchestrator, jobs JobStore, files ports.FileStore, enqueuer ports.ImportEnqueuer, inlineMaxRows int, log *logger.Logger) *Service {
	return &Service{
		orchestrator:  orchestrator,
		jobs:          jobs,
		files:         files,
		enqueuer:      enqueuer,
		inlineMaxRows: inlineMaxRows,
		log:           log,
		now:           time.Now,
	}
}

func (s *Service) Submit(ctx context.Context, tenantID uuid.UUID, upload Upload) (Submission, error) {
	if len(upload.Data) == 0 {
		return Submission{}, apperr.Validation("import file is empty")
	}
	format, err := DetectFormat(upload.FileName, upload.ContentType)
	if err != nil {
		return Submission{}, err
	}
	batch, err := Parse(format, upload.Data)
	if err != nil {
		return Submission{}, err
	}

	if len(batch.Rows) > s.inlineMaxRows && s.files != nil && s.enqueuer != nil {
		if missing := batch.MissingColumns(); len(missing) > 0 {
			_, err := s.orchestrator.ImportBatch(ctx, tenantID, batch, Options{FileName: upload.FileName})
			return Submission{}, err
		}
		return s.enqueue(ctx, tenantID, upload, format)
	}
	return s.runInline(ctx, tenantID, upload, format, batch)
}

func (s *Service) runInline(ctx context.Context, tenantID uuid.UUID, upload Upload, format string, batch Batch) (Submission, error) {
	job, err := s.jobs.CreateImportJob(ctx, repository.CreateImportJobParams{
		TenantID:        tenantID,
		ActorID:         upload.ActorID,
		FileName:        upload.FileName,
		Format:          format,
		DefaultLeadType: upload.DefaultLeadType,
		Status:          domain.ImportRunning,
	})
	if err != nil {
		return Submission{}, fmt.Errorf("create import job: %w", err)
	}

	result, err := s.orchestrator.ImportBatch(ctx, tenantID, batch, Options{
		ActorID:         upload.ActorID,
		DefaultLeadType: upload.DefaultLeadType,
		FileName:        upload.FileName,
		JobID:           &job.ID,
	})
	if err != nil {
		s.fail(tenantID, job.ID, err)
		return Submission{}, err
	}

	if err := s.jobs.CompleteImportJob(ctx, tenantID, job.ID, result, s.now().UTC()); err != nil {
		return Submission{}, fmt.Errorf("complete import job: %w", err)
	}
	job.Status = domain.ImportCompleted
	job.Result = &result
	return Submission{Job: job, Result: &result}, nil
}

func (s *Service) enqueue(ctx context.Context, tenantID uuid.UUID, upload Upload, format string) (Submission, error) {
	contentType := "text/csv"
	if format == FormatJSON {
		contentType = "application/json"
	}
	fileKey, err := s.files.Upload(ctx, tenantID.String(), upload.FileName, contentType, bytes.NewReader(upload.Data), int64(len(upload.Data)))
	if err != nil {
		return Submission{}, fmt.Errorf("store import file: %w", err)
	}

	job, err := s.jobs.CreateImportJob(ctx, repository.CreateImportJobParams{
		TenantID:        tenantID,
		ActorID:         upload.ActorID,
		FileName:        upload.FileName,
		FileKey:         &fileKey,
		Format:          format,
		DefaultLeadType: upload.DefaultLeadType,
		Status:          domain.ImportPending,
	})
	if err != nil {
		return Submission{}, fmt.Errorf("create import job: %w", err)
	}

	if err := s.enqueuer.EnqueueLeadImport(ctx, tenantID, job.ID); err != nil {
		s.fail(tenantID, job.ID, err)
		return Submission{}, fmt.Errorf("enqueue import job: %w", err)
	}
	s.log.Info("lead_import_queued", "tenantId", tenantID.String(), "jobId", job.ID.String(), "fileKey", fileKey)
	return Submission{Job: job, Queued: true}, nil
}

// Run processes a queued job. A job that is no longer pending is ignored, so a
// redelivered task does not import twice. Failures are recorded on the job.
func (s *Service) Run(ctx context.Context, tenantID, jobID uuid.UUID) error {
	job, err := s.jobs.MarkImportJobRunning(ctx, tenantID, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrImportJobNotFound) {
			s.log.Warn("lead_import_job_not_pending", "tenantId", tenantID.String(), "jobId", jobID.String())
			return nil
		}
		return err
	}
	if job.FileKey == nil {
		s.fail(tenantID, jobID, errors.New("job has no stored file"))
		return nil
	}

	data, err := s.download(ctx, *job.FileKey)
	if err != nil {
		s.fail(tenantID, jobID, err)
		return nil
	}
	batch, err := Parse(job.Format, data)
	if err != nil {
		s.fail(tenantID, jobID, err)
		return nil
	}

	result, err := s.orchestrator.ImportBatch(ctx, tenantID, batch, Options{
		ActorID:         job.ActorID,
		DefaultLeadType: job.DefaultLeadType,
		FileName:        job.FileName,
		JobID:           &job.ID,
	})
	if err != nil {
		s.fail(tenantID, jobID, err)
		return nil
	}
	if err := s.jobs.CompleteImportJob(ctx, tenantID, jobID, result, s.now().UTC()); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, *job.FileKey); err != nil {
		s.log.Warn("lead_import_file_cleanup_failed", "fileKey", *job.FileKey, "error", err.Error())
	}
	return nil
}

func (s *Service) Get(ctx context.Context, tenantID, jobID uuid.UUID) (domain.ImportJob, error) {
	job, err := s.jobs.GetImportJob(ctx, tenantID, jobID)
	if errors.Is(err, repository.ErrImportJobNotFound) {
		return domain.ImportJob{}, apperr.NotFound("import job not found")
	}
	return job, err
}

func (s *Service) download(ctx context.Context, fileKey string) ([]byte, error) {
	if s.files == nil {
		return nil, errors.New("file storage is not configured")
	}
	rc, err := s.files.Download(ctx, fileKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Service) fail(tenantID, jobID uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.jobs.FailImportJob(ctx, tenantID, jobID, cause.Error(), s.now().UTC()); err != nil {
		s.log.Error("lead_import_job_fail_update", "jobId", jobID.String(), "error", err.Error())
	}
	s.log.Warn("lead_import_failed", "tenantId", tenantID.String(), "jobId", jobID.String(), "error", cause.Error())
}
