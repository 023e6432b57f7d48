package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// FailJobParams groups parameters for JobRepository.Fail to keep param count ≤3.
type FailJobParams struct {
	Kind      string
	Message   string
	Retryable bool
}

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.SubmitJobRequest) (*model.Job, bool, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ReserveNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error)
	WaitForNotification(ctx context.Context, jobType model.JobType) error
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)
	Complete(ctx context.Context, id string, result json.RawMessage) (bool, error)
	Fail(ctx context.Context, id string, params FailJobParams) (model.JobStatus, bool, error)
	Cancel(ctx context.Context, id string) (*model.Job, error)
	Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error)
	StatsByType(ctx context.Context) (map[model.JobType]model.JobStats, error)
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error)
}

// DocumentRepository defines the interface for generated document data operations.
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)
	GetByID(ctx context.Context, id string) (*model.Document, error)
	ListByJobID(ctx context.Context, jobID string) ([]*model.Document, error)
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs to keep param count ≤3.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// DeleteExpiredDocumentsParams groups parameters for DeleteExpiredDocuments.
type DeleteExpiredDocumentsParams struct {
	BatchSize int
}

// ReaperRepository defines the interface for job cleanup operations.
type ReaperRepository interface {
	// FailStaleQueuedJobs fails queued jobs older than maxAge that were never claimed.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs marked as failed.
	FailStaleQueuedJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)

	// RecoverAbandonedJobs requeues or fails in_progress jobs whose lease expired,
	// depending on whether retry budget remains. Processes up to batchSize jobs
	// per statement. Returns the number of jobs recovered.
	RecoverAbandonedJobs(ctx context.Context, batchSize int) (int64, error)

	// DeleteOldJobs deletes terminal jobs with the given status older than maxAge.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs deleted.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)

	// DeleteExpiredDocuments deletes generated documents past their expiry.
	// Processes up to batchSize rows per call.
	DeleteExpiredDocuments(ctx context.Context, params DeleteExpiredDocumentsParams) (int64, error)
}
