// Package model defines the core data types and structures used throughout the craftcv job pipeline.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job to be executed.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobTypeAnalyze represents a resume analysis job type.
	JobTypeAnalyze JobType = "analyze"
	// JobTypeImprove represents a resume improvement job type.
	JobTypeImprove JobType = "improve"
	// JobTypeGenerate represents a resume document generation job type.
	JobTypeGenerate JobType = "generate"

	// JobStatusQueued indicates a job is waiting to be claimed.
	JobStatusQueued JobStatus = "queued"
	// JobStatusInProgress indicates a job is currently being executed by a worker.
	JobStatusInProgress JobStatus = "in_progress"
	// JobStatusComplete indicates a job has finished successfully.
	JobStatusComplete JobStatus = "complete"
	// JobStatusFailed indicates a job has failed, was cancelled, or exhausted its retries.
	JobStatusFailed JobStatus = "failed"
)

// Error kinds recorded on failed jobs.
const (
	// ErrorKindPermanent marks a failure that would not succeed on retry.
	ErrorKindPermanent = "permanent"
	// ErrorKindTransient marks a retryable failure that exhausted its retry budget.
	ErrorKindTransient = "transient"
	// ErrorKindTimeout marks a job that exceeded the per-job execution timeout.
	ErrorKindTimeout = "timeout"
	// ErrorKindCanceled marks a job cancelled by the caller while still queued.
	ErrorKindCanceled = "canceled"
	// ErrorKindStale marks a job failed by the sweeper after sitting too long.
	ErrorKindStale = "stale"
	// ErrorKindPanic marks a job whose handler panicked.
	ErrorKindPanic = "panic"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jt := JobType(v)
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

// ErrNoJobsAvailable is returned when no jobs are available for claiming.
var ErrNoJobsAvailable = errors.New("no jobs available")

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	return t == JobTypeAnalyze || t == JobTypeImprove || t == JobTypeGenerate
}

// AllJobTypes lists every valid job type in dispatch order.
func AllJobTypes() []JobType {
	return []JobType{JobTypeAnalyze, JobTypeImprove, JobTypeGenerate}
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusInProgress || s == JobStatusComplete ||
		s == JobStatusFailed
}

// Terminal returns true once a job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// Job represents a job in the system with all its metadata and status information.
// InputPayload is immutable after enqueue; ResultPayload is set only on complete,
// ErrorKind/ErrorMessage only on failed. The two are mutually exclusive.
type Job struct {
	ID             string          `json:"id"                         db:"id"`
	Type           JobType         `json:"job_type"                   db:"job_type"`
	Status         JobStatus       `json:"status"                     db:"status"`
	InputPayload   json.RawMessage `json:"input_payload"              db:"input_payload"`
	ResultPayload  json.RawMessage `json:"result_payload,omitempty"   db:"result_payload"`
	ErrorKind      *string         `json:"error_kind,omitempty"       db:"error_kind"`
	ErrorMessage   *string         `json:"error_message,omitempty"    db:"error_message"`
	EnqueuedAt     time.Time       `json:"enqueued_at"                db:"enqueued_at"`
	ScheduledAt    time.Time       `json:"scheduled_at"               db:"scheduled_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	RetryCount     int             `json:"retry_count"                db:"retry_count"`
	MaxRetries     int             `json:"max_retries"                db:"max_retries"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	UpdatedAt      time.Time       `json:"updated_at"                 db:"updated_at"`
}

// TerminalAt returns the timestamp at which the job reached a terminal state,
// or nil when it has not yet.
func (j *Job) TerminalAt() *time.Time {
	if !j.Status.Terminal() {
		return nil
	}
	if j.CompletedAt != nil {
		return j.CompletedAt
	}
	t := j.UpdatedAt
	return &t
}

// SubmitJobRequest represents a request to enqueue a new job.
// JobID doubles as an idempotency key; when omitted the dispatcher generates one.
type SubmitJobRequest struct {
	JobID      *string         `json:"job_id,omitempty"`
	Type       JobType         `json:"job_type"`
	Payload    json.RawMessage `json:"payload"`
	MaxRetries *int            `json:"max_retries,omitempty"`
}

// MaxRetriesCeiling bounds the per-job retry budget a caller may request.
const MaxRetriesCeiling = 10

// Validate validates the SubmitJobRequest fields, including the per-type payload schema.
func (r *SubmitJobRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid job type")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	if r.JobID != nil && *r.JobID != "" {
		if _, err := uuid.Parse(*r.JobID); err != nil {
			return errors.New("job_id must be a valid UUID")
		}
	}
	if r.MaxRetries != nil && (*r.MaxRetries < 0 || *r.MaxRetries > MaxRetriesCeiling) {
		return fmt.Errorf("max_retries must be between 0 and %d", MaxRetriesCeiling)
	}
	return ValidatePayload(r.Type, r.Payload)
}

// JobListOptions filters and paginates admin job listings.
type JobListOptions struct {
	Status    *JobStatus
	Type      *JobType
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// JobStats represents per-status counts for one job type.
type JobStats struct {
	Queued     int `json:"queued"`
	InProgress int `json:"in_progress"`
	Complete   int `json:"complete"`
	Failed     int `json:"failed"`
}

// QueueStats aggregates per-type stats with an overall total.
type QueueStats struct {
	Total  JobStats             `json:"total"`
	ByType map[JobType]JobStats `json:"by_type"`
}

// SubmitJobResponse is returned from the dispatcher after enqueueing (or
// deduplicating) a job.
type SubmitJobResponse struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	StatusURL  string    `json:"status_url"`
	ResultURL  string    `json:"result_url"`
	EtaSeconds int       `json:"eta_seconds"`
}

// JobStatusResponse represents the status information for a specific job.
type JobStatusResponse struct {
	JobID       string     `json:"job_id"`
	Type        JobType    `json:"job_type"`
	Status      JobStatus  `json:"status"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RetryCount  int        `json:"retry_count"`
	EtaSeconds  *int       `json:"eta_seconds,omitempty"`
}

// JobError carries the stored failure of a terminal job.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// JobResultResponse represents the result payload (or stored error) of a terminal job.
type JobResultResponse struct {
	JobID       string          `json:"job_id"`
	Type        JobType         `json:"job_type"`
	Status      JobStatus       `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *JobError       `json:"error,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
