package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/data"
	domainjob "github.com/craftcv/craftcv-api/internal/domain/job"
	"github.com/craftcv/craftcv-api/internal/domain/model"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

// nominalJobSeconds estimates how long one job of each type takes against the
// upstream processing API. Used only for ETA hints, never for scheduling.
var nominalJobSeconds = map[model.JobType]int{
	model.JobTypeAnalyze:  45,
	model.JobTypeImprove:  90,
	model.JobTypeGenerate: 30,
}

const (
	// statusCacheTTL bounds staleness of cached in-flight status reads.
	statusCacheTTL = 3 * time.Second
	// defaultResultCacheTTL is how long terminal results stay in the cache
	// when no retention is configured.
	defaultResultCacheTTL = time.Hour
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo            core.JobRepository        // Required: job repository
	DefaultLease    time.Duration             // Required: default lease duration for jobs
	Cache           core.CacheRepository      // Optional: read-path cache for status and results
	ResultCacheTTL  time.Duration             // Optional: retention for cached terminal results
	Logger          *slog.Logger              // Optional: structured logger
	LeasePolicy     *domainjob.LeasePolicy    // Optional: override default lease policy
	Notifier        domainjob.Notifier        // Optional: custom job availability notifier
	NotifierOptions domainjob.NotifierOptions // Optional: configure default notifier behaviour
}

// JobService provides business logic for job orchestration.
//
// This service manages:
// - Idempotent job submission with ETA hints
// - Status and result reads with a cache in front of Postgres
// - Job claim and lease management for workers
// - Pub/sub notification system for job availability
// - Graceful shutdown of all listeners.
type JobService struct {
	repo           core.JobRepository
	cache          core.CacheRepository
	resultCacheTTL time.Duration
	leasePolicy    *domainjob.LeasePolicy
	notifier       domainjob.Notifier
	logger         *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	var leasePolicy *domainjob.LeasePolicy
	switch {
	case opts.LeasePolicy != nil:
		leasePolicy = opts.LeasePolicy
	case opts.DefaultLease > 0:
		var err error
		leasePolicy, err = domainjob.NewLeasePolicy(opts.DefaultLease)
		if err != nil {
			return nil, fmt.Errorf("create lease policy: %w", err)
		}
	default:
		return nil, errors.New("DefaultLease must be positive")
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Repo
		}
		var err error
		notifier, err = domainjob.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create job notifier: %w", err)
		}
	}

	resultTTL := opts.ResultCacheTTL
	if resultTTL <= 0 {
		resultTTL = defaultResultCacheTTL
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
		logger.Debug("JobService initialized",
			"default_lease", leasePolicy.Default(),
			"result_cache_ttl", resultTTL,
		)
	}

	return &JobService{
		repo:           opts.Repo,
		cache:          opts.Cache,
		resultCacheTTL: resultTTL,
		leasePolicy:    leasePolicy,
		notifier:       notifier,
		logger:         logger,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Submit enqueues a job and returns the submission receipt. Submitting an
// existing job_id again does not enqueue a second job; the stored job's
// receipt comes back instead.
func (s *JobService) Submit(ctx context.Context, req *model.SubmitJobRequest) (*model.SubmitJobResponse, error) {
	if req == nil {
		return nil, apperrors.Validation("submit request")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	job, created, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job submitted",
			"id", job.ID,
			"type", job.Type,
			"status", job.Status,
			"deduplicated", !created,
		)
	}

	eta, etaErr := s.estimateEta(ctx, job.Type)
	if etaErr != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "eta estimate failed", "job_type", job.Type, "error", etaErr)
	}

	return &model.SubmitJobResponse{
		JobID:      job.ID,
		Status:     job.Status,
		StatusURL:  fmt.Sprintf("/api/jobs/%s/status", job.ID),
		ResultURL:  fmt.Sprintf("/api/jobs/%s/result", job.ID),
		EtaSeconds: eta,
	}, nil
}

// estimateEta projects a completion hint from the current queue depth for the type.
func (s *JobService) estimateEta(ctx context.Context, jobType model.JobType) (int, error) {
	nominal := nominalJobSeconds[jobType]
	if nominal == 0 {
		nominal = 60
	}

	stats, err := s.repo.Stats(ctx, jobType)
	if err != nil {
		return nominal, err
	}
	depth := stats.Queued + stats.InProgress
	if depth < 1 {
		depth = 1
	}
	return depth * nominal, nil
}

// GetStatus returns the status snapshot for a job, served from the cache when
// a fresh snapshot exists.
func (s *JobService) GetStatus(ctx context.Context, id string) (*model.JobStatusResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, data.JobStatusCacheKey(id)); err == nil && len(cached) > 0 {
			var resp model.JobStatusResponse
			if unmarshalErr := json.Unmarshal(cached, &resp); unmarshalErr == nil {
				return &resp, nil
			}
		}
	}

	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapJobRepoError(err)
	}

	resp := &model.JobStatusResponse{
		JobID:       job.ID,
		Type:        job.Type,
		Status:      job.Status,
		EnqueuedAt:  job.EnqueuedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		RetryCount:  job.RetryCount,
	}
	if !job.Status.Terminal() {
		if eta, etaErr := s.estimateEta(ctx, job.Type); etaErr == nil {
			resp.EtaSeconds = &eta
		}
	}

	s.cacheStatus(ctx, job, resp)
	return resp, nil
}

func (s *JobService) cacheStatus(ctx context.Context, job *model.Job, resp *model.JobStatusResponse) {
	if s.cache == nil {
		return
	}

	ttl := statusCacheTTL
	if job.Status.Terminal() {
		ttl = s.resultCacheTTL
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if setErr := s.cache.Set(ctx, data.JobStatusCacheKey(job.ID), raw, ttl); setErr != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "status cache write failed", "job_id", job.ID, "error", setErr)
	}
}

// GetResult returns the stored result (or stored error) of a terminal job.
// Jobs still queued or in progress yield a not-ready error carrying retry hints.
func (s *JobService) GetResult(ctx context.Context, id string) (*model.JobResultResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, data.JobResultCacheKey(id)); err == nil && len(cached) > 0 {
			var resp model.JobResultResponse
			if unmarshalErr := json.Unmarshal(cached, &resp); unmarshalErr == nil {
				return &resp, nil
			}
		}
	}

	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapJobRepoError(err)
	}

	if !job.Status.Terminal() {
		return nil, apperrors.NotReadyStatus("Job is still "+string(job.Status), string(job.Status))
	}

	resp := &model.JobResultResponse{
		JobID:       job.ID,
		Type:        job.Type,
		Status:      job.Status,
		CompletedAt: job.TerminalAt(),
	}
	switch job.Status {
	case model.JobStatusComplete:
		resp.Result = job.ResultPayload
	case model.JobStatusFailed:
		jobErr := &model.JobError{Kind: model.ErrorKindPermanent}
		if job.ErrorKind != nil {
			jobErr.Kind = *job.ErrorKind
		}
		if job.ErrorMessage != nil {
			jobErr.Message = *job.ErrorMessage
		}
		resp.Error = jobErr
	}

	s.cacheResult(ctx, resp)
	return resp, nil
}

func (s *JobService) cacheResult(ctx context.Context, resp *model.JobResultResponse) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if setErr := s.cache.Set(ctx, data.JobResultCacheKey(resp.JobID), raw, s.resultCacheTTL); setErr != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "result cache write failed", "job_id", resp.JobID, "error", setErr)
	}
}

// invalidateReadCache drops cached read-path entries after a state transition.
func (s *JobService) invalidateReadCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{data.JobStatusCacheKey(id), data.JobResultCacheKey(id)} {
		if _, err := s.cache.Delete(ctx, key); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed", "job_id", id, "key", key, "error", err)
		}
	}
}

// Cancel fails a queued job before any worker picks it up. Jobs already in
// progress or terminal cannot be cancelled.
func (s *JobService) Cancel(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.Cancel(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrJobNotCancelable) {
			return nil, apperrors.Conflict("Job")
		}
		return nil, mapJobRepoError(err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job cancelled", "id", id)
	}

	s.invalidateReadCache(ctx, id)
	return job, nil
}

// ReserveNext reserves the next available job of the given type for processing.
func (s *JobService) ReserveNext(
	ctx context.Context,
	jobType model.JobType,
	lease time.Duration,
) (*model.Job, error) {
	decision := s.leasePolicy.Resolve(lease)
	if decision.Clamped() && s.logger != nil {
		s.logger.DebugContext(ctx, "clamped sub-second lease duration to 1 second",
			"requested_duration", decision.Requested,
			"job_type", jobType)
	}

	job, err := s.repo.ReserveNext(ctx, jobType, decision.Seconds)
	if err != nil {
		return nil, fmt.Errorf("reserve next job: %w", err)
	}

	if s.logger != nil && job != nil {
		s.logger.DebugContext(ctx, "job reserved",
			"id", job.ID,
			"type", jobType,
			"lease_seconds", decision.Seconds,
		)
	}

	return job, nil
}

// ReserveNextForTimeout reserves a job with a lease derived from the worker's
// per-job execution timeout.
func (s *JobService) ReserveNextForTimeout(
	ctx context.Context,
	jobType model.JobType,
	timeout time.Duration,
) (*model.Job, error) {
	decision := s.leasePolicy.ForTimeout(timeout)
	job, err := s.repo.ReserveNext(ctx, jobType, decision.Seconds)
	if err != nil {
		return nil, fmt.Errorf("reserve next job: %w", err)
	}
	return job, nil
}

// Subscribe creates a subscription for job notifications of the given type.
// Returns an unsubscribe function and a channel that receives notifications.
func (s *JobService) Subscribe(jobType model.JobType) (func(), <-chan struct{}) {
	if s.notifier == nil {
		ch := make(chan struct{})
		close(ch)
		return func() {}, ch
	}
	return s.notifier.Subscribe(jobType)
}

// WaitForNotification waits for a notification indicating new jobs are available.
func (s *JobService) WaitForNotification(ctx context.Context, jobType model.JobType) error {
	return s.repo.WaitForNotification(ctx, jobType)
}

// Heartbeat extends the lease on a job to indicate it's still being processed.
func (s *JobService) Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error) {
	decision := s.leasePolicy.Resolve(extend)
	if decision.Clamped() && s.logger != nil {
		s.logger.DebugContext(ctx, "clamped sub-second heartbeat duration to 1 second",
			"requested_duration", decision.Requested,
			"job_id", id)
	}

	updated, err := s.repo.Heartbeat(ctx, id, decision.Seconds)
	if err != nil {
		return false, fmt.Errorf("heartbeat job %s: %w", id, err)
	}

	if s.logger != nil && updated {
		s.logger.DebugContext(ctx, "job heartbeat updated", "id", id, "extend_seconds", decision.Seconds)
	}

	return updated, nil
}

// Complete marks a job as complete and stores its result payload. Returns
// false when the worker lost its claim and the transition did not apply.
func (s *JobService) Complete(ctx context.Context, id string, result json.RawMessage) (bool, error) {
	completed, err := s.repo.Complete(ctx, id, result)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}

	if completed {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "job completed", "id", id)
		}
		s.invalidateReadCache(ctx, id)
	}

	return completed, nil
}

// Fail records a job failure, letting the repository decide between a backoff
// retry and a terminal failure. Returns the resulting status and whether the
// transition applied.
func (s *JobService) Fail(ctx context.Context, id string, params core.FailJobParams) (model.JobStatus, bool, error) {
	if params.Message == "" {
		return "", false, errors.New("error message required")
	}

	status, applied, err := s.repo.Fail(ctx, id, params)
	if err != nil {
		return "", false, fmt.Errorf("fail job %s: %w", id, err)
	}

	if applied {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "job failure recorded",
				"id", id,
				"kind", params.Kind,
				"retryable", params.Retryable,
				"status", status,
			)
		}
		s.invalidateReadCache(ctx, id)
	}

	return status, applied, nil
}

// Stats returns per-status counts for one job type.
func (s *JobService) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx, jobType)
	if err != nil {
		return nil, fmt.Errorf("get job stats for type %s: %w", jobType, err)
	}
	return stats, nil
}

// QueueStats returns counts per type plus an overall total.
func (s *JobService) QueueStats(ctx context.Context) (*model.QueueStats, error) {
	byType, err := s.repo.StatsByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("get queue stats: %w", err)
	}

	out := &model.QueueStats{ByType: make(map[model.JobType]model.JobStats, len(byType))}
	for _, jobType := range model.AllJobTypes() {
		stats := byType[jobType]
		out.ByType[jobType] = stats
		out.Total.Queued += stats.Queued
		out.Total.InProgress += stats.InProgress
		out.Total.Complete += stats.Complete
		out.Total.Failed += stats.Failed
	}
	return out, nil
}

// GetByID returns a job by its ID.
func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapJobRepoError(err)
	}
	return job, nil
}

// List returns jobs with optional filtering for the admin view.
func (s *JobService) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}

	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// StopAllListeners stops all active job notification listeners.
// This should be called during graceful shutdown to clean up goroutines.
func (s *JobService) StopAllListeners() {
	if s.logger != nil {
		s.logger.Info("stopping all job listeners")
	}

	if s.notifier != nil {
		s.notifier.StopAll()
	}
}

// mapJobRepoError translates data-layer sentinels into the API error taxonomy.
func mapJobRepoError(err error) error {
	if errors.Is(err, data.ErrJobNotFound) {
		return apperrors.NotFound("Job")
	}
	return apperrors.MapDBError(err)
}
