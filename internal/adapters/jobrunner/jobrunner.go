// Package jobrunner provides job execution and worker management for the craftcv pipeline.
package jobrunner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/data"
	"github.com/craftcv/craftcv-api/internal/domain/model"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
	obserrors "github.com/craftcv/craftcv-api/internal/observability/errors"
	"github.com/craftcv/craftcv-api/internal/observability/metrics"
	"github.com/craftcv/craftcv-api/internal/observability/notify"
	"github.com/craftcv/craftcv-api/internal/observability/statsd"
	"github.com/craftcv/craftcv-api/internal/service"
)

const (
	// defaultExecutionTimeout bounds a single handler run.
	defaultExecutionTimeout = 300 * time.Second
	// heartbeatDivisor picks the heartbeat cadence relative to the lease.
	heartbeatDivisor = 2
)

// RunnerOptions configures the job runner adapter.
type RunnerOptions struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Job processing settings
	Lease            time.Duration // per-job lease duration; derived from timeout when zero
	ExecutionTimeout time.Duration // per-job handler timeout; defaults to 300s
	Concurrency      int           // number of worker goroutines; defaults to 1
	JobType          model.JobType // which job type to process; defaults to analyze

	// Handlers executes jobs of this runner's type. At least the handler for
	// JobType must be present.
	Handlers []core.JobHandler

	// Optional dependency injections (useful for tests/decoupling)
	JobsRepo       core.JobRepository
	Cache          core.CacheRepository
	ResultCacheTTL time.Duration
	Metrics        statsd.Sink

	// FailureNotifier is invoked when a job exhausts its retries.
	FailureNotifier FailureNotifier
}

// FailureNotifier receives jobs that failed for good.
type FailureNotifier interface {
	NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload)
	Enabled() bool
}

// Runner pulls jobs of one type and executes them using registered handlers.
type Runner struct {
	jobs     *service.JobService
	logger   *slog.Logger
	lease    time.Duration
	timeout  time.Duration
	jobType  model.JobType
	workers  int
	handlers map[model.JobType]core.JobHandler
	metrics  statsd.Sink
	notifier FailureNotifier
}

func resolveLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// NewRunner wires repositories/services and constructs a job runner for a single job type.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.JobsRepo == nil {
		return nil, errors.New("either DB or JobsRepo must be provided")
	}

	logger := resolveLogger(opts.Logger)

	timeout := opts.ExecutionTimeout
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}

	lease := opts.Lease
	if lease <= 0 {
		// The lease must outlive the handler timeout or the sweeper would
		// requeue jobs that are still executing.
		lease = timeout + 15*time.Second
	}

	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	jt := opts.JobType
	if !jt.Valid() {
		jt = model.JobTypeAnalyze
	}

	jobsRepo := opts.JobsRepo
	if jobsRepo == nil {
		jobsRepo = data.NewJobRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
	}
	jobSvc := service.MustNewJobService(service.JobServiceOptions{
		Repo:           jobsRepo,
		Cache:          opts.Cache,
		ResultCacheTTL: opts.ResultCacheTTL,
		DefaultLease:   lease,
		Logger:         opts.Logger,
	})

	handlers := make(map[model.JobType]core.JobHandler, len(opts.Handlers))
	for _, h := range opts.Handlers {
		if h == nil {
			continue
		}
		handlers[h.Type()] = h
	}
	if _, ok := handlers[jt]; !ok {
		return nil, fmt.Errorf("no handler registered for job type %s", jt)
	}

	return &Runner{
		jobs:     jobSvc,
		logger:   logger,
		lease:    lease,
		timeout:  timeout,
		jobType:  jt,
		workers:  workers,
		handlers: handlers,
		metrics:  opts.Metrics,
		notifier: opts.FailureNotifier,
	}, nil
}

// Run starts worker goroutines and processes jobs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting job runner",
		"type", r.jobType,
		"workers", r.workers,
		"lease", r.lease,
		"timeout", r.timeout,
	)

	// Subscribe for notifications for the job type we process
	unsub, ch := r.jobs.Subscribe(r.jobType)
	defer unsub()

	g, ctx := errgroup.WithContext(ctx)
	for range r.workers {
		g.Go(func() error {
			return r.workerLoop(ctx, ch)
		})
	}
	return g.Wait()
}

func (r *Runner) workerLoop(ctx context.Context, notify <-chan struct{}) error {
	for ctx.Err() == nil {
		job, err := r.jobs.ReserveNext(ctx, r.jobType, r.lease)
		switch {
		case err == nil:
			if job != nil {
				r.processJob(ctx, job)
			}
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForNotify(ctx, notify) {
				return nil
			}
		default:
			return fmt.Errorf("reserve next: %w", err)
		}
	}
	return ctx.Err()
}

func (r *Runner) waitForNotify(ctx context.Context, notify <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case <-notify:
		return true
	}
}

func (r *Runner) processJob(ctx context.Context, job *model.Job) {
	start := time.Now()
	emit := func(transition, result string, err error) {
		metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
			JobType:    string(job.Type),
			Transition: transition,
			Result:     result,
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	emit("claimed", metrics.ResultSuccess, nil)

	h, ok := r.handlers[job.Type]
	if !ok {
		err := fmt.Errorf("no handler for job type %s", job.Type)
		r.fail(ctx, job.ID, core.FailJobParams{
			Kind:    model.ErrorKindPermanent,
			Message: err.Error(),
		})
		emit("failed", metrics.ResultError, err)
		return
	}

	result, execErr := r.executeWithTimeout(ctx, h, job)
	if execErr != nil {
		params := classifyFailure(execErr)
		status, applied, failErr := r.jobs.Fail(ctx, job.ID, params)
		if failErr != nil {
			r.logger.ErrorContext(ctx, "fail job error", "job_id", job.ID, "error", failErr, "original_error", execErr)
		}
		if applied && status == model.JobStatusQueued {
			emit("retried", metrics.ResultError, execErr)
		} else {
			emit("failed", metrics.ResultError, execErr)
			if applied {
				r.notifyTerminalFailure(ctx, job, params)
			}
		}
		return
	}

	if completed, err := r.jobs.Complete(ctx, job.ID, result); err != nil {
		r.logger.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", err)
		emit("completed", metrics.ResultError, err)
	} else {
		res := metrics.ResultNoop
		if completed {
			res = metrics.ResultSuccess
		} else {
			// The lease expired mid-run and the job already moved on.
			r.logger.WarnContext(ctx, "lost claim before completion", "job_id", job.ID)
		}
		emit("completed", res, nil)
	}
}

// executeWithTimeout runs the handler under the per-job timeout while a
// heartbeat keeps the lease alive. Panics surface as errors so one bad job
// cannot take a worker down.
func (r *Runner) executeWithTimeout(
	ctx context.Context,
	h core.JobHandler,
	job *model.Job,
) (result json.RawMessage, err error) {
	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stopHeartbeat := r.startHeartbeat(execCtx, job.ID)
	defer stopHeartbeat()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "job handler panicked",
				"job_id", job.ID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			result = nil
			err = panicError{value: rec}
		}
	}()

	result, err = h.Execute(execCtx, job)
	if err == nil && execCtx.Err() != nil {
		err = execCtx.Err()
	}
	return result, err
}

// startHeartbeat refreshes the lease at half its duration until stopped.
func (r *Runner) startHeartbeat(ctx context.Context, jobID string) func() {
	interval := r.lease / heartbeatDivisor
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if ok, err := r.jobs.Heartbeat(ctx, jobID, r.lease); err != nil {
					r.logger.WarnContext(ctx, "heartbeat failed", "job_id", jobID, "error", err)
				} else if !ok {
					r.logger.WarnContext(ctx, "heartbeat lost claim", "job_id", jobID)
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

// notifyTerminalFailure pushes the failure to the configured alert sinks.
// Best effort only; delivery errors are logged by the notifier itself.
func (r *Runner) notifyTerminalFailure(ctx context.Context, job *model.Job, params core.FailJobParams) {
	if r.notifier == nil || !r.notifier.Enabled() {
		return
	}
	r.notifier.NotifyJobFailure(ctx, notify.JobFailurePayload{
		JobID:      job.ID,
		JobType:    string(job.Type),
		Error:      params.Message,
		ErrorKind:  string(params.Kind),
		Attempts:   job.RetryCount + 1,
		MaxRetries: job.MaxRetries,
		OccurredAt: time.Now().UTC(),
	})
}

func (r *Runner) fail(ctx context.Context, id string, params core.FailJobParams) {
	if _, _, err := r.jobs.Fail(ctx, id, params); err != nil {
		r.logger.ErrorContext(ctx, "fail job error", "job_id", id, "error", err)
	}
}

// panicError wraps a recovered panic value as an error.
type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("job handler panic: %v", e.value)
}

// classifyFailure maps a handler error onto the stored failure taxonomy.
// Transient and timeout failures are retryable; everything else is final.
func classifyFailure(err error) core.FailJobParams {
	params := core.FailJobParams{Message: err.Error()}

	var pe panicError
	switch {
	case errors.As(err, &pe):
		params.Kind = model.ErrorKindPanic
	case errors.Is(err, context.DeadlineExceeded) || apperrors.IsTimeout(err):
		params.Kind = model.ErrorKindTimeout
		params.Retryable = true
	case apperrors.IsTransient(err):
		params.Kind = model.ErrorKindTransient
		params.Retryable = true
	case apperrors.IsCanceled(err):
		params.Kind = model.ErrorKindCanceled
		params.Retryable = true
	default:
		params.Kind = model.ErrorKindPermanent
	}

	if class := obserrors.Classify(err); class != "" && params.Message != "" {
		params.Message = fmt.Sprintf("[%s] %s", class, params.Message)
	}
	return params
}
