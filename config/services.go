package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeAPI runs the HTTP API server.
	ServiceModeAPI ServiceMode = "api"
	// ServiceModeWorker runs the job worker pool.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper runs the job reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeAPI,
		ServiceModeWorker,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeAPI, ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: api, worker, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains job worker service configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines per job type.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"10"`

	// ExecutionTimeout bounds a single handler run.
	ExecutionTimeout time.Duration `env:"WORKER_EXECUTION_TIMEOUT" envDefault:"300s"`

	// Lease is the duration a claimed job is held before the sweeper may
	// requeue it. Zero derives the lease from ExecutionTimeout.
	Lease time.Duration `env:"WORKER_JOB_LEASE" envDefault:"0s"`

	// JobTypes is the comma-delimited list of job types this process handles.
	JobTypes string `env:"WORKER_JOB_TYPES" envDefault:"analyze,improve,generate"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.ExecutionTimeout < 5*time.Second {
		w.ExecutionTimeout = 5 * time.Second
	}
	if w.Lease < 0 {
		w.Lease = 0
	}
	if w.Lease > 0 && w.Lease < w.ExecutionTimeout {
		// A lease shorter than the handler timeout would let the sweeper
		// requeue jobs that are still executing.
		w.Lease = w.ExecutionTimeout + 15*time.Second
	}
}

// ParseJobTypes returns the validated job types from the JobTypes field.
func (w *WorkerConfig) ParseJobTypes() ([]model.JobType, error) {
	var types []model.JobType
	seen := make(map[model.JobType]bool)
	for _, part := range strings.Split(w.JobTypes, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		jt := model.JobType(name)
		if !jt.Valid() {
			return nil, fmt.Errorf("invalid job type: %q", name)
		}
		if seen[jt] {
			continue
		}
		seen[jt] = true
		types = append(types, jt)
	}
	if len(types) == 0 {
		return nil, errors.New("at least one job type must be specified")
	}
	return types, nil
}

// ReaperConfig contains job reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// QueuedMaxAge is the maximum age for queued jobs before they are marked as failed.
	// Jobs stuck in queued status longer than this will be failed.
	QueuedMaxAge time.Duration `env:"REAPER_QUEUED_MAX_AGE" envDefault:"1h"`

	// CompleteMaxAge is the maximum age for complete jobs before deletion.
	CompleteMaxAge time.Duration `env:"REAPER_COMPLETE_MAX_AGE" envDefault:"168h"` // 7 days

	// FailedMaxAge is the maximum age for failed jobs before deletion.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"168h"` // 7 days

	// BatchSize is the maximum number of rows to process per operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	// Enforce minimum intervals to prevent excessive database load
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.QueuedMaxAge < 5*time.Minute {
		r.QueuedMaxAge = 5 * time.Minute
	}
	if r.CompleteMaxAge < 1*time.Hour {
		r.CompleteMaxAge = 1 * time.Hour
	}
	if r.FailedMaxAge < 1*time.Hour {
		r.FailedMaxAge = 1 * time.Hour
	}

	// Enforce batch size bounds to prevent excessive locks or inefficiency
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
