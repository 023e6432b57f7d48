package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/craftcv/craftcv-api/config"
	"github.com/craftcv/craftcv-api/internal/adapters/analyzer"
	"github.com/craftcv/craftcv-api/internal/adapters/generator"
	"github.com/craftcv/craftcv-api/internal/adapters/improver"
	"github.com/craftcv/craftcv-api/internal/adapters/jobrunner"
	"github.com/craftcv/craftcv-api/internal/adapters/reaper"
	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/data"
	"github.com/craftcv/craftcv-api/internal/domain/model"
	"github.com/craftcv/craftcv-api/internal/observability/statsd"
	"github.com/craftcv/craftcv-api/internal/service/failurenotifier"
)

// WorkerRuntimeConfig contains the shared dependencies for job workers.
// RunWorker derives the per-type handler from Collaborators.
type WorkerRuntimeConfig struct {
	DB              *sql.DB
	RedisClient     redis.UniversalClient
	Logger          *slog.Logger
	Worker          config.WorkerConfig
	Collaborators   config.CollaboratorsConfig
	ResultCacheTTL  time.Duration
	Metrics         statsd.Sink
	FailureNotifier *failurenotifier.Service
}

// RunWorker starts a job runner processing one job type until the context is
// cancelled. Construction errors (including a missing Gemini key for improve
// workers) surface before any job is claimed.
func RunWorker(ctx context.Context, jobType model.JobType, cfg WorkerRuntimeConfig) error {
	handler, err := buildJobHandler(ctx, jobType, cfg)
	if err != nil {
		return fmt.Errorf("build %s handler: %w", jobType, err)
	}

	var cache core.CacheRepository
	if cfg.RedisClient != nil {
		cache = data.NewRedisCacheRepo(cfg.RedisClient)
	}

	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		DB:               cfg.DB,
		Logger:           cfg.Logger,
		Lease:            cfg.Worker.Lease,
		ExecutionTimeout: cfg.Worker.ExecutionTimeout,
		Concurrency:      cfg.Worker.Concurrency,
		JobType:          jobType,
		Handlers:         []core.JobHandler{handler},
		Cache:            cache,
		ResultCacheTTL:   cfg.ResultCacheTTL,
		Metrics:          cfg.Metrics,
		FailureNotifier:  cfg.FailureNotifier,
	})
	if err != nil {
		return fmt.Errorf("create %s runner: %w", jobType, err)
	}

	if runErr := runner.Run(ctx); runErr != nil {
		return fmt.Errorf("run %s runner: %w", jobType, runErr)
	}
	return nil
}

// buildJobHandler wires the collaborator stack for one job type.
func buildJobHandler(ctx context.Context, jobType model.JobType, cfg WorkerRuntimeConfig) (core.JobHandler, error) {
	switch jobType {
	case model.JobTypeAnalyze:
		fetcher := analyzer.NewFetcher(cfg.Collaborators.Fetcher, cfg.Logger)
		return analyzer.NewHandler(analyzer.NewAnalyzer(fetcher, cfg.Logger), cfg.Logger), nil

	case model.JobTypeImprove:
		rewriter, err := improver.NewGeminiRewriter(ctx, cfg.Collaborators.Gemini, cfg.Logger)
		if err != nil {
			return nil, err
		}
		return improver.NewHandler(improver.NewImprover(rewriter, cfg.Logger), cfg.Logger), nil

	case model.JobTypeGenerate:
		documents := data.NewDocumentRepo(cfg.DB, nil)
		gen, err := generator.NewGenerator(documents, cfg.Collaborators.Generator, cfg.Logger)
		if err != nil {
			return nil, err
		}
		return generator.NewHandler(gen, cfg.Logger), nil
	}
	return nil, fmt.Errorf("no handler available for job type %q", jobType)
}

// ReaperRuntimeConfig contains configuration for the reaper.
type ReaperRuntimeConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperRuntimeConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
