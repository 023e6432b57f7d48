package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/craftcv/craftcv-api/internal/data"
	"github.com/craftcv/craftcv-api/internal/domain/model"
	"github.com/craftcv/craftcv-api/internal/service"
)

const defaultCommandTimeout = 2 * time.Minute

type jobsListOptions struct {
	Status string
	Type   string
	Limit  int
	Offset int
}

type jobCancelOptions struct {
	JobID string
	Yes   bool
}

type jobResultOptions struct {
	JobID string
}

type clearJobCacheOptions struct {
	JobID  string
	All    bool
	DryRun bool
	Yes    bool
}

func parseJobsListFlags(args []string) (jobsListOptions, error) {
	fs := flag.NewFlagSet("jobs-list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts jobsListOptions
	fs.StringVar(&opts.Status, "status", "", "Filter by status (queued, in_progress, complete, failed)")
	fs.StringVar(&opts.Type, "type", "", "Filter by job type (analyze, improve, generate)")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of jobs to print")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of jobs to skip")

	if err := fs.Parse(args); err != nil {
		return jobsListOptions{}, err
	}
	if opts.Limit <= 0 {
		return jobsListOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return jobsListOptions{}, errors.New("--offset must be >= 0")
	}
	if opts.Status != "" && !model.JobStatus(opts.Status).Valid() {
		return jobsListOptions{}, fmt.Errorf("invalid status %q", opts.Status)
	}
	if opts.Type != "" && !model.JobType(opts.Type).Valid() {
		return jobsListOptions{}, fmt.Errorf("invalid job type %q", opts.Type)
	}
	return opts, nil
}

func runJobsList(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobsListFlags(args)
	if err != nil {
		return err
	}

	return withJobService(cmdCtx, func(ctx context.Context, jobs *service.JobService) error {
		listOpts := &model.JobListOptions{
			Limit:  opts.Limit,
			Offset: opts.Offset,
		}
		if opts.Status != "" {
			status := model.JobStatus(opts.Status)
			listOpts.Status = &status
		}
		if opts.Type != "" {
			jt := model.JobType(opts.Type)
			listOpts.Type = &jt
		}

		rows, listErr := jobs.List(ctx, listOpts)
		if listErr != nil {
			return fmt.Errorf("list jobs: %w", listErr)
		}
		return printJobRows(os.Stdout, rows)
	})
}

func printJobRows(w *os.File, rows []*model.Job) error {
	if len(rows) == 0 {
		return writeln(w, "(no jobs found)")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "JOB ID\tTYPE\tSTATUS\tRETRIES\tENQUEUED\tERROR"); err != nil {
		return fmt.Errorf("print jobs header: %w", err)
	}
	for _, job := range rows {
		errText := ""
		if job.ErrorKind != nil {
			errText = *job.ErrorKind
		}
		if err := writef(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			job.ID,
			job.Type,
			job.Status,
			job.RetryCount,
			job.MaxRetries,
			job.EnqueuedAt.Format(time.RFC3339),
			errText,
		); err != nil {
			return fmt.Errorf("print job row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush job rows: %w", err)
	}
	return writef(w, "\nTotal: %d\n", len(rows))
}

func runJobsStats(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("jobs-stats takes no arguments, got %v", args)
	}

	return withJobService(cmdCtx, func(ctx context.Context, jobs *service.JobService) error {
		stats, err := jobs.QueueStats(ctx)
		if err != nil {
			return fmt.Errorf("queue stats: %w", err)
		}
		return printQueueStats(os.Stdout, stats)
	})
}

func printQueueStats(w *os.File, stats *model.QueueStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "TYPE\tQUEUED\tIN PROGRESS\tCOMPLETE\tFAILED"); err != nil {
		return fmt.Errorf("print stats header: %w", err)
	}
	for _, jt := range model.AllJobTypes() {
		s := stats.ByType[jt]
		if err := writef(tw, "%s\t%d\t%d\t%d\t%d\n",
			jt, s.Queued, s.InProgress, s.Complete, s.Failed); err != nil {
			return fmt.Errorf("print stats row: %w", err)
		}
	}
	if err := writef(tw, "total\t%d\t%d\t%d\t%d\n",
		stats.Total.Queued,
		stats.Total.InProgress,
		stats.Total.Complete,
		stats.Total.Failed,
	); err != nil {
		return fmt.Errorf("print stats total: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush stats: %w", err)
	}
	return nil
}

func parseJobCancelFlags(args []string) (jobCancelOptions, error) {
	fs := flag.NewFlagSet("job-cancel", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts jobCancelOptions
	fs.StringVar(&opts.JobID, "job-id", "", "ID of the queued job to cancel")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return jobCancelOptions{}, err
	}
	if opts.JobID == "" {
		return jobCancelOptions{}, errors.New("--job-id is required")
	}
	return opts, nil
}

type jobCancelConfirmOptions struct {
	opts jobCancelOptions
}

func (c jobCancelConfirmOptions) IsDryRun() bool { return false }
func (c jobCancelConfirmOptions) IsYes() bool    { return c.opts.Yes }
func (c jobCancelConfirmOptions) GetWarning() string {
	return "The job will be marked failed with error kind \"canceled\"; this cannot be undone."
}
func (c jobCancelConfirmOptions) GetTarget() string {
	return fmt.Sprintf("job %q", c.opts.JobID)
}

func runJobCancel(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobCancelFlags(args)
	if err != nil {
		return err
	}
	if confirmErr := confirmAction(jobCancelConfirmOptions{opts}, "cancel job"); confirmErr != nil {
		return confirmErr
	}

	return withJobService(cmdCtx, func(ctx context.Context, jobs *service.JobService) error {
		job, cancelErr := jobs.Cancel(ctx, opts.JobID)
		if cancelErr != nil {
			return fmt.Errorf("cancel job %s: %w", opts.JobID, cancelErr)
		}
		cmdCtx.Logger.Info("job cancelled", "job_id", job.ID, "status", job.Status)
		return nil
	})
}

func parseJobResultFlags(args []string) (jobResultOptions, error) {
	fs := flag.NewFlagSet("job-result", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts jobResultOptions
	fs.StringVar(&opts.JobID, "job-id", "", "ID of the job to inspect")

	if err := fs.Parse(args); err != nil {
		return jobResultOptions{}, err
	}
	if opts.JobID == "" {
		return jobResultOptions{}, errors.New("--job-id is required")
	}
	return opts, nil
}

func runJobResult(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobResultFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, time.Minute)
	defer cancel()

	db, redisClient, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeInfra(db, redisClient); cerr != nil {
			cmdCtx.Logger.Warn("close infra failed", "error", cerr)
		}
	}()

	cacheKey := data.JobResultCacheKey(opts.JobID)
	if redisClient != nil {
		raw, getErr := redisClient.Get(ctx, cacheKey).Bytes()
		switch {
		case getErr == nil:
			ttl := renderCacheTTL(ctx, redisClient, cacheKey)
			if printErr := printJobResultPayload(opts.JobID, raw, "cache", ttl); printErr != nil {
				return printErr
			}
			return nil
		case errors.Is(getErr, redis.Nil):
			// fall through to the database
		default:
			return fmt.Errorf("redis get %s: %w", cacheKey, getErr)
		}
	}

	repo := data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})
	job, err := repo.GetByID(ctx, opts.JobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return writef(os.Stdout, "No job found with id %s\n", opts.JobID)
		}
		return fmt.Errorf("get job %s: %w", opts.JobID, err)
	}

	if !job.Status.Terminal() {
		return writef(os.Stdout, "Job %s is %s; no result yet\n", job.ID, job.Status)
	}
	if job.Status == model.JobStatusFailed {
		kind, msg := "", ""
		if job.ErrorKind != nil {
			kind = *job.ErrorKind
		}
		if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		return writef(os.Stdout, "Job %s failed [%s]: %s\n", job.ID, kind, msg)
	}
	return printJobResultPayload(opts.JobID, job.ResultPayload, "database", "")
}

func printJobResultPayload(jobID string, raw []byte, source, ttl string) error {
	if err := writef(os.Stdout, "Job ID:    %s\nSource:    %s\n", jobID, source); err != nil {
		return fmt.Errorf("print result header: %w", err)
	}
	if ttl != "" {
		if err := writef(os.Stdout, "TTL:       %s\n", ttl); err != nil {
			return fmt.Errorf("print result ttl: %w", err)
		}
	}
	if err := writef(os.Stdout, "\n%s\n", raw); err != nil {
		return fmt.Errorf("print result payload: %w", err)
	}
	return nil
}

func renderCacheTTL(ctx context.Context, client redis.UniversalClient, key string) string {
	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		return ""
	}
	switch {
	case ttl == -1*time.Second:
		return "no expiry"
	case ttl == -2*time.Second:
		return "key missing"
	default:
		return ttl.String()
	}
}

func parseClearJobCacheFlags(args []string) (clearJobCacheOptions, error) {
	fs := flag.NewFlagSet("clear-job-cache", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts clearJobCacheOptions
	fs.StringVar(&opts.JobID, "job-id", "", "Clear cache entries for a single job")
	fs.BoolVar(&opts.All, "all", false, "Clear every cached job status/result entry")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Report keys without deleting them")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return clearJobCacheOptions{}, err
	}
	if opts.All && opts.JobID != "" {
		return clearJobCacheOptions{}, errors.New("--all cannot be combined with --job-id")
	}
	if !opts.All && opts.JobID == "" {
		return clearJobCacheOptions{}, errors.New("--job-id is required unless --all is provided")
	}
	return opts, nil
}

type clearJobCacheConfirmOptions struct {
	opts clearJobCacheOptions
}

func (c clearJobCacheConfirmOptions) IsDryRun() bool { return c.opts.DryRun }
func (c clearJobCacheConfirmOptions) IsYes() bool    { return c.opts.Yes }
func (c clearJobCacheConfirmOptions) GetWarning() string {
	if c.opts.All {
		return "WARNING: this will remove every cached job status and result entry."
	}
	return ""
}

func (c clearJobCacheConfirmOptions) GetTarget() string {
	if c.opts.All {
		return "all cached jobs"
	}
	return fmt.Sprintf("job %q", c.opts.JobID)
}

func runClearJobCache(cmdCtx *commandContext, args []string) error {
	opts, err := parseClearJobCacheFlags(args)
	if err != nil {
		return err
	}
	if confirmErr := confirmAction(clearJobCacheConfirmOptions{opts}, "clear job cache entries"); confirmErr != nil {
		return confirmErr
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	_, redisClient, err := connectInfraWithOptions(&connectInfraOptions{
		Logger:    cmdCtx.Logger,
		Config:    &cmdCtx.Config,
		WantRedis: true,
	})
	if err != nil {
		return err
	}
	if redisClient == nil {
		return writeln(os.Stderr, "Redis client is not available")
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	keys, err := collectJobCacheKeys(ctx, redisClient, opts)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return writeln(os.Stdout, "No cached job entries found")
	}

	if opts.DryRun {
		return writef(os.Stdout, "Dry-run: would delete %d keys\n", len(keys))
	}

	deleted, err := redisClient.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	return writef(os.Stdout, "Deleted %d/%d keys\n", deleted, len(keys))
}

func collectJobCacheKeys(
	ctx context.Context,
	client redis.UniversalClient,
	opts clearJobCacheOptions,
) ([]string, error) {
	if !opts.All {
		return []string{
			data.JobStatusCacheKey(opts.JobID),
			data.JobResultCacheKey(opts.JobID),
		}, nil
	}

	var keys []string
	for _, pattern := range []string{data.JobStatusCacheKey("*"), data.JobResultCacheKey("*")} {
		iter := client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
	}
	return keys, nil
}

// withJobService connects the database and hands a wired JobService to f.
func withJobService(cmdCtx *commandContext, f func(context.Context, *service.JobService) error) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, _, err := connectInfraWithOptions(&connectInfraOptions{
		Logger: cmdCtx.Logger,
		Config: &cmdCtx.Config,
		WantDB: true,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	jobs := service.MustNewJobService(service.JobServiceOptions{
		Repo:         data.NewJobRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}),
		DefaultLease: 30 * time.Second,
		Logger:       cmdCtx.Logger,
	})
	defer jobs.StopAllListeners()

	return f(ctx, jobs)
}
