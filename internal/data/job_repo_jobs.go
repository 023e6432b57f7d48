package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/data/pgxutil"
	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// insertJobParams groups resolved parameters for inserting a job within a transaction.
type insertJobParams struct {
	ID         string
	Type       model.JobType
	Payload    []byte
	MaxRetries int
}

const (
	defaultRetryDelaySeconds = 30
	// maxBackoffExponent caps the exponential retry backoff at base * 2^6.
	maxBackoffExponent = 6
	// defaultMaxRetries applies when the caller does not request a retry budget.
	defaultMaxRetries = 3
)

func (r *JobRepo) retryDelay() int {
	if r.cfg.RetryDelaySeconds > 0 {
		return r.cfg.RetryDelaySeconds
	}
	return defaultRetryDelaySeconds
}

// SQL used by ReserveNext to atomically claim the oldest runnable job.
const reserveNextUpdateSQL = `
  WITH cte AS (
    SELECT id FROM jobs
    WHERE job_type = $1 AND status = 'queued' AND scheduled_at <= $2
    ORDER BY scheduled_at ASC, enqueued_at ASC, id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    status = 'in_progress',
    started_at = COALESCE(j.started_at, $3),
    lease_expires_at = $4,
    updated_at = $5
  FROM cte
  WHERE j.id = cte.id
  RETURNING j.id, j.job_type, j.status, j.input_payload, j.result_payload, j.error_kind, j.error_message, j.enqueued_at, j.scheduled_at, j.started_at, j.completed_at, j.retry_count, j.max_retries, j.lease_expires_at, j.updated_at`

// Create enqueues a new job. When the request carries a job id that already
// exists, the stored job is returned unchanged and created is false.
func (r *JobRepo) Create(
	ctx context.Context,
	req *model.SubmitJobRequest,
) (*model.Job, bool, error) {
	if req == nil {
		return nil, false, errors.New("submit job request is required")
	}

	if validateErr := req.Validate(); validateErr != nil {
		return nil, false, validateErr
	}

	params := r.prepareJobData(req)

	var (
		job     *model.Job
		created bool
	)
	if txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var insertErr error
			job, created, insertErr = r.insertJobInTx(ctx, tx, params)
			return insertErr
		},
	}); txErr != nil {
		return nil, false, txErr
	}

	return job, created, nil
}

// prepareJobData resolves the job id and retry budget for an insert.
func (r *JobRepo) prepareJobData(req *model.SubmitJobRequest) *insertJobParams {
	id := uuid.NewString()
	if req.JobID != nil && *req.JobID != "" {
		id = *req.JobID
	}

	maxRetries := defaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	return &insertJobParams{
		ID:         id,
		Type:       req.Type,
		Payload:    append([]byte(nil), req.Payload...),
		MaxRetries: maxRetries,
	}
}

// insertJobInTx inserts a job within a pgx.Tx. Duplicate ids hit the
// ON CONFLICT arm, and the stored row is loaded instead.
func (r *JobRepo) insertJobInTx(ctx context.Context, tx pgx.Tx, params *insertJobParams) (*model.Job, bool, error) {
	if params == nil {
		return nil, false, errors.New("insert job params are required")
	}

	currentTime := r.timeProvider.Now().UTC()
	rows, err := tx.Query(ctx, `
      INSERT INTO jobs(id, job_type, status, input_payload, enqueued_at, scheduled_at, max_retries, updated_at)
      VALUES ($1,$2,'queued',$3,$4,$4,$5,$4)
      ON CONFLICT (id) DO NOTHING
      RETURNING `+jobColumns,
		params.ID,
		params.Type,
		params.Payload,
		currentTime,
		params.MaxRetries,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert job: %w", err)
	}
	job, collectErr := collectJobFromRows(rows)
	rows.Close()

	if errors.Is(collectErr, pgx.ErrNoRows) {
		existing, loadErr := loadJobInTx(ctx, tx, params.ID)
		if loadErr != nil {
			return nil, false, fmt.Errorf("load existing job: %w", loadErr)
		}
		return existing, false, nil
	}
	if collectErr != nil {
		return nil, false, fmt.Errorf("collect job: %w", collectErr)
	}

	channel := "job_ready_" + string(params.Type)
	if _, execErr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, channel, job.ID); execErr != nil {
		return nil, false, fmt.Errorf("send job notification: %w", execErr)
	}

	return job, true, nil
}

func loadJobInTx(ctx context.Context, tx pgx.Tx, id string) (*model.Job, error) {
	rows, err := tx.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobFromRows(rows)
}

// collectJobFromRows collects a single job from pgx rows.
func collectJobFromRows(rows pgx.Rows) (*model.Job, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return job, nil
}

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	payload, result                        []byte
	errorKind, errorMessage                sql.NullString
	startedAt, completedAt, leaseExpiresAt sql.NullTime
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.Job) error {
	return scanner.Scan(
		&job.ID,
		&job.Type,
		&job.Status,
		&d.payload,
		&d.result,
		&d.errorKind,
		&d.errorMessage,
		&job.EnqueuedAt,
		&job.ScheduledAt,
		&d.startedAt,
		&d.completedAt,
		&job.RetryCount,
		&job.MaxRetries,
		&d.leaseExpiresAt,
		&job.UpdatedAt,
	)
}

func (d *jobRowData) apply(job *model.Job) {
	job.InputPayload = cloneJSON(d.payload)
	job.ResultPayload = cloneNullableJSON(d.result)
	job.ErrorKind = cloneNullableString(d.errorKind)
	job.ErrorMessage = cloneNullableString(d.errorMessage)
	job.StartedAt = cloneNullableTime(d.startedAt)
	job.CompletedAt = cloneNullableTime(d.completedAt)
	job.LeaseExpiresAt = cloneNullableTime(d.leaseExpiresAt)
}

func scanJobFromRow(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

func cloneJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// Advisory lock namespace for requeueExpired to avoid cross-job-type contention.
const advisoryLockRequeueMajor int64 = 1001

func advisoryLockRequeueMinor(jobType model.JobType) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jobType))
	hashValue := h.Sum32()
	maxInt32 := uint32(math.MaxInt32)
	if hashValue > maxInt32 {
		hashValue &= maxInt32
	}
	return int64(hashValue)
}

// requeueExpired returns lease-expired jobs of the given type to the queue and
// reports how many were requeued.
func (r *JobRepo) requeueExpired(ctx context.Context, jobType model.JobType) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			minorKey := advisoryLockRequeueMinor(jobType)
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)", advisoryLockRequeueMajor, minorKey).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			res, err := tx.ExecContext(ctx, `
          UPDATE jobs
          SET status = 'queued', lease_expires_at = NULL
          WHERE job_type = $1 AND status = 'in_progress'
            AND lease_expires_at IS NOT NULL
            AND lease_expires_at < $2
        `, jobType, currentTime.UTC())
			if err != nil {
				return fmt.Errorf("requeue expired: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// ReserveNext claims the next runnable job of the given type. Expired leases of
// the same type are requeued first so crashed workers never strand a job.
func (r *JobRepo) ReserveNext(
	ctx context.Context,
	jobType model.JobType,
	leaseSeconds int,
) (*model.Job, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}

	if _, err := r.requeueExpired(ctx, jobType); err != nil {
		return nil, fmt.Errorf("requeue expired jobs: %w", err)
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
			ReadOnly:  false,
		},
		Fn: func(tx pgx.Tx) error {
			currentTime := r.timeProvider.Now()
			leaseExpiresAt := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

			rows, qerr := tx.Query(
				ctx,
				reserveNextUpdateSQL,
				jobType,
				currentTime.UTC(),
				currentTime.UTC(),
				leaseExpiresAt.UTC(),
				currentTime.UTC(),
			)
			if qerr != nil {
				return fmt.Errorf("reserve job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("reserve job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, err
	}
	return job, nil
}

// Heartbeat refreshes the lease on an in-progress job.
func (r *JobRepo) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error) {
	if leaseSeconds <= 0 {
		return false, errors.New("leaseSeconds must be positive")
	}

	currentTime := r.timeProvider.Now().UTC()
	leaseExpiration := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

	query := `
		UPDATE jobs
		SET lease_expires_at = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'in_progress'
	`

	res, err := r.DB.ExecContext(ctx, query, jobID, leaseExpiration, currentTime)
	if err != nil {
		return false, fmt.Errorf("heartbeat job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("heartbeat rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return false, nil
	}

	return true, nil
}

// Complete marks an in-progress job as complete and stores its result payload.
// Returns false when the job is no longer in progress, which happens when the
// lease expired and the sweeper or another worker already moved it on.
func (r *JobRepo) Complete(ctx context.Context, id string, result json.RawMessage) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	if len(result) == 0 {
		result = json.RawMessage(`{}`)
	}

	query := `
		UPDATE jobs
		SET status = 'complete',
		    result_payload = $2,
		    completed_at = $3,
		    updated_at = $3,
		    lease_expires_at = NULL,
		    error_kind = NULL,
		    error_message = NULL
		WHERE id = $1 AND status = 'in_progress'
	`

	res, err := r.DB.ExecContext(ctx, query, id, []byte(result), currentTime)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Fail records a job failure. Retryable failures with budget left go back to
// the queue with an exponential backoff on scheduled_at; everything else lands
// in failed with the error kind and message stored on the row. The retry
// counter advances only on retryable failures, so a job failed permanently on
// its first attempt reports zero retries.
func (r *JobRepo) Fail(ctx context.Context, id string, params core.FailJobParams) (model.JobStatus, bool, error) {
	currentTime := r.timeProvider.Now()

	query := `
      UPDATE jobs
      SET
        retry_count = CASE WHEN $2 THEN retry_count + 1 ELSE retry_count END,
        status = CASE WHEN $2 AND retry_count + 1 <= max_retries THEN 'queued' ELSE 'failed' END,
        error_kind = CASE WHEN $2 AND retry_count + 1 <= max_retries THEN NULL ELSE $3 END,
        error_message = CASE WHEN $2 AND retry_count + 1 <= max_retries THEN NULL ELSE $4 END,
        completed_at = CASE WHEN $2 AND retry_count + 1 <= max_retries THEN NULL ELSE $5::timestamptz END,
        scheduled_at = CASE WHEN $2 AND retry_count + 1 <= max_retries
                            THEN $5::timestamptz + make_interval(secs => $6 * power(2, LEAST(retry_count, $7)))
                            ELSE scheduled_at END,
        lease_expires_at = NULL,
        updated_at = $5
      WHERE id = $1 AND status = 'in_progress'
      RETURNING status, job_type
    `

	var (
		status  model.JobStatus
		jobType model.JobType
	)
	err := r.DB.QueryRowContext(ctx, query,
		id,
		params.Retryable,
		params.Kind,
		params.Message,
		currentTime.UTC(),
		r.retryDelay(),
		maxBackoffExponent,
	).Scan(&status, &jobType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fail job: %w", err)
	}

	if status == model.JobStatusQueued {
		channel := "job_ready_" + string(jobType)
		if _, notifyErr := r.DB.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, channel, id); notifyErr != nil && r.logger != nil {
			r.logger.WarnContext(ctx, "retry notification failed",
				"job_id", id,
				"job_type", jobType,
				"error", notifyErr,
			)
		}
	}

	return status, true, nil
}

// Cancel moves a queued job straight to failed with a cancellation error.
// Jobs that already left the queue cannot be cancelled.
func (r *JobRepo) Cancel(ctx context.Context, id string) (*model.Job, error) {
	currentTime := r.timeProvider.Now().UTC()

	rows := func(tx pgx.Tx) (pgx.Rows, error) {
		return tx.Query(ctx, `
			UPDATE jobs
			SET status = 'failed',
			    error_kind = $2,
			    error_message = 'cancelled by caller',
			    completed_at = $3,
			    updated_at = $3,
			    lease_expires_at = NULL
			WHERE id = $1 AND status = 'queued'
			RETURNING `+jobColumns,
			id, model.ErrorKindCanceled, currentTime)
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rs, qerr := rows(tx)
			if qerr != nil {
				return fmt.Errorf("cancel job: %w", qerr)
			}
			defer rs.Close()

			j, cerr := collectJobFromRows(rs)
			if cerr != nil {
				return cerr
			}
			job = j
			return nil
		},
	})
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrJobNotCancelable
}

// Stats returns per-status counts for one job type.
func (r *JobRepo) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'queued')      AS queued,
    count(*) FILTER (WHERE status = 'in_progress') AS in_progress,
    count(*) FILTER (WHERE status = 'complete')    AS complete,
    count(*) FILTER (WHERE status = 'failed')      AS failed
  FROM jobs
  WHERE job_type = $1
  `, jobType).Scan(
		&s.Queued,
		&s.InProgress,
		&s.Complete,
		&s.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return &s, nil
}

// StatsByType returns per-status counts grouped by job type in one query.
func (r *JobRepo) StatsByType(ctx context.Context) (map[model.JobType]model.JobStats, error) {
	res := make(map[model.JobType]model.JobStats)
	rows, err := r.DB.QueryContext(ctx, `
  SELECT
    job_type,
    count(*) FILTER (WHERE status = 'queued')      AS queued,
    count(*) FILTER (WHERE status = 'in_progress') AS in_progress,
    count(*) FILTER (WHERE status = 'complete')    AS complete,
    count(*) FILTER (WHERE status = 'failed')      AS failed
  FROM jobs
  GROUP BY job_type
  `)
	if err != nil {
		return nil, fmt.Errorf("get queue stats: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			jobType model.JobType
			s       model.JobStats
		)
		if scanErr := rows.Scan(&jobType, &s.Queued, &s.InProgress, &s.Complete, &s.Failed); scanErr != nil {
			return nil, fmt.Errorf("scan queue stats: %w", scanErr)
		}
		res[jobType] = s
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("queue stats rows: %w", rowsErr)
	}
	return res, nil
}

// WaitForNotification waits for a PostgreSQL notification indicating new jobs are available.
func (r *JobRepo) WaitForNotification(ctx context.Context, jobType model.JobType) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	channel := "job_ready_" + string(jobType)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", channel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}
