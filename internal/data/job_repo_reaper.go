package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/data/pgxutil"
	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// Advisory lock namespace for reaper operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 1000 is reserved for craftcv reaper operations.
const (
	advisoryLockReaperMajor      = 1000
	advisoryLockReaperFailStale  = 1 // minor key for FailStaleQueuedJobs
	advisoryLockReaperDeleteJobs = 2 // minor key for DeleteOldJobs
	advisoryLockReaperDeleteDocs = 3 // minor key for DeleteExpiredDocuments
	advisoryLockReaperAbandoned  = 4 // minor key for RecoverAbandonedJobs
)

// FailStaleQueuedJobs fails queued jobs that have sat in the queue longer than
// maxAge without ever being claimed. Processes up to batchSize jobs per call to
// prevent long locks and I/O spikes. Uses advisory locks so concurrent reaper
// instances do not conflict. Returns the number of jobs marked as failed.
func (r *JobRepo) FailStaleQueuedJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperFailStale).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			cutoffTime := currentTime.Add(-maxAge)

			res, err := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = 'failed',
					error_kind = $1,
					error_message = 'job expired before being claimed',
					completed_at = $2,
					updated_at = $2
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status = 'queued'
					  AND enqueued_at < $3
					ORDER BY enqueued_at
					LIMIT $4
				)
			`, model.ErrorKindStale, currentTime.UTC(), cutoffTime.UTC(), batchSize)
			if err != nil {
				return fmt.Errorf("fail stale queued jobs: %w", err)
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

// RecoverAbandonedJobs recovers in_progress jobs whose lease expired, covering
// the case where no worker of a type is alive to requeue them on claim. Jobs
// with retry budget left go back to queued; jobs that exhausted it are failed.
// Processes up to batchSize jobs per statement and uses advisory locks so
// concurrent reaper instances do not conflict. Returns the total number of
// jobs recovered.
func (r *JobRepo) RecoverAbandonedJobs(ctx context.Context, batchSize int) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperAbandoned).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now().UTC()

			requeued, err := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = 'queued',
					lease_expires_at = NULL,
					updated_at = $1
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status = 'in_progress'
					  AND lease_expires_at IS NOT NULL
					  AND lease_expires_at < $1
					  AND retry_count < max_retries
					ORDER BY lease_expires_at
					LIMIT $2
				)
			`, currentTime, batchSize)
			if err != nil {
				return fmt.Errorf("requeue abandoned jobs: %w", err)
			}

			failed, err := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = 'failed',
					error_kind = $1,
					error_message = 'worker lease expired with no retries left',
					lease_expires_at = NULL,
					completed_at = $2,
					updated_at = $2
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status = 'in_progress'
					  AND lease_expires_at IS NOT NULL
					  AND lease_expires_at < $2
					  AND retry_count >= max_retries
					ORDER BY lease_expires_at
					LIMIT $3
				)
			`, model.ErrorKindStale, currentTime, batchSize)
			if err != nil {
				return fmt.Errorf("fail abandoned jobs: %w", err)
			}

			for _, res := range []sql.Result{requeued, failed} {
				ra, raErr := res.RowsAffected()
				if raErr != nil {
					return fmt.Errorf("rows affected: %w", raErr)
				}
				rowsAffected += ra
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// DeleteOldJobs deletes terminal jobs with the given status older than maxAge.
// Processes up to batchSize jobs per call to prevent long locks and I/O spikes.
// Uses advisory locks so concurrent reaper instances do not conflict.
// Returns the number of jobs deleted.
func (r *JobRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Valid() {
		return 0, fmt.Errorf("invalid job status: %s", params.Status)
	}
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("job status %s is not terminal", params.Status)
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperDeleteJobs).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			cutoffTime := currentTime.Add(-params.MaxAge)

			res, err := tx.ExecContext(ctx, `
				DELETE FROM jobs
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status = $1
					  AND (completed_at < $2 OR (completed_at IS NULL AND updated_at < $2))
					ORDER BY COALESCE(completed_at, updated_at)
					LIMIT $3
				)
			`, params.Status, cutoffTime.UTC(), params.BatchSize)
			if err != nil {
				return fmt.Errorf("delete old jobs: %w", err)
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

// DeleteExpiredDocuments deletes generated documents past their expiry.
// Processes up to batchSize rows per call to prevent long locks and I/O spikes.
// Uses advisory locks so concurrent reaper instances do not conflict.
func (r *JobRepo) DeleteExpiredDocuments(ctx context.Context, params core.DeleteExpiredDocumentsParams) (int64, error) {
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperDeleteDocs).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now().UTC()

			res, err := tx.ExecContext(ctx, `
				DELETE FROM documents
				USING (
					SELECT ctid
					FROM documents
					WHERE expires_at IS NOT NULL
					  AND expires_at < $1
					ORDER BY expires_at
					LIMIT $2
				) sub
				WHERE documents.ctid = sub.ctid
			`, currentTime, params.BatchSize)
			if err != nil {
				return fmt.Errorf("delete expired documents: %w", err)
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
