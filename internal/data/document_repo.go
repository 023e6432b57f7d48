package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/craftcv/craftcv-api/internal/errors"

	"github.com/craftcv/craftcv-api/internal/data/pgxutil"
	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// DocumentRepo provides database operations for generated resume documents.
type DocumentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewDocumentRepo creates a new DocumentRepo instance.
func NewDocumentRepo(db *sql.DB, tp TimeProvider) *DocumentRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &DocumentRepo{
		DB:           db,
		timeProvider: tp,
	}
}

const documentColumns = `
  id,
  job_id,
  template_id,
  file_name,
  content_type,
  data,
  file_size,
  created_at,
  expires_at
`

// Create stores a generated document and returns the persisted row.
func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if doc == nil {
		return nil, errors.New("document is required")
	}
	if len(doc.Data) == 0 {
		return nil, errors.New("document data is required")
	}

	var created *model.Document
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, `
				INSERT INTO documents(id, job_id, template_id, file_name, content_type, data, file_size, created_at, expires_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
				RETURNING `+documentColumns,
				doc.ID,
				doc.JobID,
				doc.TemplateID,
				doc.FileName,
				doc.ContentType,
				doc.Data,
				len(doc.Data),
				doc.CreatedAt.UTC(),
				doc.ExpiresAt,
			)
			if qerr != nil {
				return qerr
			}
			defer rows.Close()

			d, cerr := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Document])
			if cerr != nil {
				return cerr
			}
			created = d
			return nil
		},
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return created, nil
}

// GetByID retrieves a document by its ID, including the stored bytes.
// Expired documents are reported as not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc *model.Document
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+documentColumns+`
			FROM documents
			WHERE id = $1
		`, id)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		d, cerr := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Document])
		if cerr != nil {
			return cerr
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	if doc.Expired(r.timeProvider.Now()) {
		return nil, apperrors.NotFound("Document")
	}
	return doc, nil
}

// ListByJobID returns document metadata for a job without the stored bytes.
func (r *DocumentRepo) ListByJobID(ctx context.Context, jobID string) ([]*model.Document, error) {
	var docs []*model.Document
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT id, job_id, template_id, file_name, content_type, ''::bytea AS data, file_size, created_at, expires_at
			FROM documents
			WHERE job_id = $1
			ORDER BY created_at DESC
		`, jobID)
		if qerr != nil {
			return fmt.Errorf("query documents by job: %w", qerr)
		}
		defer rows.Close()

		vals, cerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Document])
		if cerr != nil {
			return fmt.Errorf("collect documents: %w", cerr)
		}
		docs = vals
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return docs, nil
}
