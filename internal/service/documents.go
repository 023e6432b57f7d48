package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// DocumentServiceOptions groups dependencies for DocumentService.
type DocumentServiceOptions struct {
	Repo   core.DocumentRepository // Required: document repository
	Logger *slog.Logger            // Optional: structured logger
}

// DocumentService serves generated resume documents for download.
type DocumentService struct {
	repo   core.DocumentRepository
	logger *slog.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(opts DocumentServiceOptions) (*DocumentService, error) {
	if opts.Repo == nil {
		return nil, errors.New("DocumentRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "document_service")
	}

	return &DocumentService{
		repo:   opts.Repo,
		logger: logger,
	}, nil
}

// MustNewDocumentService constructs a new DocumentService and panics on error.
func MustNewDocumentService(opts DocumentServiceOptions) *DocumentService {
	svc, err := NewDocumentService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create DocumentService: %v", err))
	}
	return svc
}

// GetByID returns a stored document with its bytes. Expired documents come
// back as not found.
func (s *DocumentService) GetByID(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// ListByJobID returns document metadata for a job.
func (s *DocumentService) ListByJobID(ctx context.Context, jobID string) ([]*model.Document, error) {
	docs, err := s.repo.ListByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list documents for job %s: %w", jobID, err)
	}
	return docs, nil
}
