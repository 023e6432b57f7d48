package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// Document repository sentinels.
	ErrDocumentNotFound = errors.New("document not found")

	// Cache repository sentinels.
	ErrCacheNotConfigured = errors.New("cache repository not configured")
	ErrJobIDRequired      = errors.New("job_id is required")
)
