// Package core provides the ports between the service layer and its collaborators in the craftcv job pipeline.
package core

import (
	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// JobType represents the type of job to be executed (re-exported from the model package).
// This is re-exported here for use in HTTP handlers to avoid direct coupling to the model package.
type JobType = model.JobType

// SubmitJobRequest represents a request to enqueue a job (re-exported from the model package).
// This is re-exported here for use in HTTP handlers to avoid direct coupling to the model package.
type SubmitJobRequest = model.SubmitJobRequest
