package core

import (
	"context"
	"encoding/json"

	"github.com/craftcv/craftcv-api/internal/domain/model"
	"github.com/craftcv/craftcv-api/internal/domain/resume"
)

// JobHandler executes one job type. The returned payload is stored on the job
// row when execution succeeds. Errors decide the job's fate: transient errors
// requeue with backoff, anything else fails the job for good.
type JobHandler interface {
	Type() model.JobType
	Execute(ctx context.Context, job *model.Job) (json.RawMessage, error)
}

// ResumeAnalyzer scores a resume and produces the full analysis report.
type ResumeAnalyzer interface {
	Analyze(ctx context.Context, payload model.AnalyzePayload) (*resume.ScoreReport, error)
}

// ResumeImprover rewrites weak resume content for the requested focus areas.
type ResumeImprover interface {
	Improve(ctx context.Context, payload model.ImprovePayload) (*resume.ImprovementResult, error)
}

// ResumeGenerator renders resume content into a stored document.
type ResumeGenerator interface {
	Generate(ctx context.Context, jobID string, payload model.GeneratePayload) (*resume.FileReference, error)
}
