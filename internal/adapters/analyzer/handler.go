package analyzer

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/craftcv/craftcv-api/internal/errors"

	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// Handler runs analyze jobs through a ResumeAnalyzer.
type Handler struct {
	analyzer core.ResumeAnalyzer
	logger   *slog.Logger
}

// NewHandler constructs the analyze job handler.
func NewHandler(analyzer core.ResumeAnalyzer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{analyzer: analyzer, logger: logger}
}

// Type identifies the job type this handler executes.
func (h *Handler) Type() model.JobType {
	return model.JobTypeAnalyze
}

// Execute decodes the enqueued payload, scores the resume, and returns the
// report as the job result. Payloads are validated at submission; a payload
// that fails to decode here is corrupt and fails the job permanently.
func (h *Handler) Execute(ctx context.Context, job *model.Job) (json.RawMessage, error) {
	var payload model.AnalyzePayload
	if err := json.Unmarshal(job.InputPayload, &payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "decode analyze payload")
	}
	if err := payload.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "validate analyze payload")
	}

	report, err := h.analyzer.Analyze(ctx, payload)
	if err != nil {
		return nil, err
	}

	result, err := json.Marshal(report)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode analysis report")
	}
	return result, nil
}
