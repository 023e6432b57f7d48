package generator

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/craftcv/craftcv-api/internal/errors"

	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// Handler runs generate jobs through a ResumeGenerator.
type Handler struct {
	generator core.ResumeGenerator
	logger    *slog.Logger
}

// NewHandler constructs the generate job handler.
func NewHandler(generator core.ResumeGenerator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{generator: generator, logger: logger}
}

// Type identifies the job type this handler executes.
func (h *Handler) Type() model.JobType {
	return model.JobTypeGenerate
}

// Execute decodes the enqueued payload and returns the stored document
// reference as the job result.
func (h *Handler) Execute(ctx context.Context, job *model.Job) (json.RawMessage, error) {
	var payload model.GeneratePayload
	if err := json.Unmarshal(job.InputPayload, &payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "decode generate payload")
	}
	if err := payload.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "validate generate payload")
	}

	ref, err := h.generator.Generate(ctx, job.ID, payload)
	if err != nil {
		return nil, err
	}

	result, err := json.Marshal(ref)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode file reference")
	}
	return result, nil
}
