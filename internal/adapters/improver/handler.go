package improver

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/craftcv/craftcv-api/internal/errors"

	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/domain/model"
)

// Handler runs improve jobs through a ResumeImprover.
type Handler struct {
	improver core.ResumeImprover
	logger   *slog.Logger
}

// NewHandler constructs the improve job handler.
func NewHandler(improver core.ResumeImprover, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{improver: improver, logger: logger}
}

// Type identifies the job type this handler executes.
func (h *Handler) Type() model.JobType {
	return model.JobTypeImprove
}

// Execute decodes the enqueued payload and returns the improvement set as the
// job result.
func (h *Handler) Execute(ctx context.Context, job *model.Job) (json.RawMessage, error) {
	var payload model.ImprovePayload
	if err := json.Unmarshal(job.InputPayload, &payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "decode improve payload")
	}
	if err := payload.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "validate improve payload")
	}

	improvements, err := h.improver.Improve(ctx, payload)
	if err != nil {
		return nil, err
	}

	result, err := json.Marshal(improvements)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode improvement result")
	}
	return result, nil
}
