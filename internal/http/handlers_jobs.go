// Package httpx provides HTTP handlers and utilities for the craftcv job API.
package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/craftcv/craftcv-api/internal/domain/model"
	"github.com/craftcv/craftcv-api/internal/service"
)

// maxSubmitBodyBytes bounds submission payloads. Resume text tops out well
// under this even for long careers.
const maxSubmitBodyBytes = 1 << 20

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc *service.JobService
}

// Submit handles POST /api/jobs/{job_type}. The body is the job payload;
// optional job_id and max_retries ride in query params so the payload stays
// opaque to the transport layer.
func (h *JobHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	jobType := model.JobType(r.PathValue("job_type"))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmitBodyBytes+1))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: err})
		return
	}
	if len(body) > maxSubmitBodyBytes {
		WriteError(w, ErrorParams{
			Code:    http.StatusRequestEntityTooLarge,
			ErrCode: "payload_too_large",
			Err:     errors.New("payload exceeds maximum size"),
		})
		return
	}

	req := &model.SubmitJobRequest{
		Type:    jobType,
		Payload: body,
	}
	if id := r.URL.Query().Get("job_id"); id != "" {
		req.JobID = &id
	}
	if mr := r.URL.Query().Get("max_retries"); mr != "" {
		n := parseIntQuery(r, "max_retries", -1)
		if n < 0 {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "validation",
				Err:     errors.New("max_retries must be a non-negative integer"),
			})
			return
		}
		req.MaxRetries = &n
	}

	resp, err := h.Svc.Submit(r.Context(), req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, resp)
}

// GetStatus handles GET /api/jobs/{job_id}/status.
func (h *JobHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.GetStatus(r.Context(), r.PathValue("job_id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetResult handles GET /api/jobs/{job_id}/result. Failed jobs return 200
// with the stored error payload; jobs not yet terminal return 409.
func (h *JobHandlers) GetResult(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.GetResult(r.Context(), r.PathValue("job_id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Cancel handles DELETE /api/jobs/{job_id}. Only queued jobs can be canceled;
// claimed or terminal jobs yield 409.
func (h *JobHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Cancel(r.Context(), r.PathValue("job_id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// Stats handles GET /api/jobs/stats.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.QueueStats(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// List handles GET /api/jobs with optional status/job_type filters and
// limit/offset pagination.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	const (
		defaultListLimit = 50
		maxListLimit     = 200
	)

	opts := &model.JobListOptions{}
	opts.Limit, opts.Offset = ParseLimitOffset(r, defaultListLimit, maxListLimit)

	if s := r.URL.Query().Get("status"); s != "" {
		status := model.JobStatus(s)
		if !status.Valid() {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "validation",
				Err:     errors.New("invalid status filter"),
			})
			return
		}
		opts.Status = &status
	}
	if t := r.URL.Query().Get("job_type"); t != "" {
		jobType := model.JobType(t)
		if !jobType.Valid() {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "validation",
				Err:     errors.New("invalid job_type filter"),
			})
			return
		}
		opts.Type = &jobType
	}

	jobs, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":   jobs,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
