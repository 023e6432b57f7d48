package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/craftcv/craftcv-api/internal/service"
)

// DocumentHandlers serves generated resume artifacts for download.
type DocumentHandlers struct {
	Svc *service.DocumentService

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

func (h *DocumentHandlers) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

// Download handles GET /api/documents/{document_id}. Expired documents are
// indistinguishable from missing ones.
func (h *DocumentHandlers) Download(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Svc.GetByID(r.Context(), r.PathValue("document_id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	if doc.Expired(h.clock()) {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("document not found"),
		})
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		// Client went away mid-transfer; nothing to do.
		return
	}
}

// ListForJob handles GET /api/jobs/{job_id}/documents.
func (h *DocumentHandlers) ListForJob(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Svc.ListByJobID(r.Context(), r.PathValue("job_id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}
