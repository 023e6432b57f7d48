package httpx

import (
	"net/http"

	"github.com/craftcv/craftcv-api/internal/service"
)

// TemplateHandlers serves the resume template catalog.
type TemplateHandlers struct {
	Svc *service.TemplateService
}

// List handles GET /api/templates.
func (h *TemplateHandlers) List(w http.ResponseWriter, _ *http.Request) {
	templates := h.Svc.List()
	WriteJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

// Get handles GET /api/templates/{template_id}.
func (h *TemplateHandlers) Get(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.Svc.Get(r.PathValue("template_id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tmpl)
}
