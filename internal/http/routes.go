package httpx

import (
	"log/slog"
	"net/http"

	"github.com/craftcv/craftcv-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs      *service.JobService
	Templates *service.TemplateService
	Documents *service.DocumentService

	// DB and Redis feed the health endpoint; either may be nil in tests.
	DB    Pinger
	Redis Pinger

	// APIKey guards every /api route when non-empty.
	APIKey string

	// CompressionEnabled turns on gzip for JSON responses.
	CompressionEnabled bool

	// CompressionLevel is the gzip level for responses (0 falls back to 6).
	CompressionLevel int

	Logger *slog.Logger
}

const defaultCompressionLevel = 6

// NewRouter creates and configures the HTTP router with the full middleware
// chain: recovery, request id, logging, gzip, and API key auth on /api.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	templateHandlers := &TemplateHandlers{Svc: services.Templates}
	documentHandlers := &DocumentHandlers{Svc: services.Documents}
	healthHandlers := &HealthHandlers{DB: services.DB, Redis: services.Redis}

	auth := APIKeyAuth(services.APIKey)
	registerJobRoutes(mux, jobHandlers, auth)
	registerCatalogRoutes(mux, templateHandlers, documentHandlers, auth)

	// Health stays unauthenticated for load balancer probes.
	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("HEAD /health", healthHandlers.Health)

	var handler http.Handler = mux
	if services.CompressionEnabled {
		level := services.CompressionLevel
		if level == 0 {
			level = defaultCompressionLevel
		}
		handler = Compression(CompressionConfig{Level: level, Logger: logger})(handler)
	}
	handler = Logging(logger)(handler)
	handler = RequestID()(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, auth func(http.Handler) http.Handler) {
	mux.Handle("POST /api/jobs/{job_type}", auth(http.HandlerFunc(h.Submit)))
	mux.Handle("GET /api/jobs", auth(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/jobs/stats", auth(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /api/jobs/{job_id}/status", auth(http.HandlerFunc(h.GetStatus)))
	mux.Handle("GET /api/jobs/{job_id}/result", auth(http.HandlerFunc(h.GetResult)))
	mux.Handle("DELETE /api/jobs/{job_id}", auth(http.HandlerFunc(h.Cancel)))
}

func registerCatalogRoutes(
	mux *http.ServeMux,
	t *TemplateHandlers,
	d *DocumentHandlers,
	auth func(http.Handler) http.Handler,
) {
	mux.Handle("GET /api/templates", auth(http.HandlerFunc(t.List)))
	mux.Handle("GET /api/templates/{template_id}", auth(http.HandlerFunc(t.Get)))
	mux.Handle("GET /api/documents/{document_id}", auth(http.HandlerFunc(d.Download)))
	mux.Handle("GET /api/jobs/{job_id}/documents", auth(http.HandlerFunc(d.ListForJob)))
}
