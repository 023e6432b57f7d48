package httpx

import (
	"context"
	"net/http"
	"time"
)

// Pinger is the narrow dependency-health surface the health endpoint needs.
// Both pgxpool.Pool and go-redis clients satisfy it via small adapters in
// bootstrap.
type Pinger interface {
	Ping(ctx context.Context) error
}

// healthCheckTimeout bounds each dependency probe so a wedged dependency
// cannot hang the health endpoint.
const healthCheckTimeout = 2 * time.Second

// HealthHandlers reports service and dependency health. The endpoint is
// unauthenticated so load balancers can probe it.
type HealthHandlers struct {
	DB    Pinger
	Redis Pinger
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /health. Degraded dependencies flip the status to
// "degraded" with a 503 so orchestrators stop routing traffic here.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthStatus{
		Status: "ok",
		Checks: map[string]string{},
	}

	code := http.StatusOK
	for name, dep := range map[string]Pinger{"postgres": h.DB, "redis": h.Redis} {
		if dep == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := dep.Ping(ctx)
		cancel()
		if err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = "unreachable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, resp)
}
