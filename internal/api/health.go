package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// readyCheckTimeout bounds each dependency probe so one hung dependency
// cannot stall the whole readiness response.
const readyCheckTimeout = 2 * time.Second

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// health reports process liveness for Docker/Kubernetes probes.
// Always returns 200: a running process is a live process, regardless
// of dependency state.
func health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessResponse is the /ready payload.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// readiness probes each named dependency with its own timeout and
// reports per-dependency results. Any failure degrades the service:
// the response is 503 with status "degraded" so load balancers stop
// routing traffic, while /health keeps the process from being killed.
func readiness(checks map[string]Pinger, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := readinessResponse{
			Status: "ready",
			Checks: make(map[string]string, len(checks)),
		}

		for name, dep := range checks {
			if dep == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			err := dep.Ping(ctx)
			cancel()

			if err != nil {
				logger.Warn("readiness check failed", "dependency", name, "error", err)
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ready" {
			status = http.StatusServiceUnavailable
		}
		WriteJSON(w, status, resp)
	})
}
