package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexicon-id/putusan/internal/metrics"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger *slog.Logger
	Agent  Asker // Required

	// ReadyChecks maps dependency names to readiness probes
	// (e.g. "database", "vector_store").
	ReadyChecks map[string]Pinger

	Metrics  *metrics.Metrics     // Optional: nil disables request metrics
	Registry *prometheus.Registry // Optional: nil disables the /metrics endpoint

	APIKey       string   // Empty leaves the API open (logged at startup)
	AllowedHosts []string // Host header allow list; empty allows all
	CORSOrigins  []string // Allowed origins for CORS; "*" allows any
	RateLimit    int      // Requests per minute per IP (0 = default 60)
	TrustProxy   bool     // Trust X-Real-IP/X-Forwarded-For headers
	IsDev        bool     // Disables HSTS
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
//
// Health, readiness and metrics routes sit outside the security stack:
// orchestrator probes and scrapers carry no API key and must never be
// rate limited.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{
		agent:   cfg.Agent,
		metrics: cfg.Metrics,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chatbot/user_message", ch.send)

	rpm := cfg.RateLimit
	if rpm <= 0 {
		rpm = 60
	}
	rl := newRateLimiter(rpm)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → Metrics → TrustedHost → CORS → RateLimit → APIKey → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	// CORS must be before RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	if cfg.APIKey != "" {
		handler = apiKeyMiddleware(cfg.APIKey, logger)(handler)
	} else {
		logger.Warn("no API key configured, chat API is open without authentication")
	}
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = trustedHostMiddleware(cfg.AllowedHosts, logger)(handler)
	if cfg.Metrics != nil {
		handler = metricsMiddleware(cfg.Metrics)(handler)
	}
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux separates probes and metrics from the security stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.ReadyChecks, logger))
	if cfg.Registry != nil {
		topMux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
