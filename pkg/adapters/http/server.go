// Package http exposes registered tools over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/toolgate/pkg/gate"
	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes bounds the size of a call request body.
const DefaultMaxBodyBytes = 1 << 20

// Executor is the part of toolgate.Server the handler needs.
type Executor interface {
	Name() string
	Tools() []*registry.ExecutionContext
	Execute(ctx context.Context, tool string, args map[string]any) (*response.Response, error)
}

// StatsProvider is implemented by executors that expose gate counters.
type StatsProvider interface {
	Stats() map[string]gate.Stats
}

// ToolInfo describes one tool in GET /tools.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Actions     []string       `json:"actions"`
	InputSchema map[string]any `json:"inputSchema"`
	ReadOnly    bool           `json:"readOnly"`
	Destructive bool           `json:"destructive"`
	Idempotent  bool           `json:"idempotent"`
}

// Server serves the HTTP API.
type Server struct {
	executor     Executor
	version      string
	gatherer     prometheus.Gatherer
	maxBodyBytes int64
	logger       *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(v)
	}
}

// WithMetrics serves the gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for executor.
func NewHandler(executor Executor, opts ...Option) http.Handler {
	s := &Server{
		executor:     executor,
		version:      "unknown",
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/tools", s.ListTools)
	r.Post("/tools/{tool}", s.CallTool)
	if _, ok := executor.(StatsProvider); ok {
		r.Get("/stats", s.GetStats)
	}
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     s.executor.Name(),
		"version": s.version,
	})
}

// ListTools handles the GET /tools request.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	ecs := s.executor.Tools()
	out := make([]ToolInfo, 0, len(ecs))
	for _, ec := range ecs {
		flags := ec.Flags()
		out = append(out, ToolInfo{
			Name:        ec.Tool,
			Description: ec.Summary(),
			Actions:     ec.Keys(),
			InputSchema: ec.InputSchema(),
			ReadOnly:    flags.ReadOnly,
			Destructive: flags.Destructive,
			Idempotent:  flags.Idempotent,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// CallTool handles the POST /tools/{tool} request. Tool errors are part of
// the response body and still answer 200.
func (s *Server) CallTool(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")

	args := map[string]any{}
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&args); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("CallTool: Invalid request body", "tool", tool, "err", err)
		return
	}
	if args == nil {
		args = map[string]any{}
	}

	resp, err := s.executor.Execute(r.Context(), tool, args)
	if err != nil {
		s.logger.Error("CallTool failed", "tool", tool, "err", err)
		if resp == nil {
			http.Error(w, "Call failed", http.StatusInternalServerError)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetStats handles the GET /stats request.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.executor.(StatsProvider).Stats())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
