package toolgate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/toolgate/internal/logging"
	"github.com/aretw0/toolgate/pkg/dispatch"
	"github.com/aretw0/toolgate/pkg/gate"
	"github.com/aretw0/toolgate/pkg/observability"
	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
)

// Default limits applied to every tool unless overridden.
const (
	DefaultMaxActive       = 8
	DefaultMaxQueue        = 32
	DefaultMaxPayloadBytes = 64 * 1024
)

// Limits bound the load and output size of one tool.
type Limits struct {
	MaxActive       int
	MaxQueue        int
	MaxPayloadBytes int
}

// DefaultLimits returns the package defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxActive:       DefaultMaxActive,
		MaxQueue:        DefaultMaxQueue,
		MaxPayloadBytes: DefaultMaxPayloadBytes,
	}
}

// Server is the high-level entry point: a set of tools, each served by its
// own dispatcher and concurrency gate.
type Server struct {
	name     string
	limits   Limits
	perTool  map[string]Limits
	hooks    observability.Hooks
	logger   *slog.Logger
	rethrow  bool
	registry *registry.Registry

	mu          sync.RWMutex
	dispatchers map[string]*dispatch.Dispatcher
	gates       map[string]*gate.Gate
}

// Option defines a functional option for configuring the Server.
type Option func(*Server)

// WithName sets the server name announced to clients.
func WithName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// WithLimits sets the default limits for every tool.
func WithLimits(l Limits) Option {
	return func(s *Server) {
		s.limits = l
	}
}

// WithToolLimits overrides the limits of one tool.
func WithToolLimits(tool string, l Limits) Option {
	return func(s *Server) {
		s.perTool[tool] = l
	}
}

// WithHooks registers observability hooks on every dispatcher.
func WithHooks(h observability.Hooks) Option {
	return func(s *Server) {
		s.hooks = h
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRethrow makes Execute return handler faults as errors as well.
func WithRethrow(rethrow bool) Option {
	return func(s *Server) {
		s.rethrow = rethrow
	}
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		name:        "toolgate",
		limits:      DefaultLimits(),
		perTool:     make(map[string]Limits),
		logger:      logging.NewNop(),
		registry:    registry.NewRegistry(),
		dispatchers: make(map[string]*dispatch.Dispatcher),
		gates:       make(map[string]*gate.Gate),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the server name.
func (s *Server) Name() string { return s.name }

// Register compiles tool and starts serving it.
func (s *Server) Register(tool *registry.Tool) error {
	ec, err := s.registry.Register(tool)
	if err != nil {
		return err
	}

	limits, ok := s.perTool[ec.Tool]
	if !ok {
		limits = s.limits
	}
	g := gate.New(limits.MaxActive, limits.MaxQueue)
	d := dispatch.New(ec,
		dispatch.WithGate(g),
		dispatch.WithMaxPayloadBytes(limits.MaxPayloadBytes),
		dispatch.WithHooks(s.hooks),
		dispatch.WithLogger(s.logger.With("tool", ec.Tool)),
		dispatch.WithRethrow(s.rethrow),
	)

	s.mu.Lock()
	s.dispatchers[ec.Tool] = d
	s.gates[ec.Tool] = g
	s.mu.Unlock()

	s.logger.Debug("Tool registered", "tool", ec.Tool, "actions", len(ec.Keys()))
	return nil
}

// MustRegister is like Register but panics on error.
func (s *Server) MustRegister(tools ...*registry.Tool) *Server {
	for _, t := range tools {
		if err := s.Register(t); err != nil {
			panic(err)
		}
	}
	return s
}

// Execute runs a call against the named tool. Unknown tools yield an
// UNKNOWN_ACTION response listing the registered tools.
func (s *Server) Execute(ctx context.Context, tool string, args map[string]any) (*response.Response, error) {
	s.mu.RLock()
	d, ok := s.dispatchers[tool]
	s.mu.RUnlock()

	if !ok {
		return response.Error(response.UnknownAction,
			fmt.Sprintf("Unknown tool %q.", tool),
			response.WithAvailable(s.registry.Names()...),
		), nil
	}
	return d.Execute(ctx, args)
}

// Tools returns the compiled tools sorted by name.
func (s *Server) Tools() []*registry.ExecutionContext {
	names := s.registry.Names()
	out := make([]*registry.ExecutionContext, 0, len(names))
	for _, name := range names {
		if ec, ok := s.registry.Lookup(name); ok {
			out = append(out, ec)
		}
	}
	return out
}

// Stats returns the gate counters of every tool.
func (s *Server) Stats() map[string]gate.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]gate.Stats, len(s.gates))
	for name, g := range s.gates {
		out[name] = g.Stats()
	}
	return out
}

// ToolNames returns the registered tool names in sorted order.
func (s *Server) ToolNames() []string {
	return s.registry.Names()
}
