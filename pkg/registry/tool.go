package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/toolgate/internal/logging"
	"github.com/aretw0/toolgate/pkg/ports"
	"github.com/aretw0/toolgate/pkg/schema"
)

// DefaultSelector is the argument that names the action to run.
const DefaultSelector = "action"

var (
	// ErrSealed is returned when a tool is modified after Compile.
	ErrSealed = errors.New("tool is sealed")
	// ErrDuplicateAction is returned when an action key is registered twice.
	ErrDuplicateAction = errors.New("duplicate action")
)

// Tool is a registration unit: a named set of actions sharing a selector
// field, a common schema and tool-level middleware.
type Tool struct {
	name        string
	description string
	selector    string
	common      schema.Schema
	middleware  []Middleware

	locker  ports.Locker
	lockTTL time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	entries  []entry
	keys     map[string]struct{}
	compiled *ExecutionContext
}

type entry struct {
	key    string
	group  *Group
	action Action
}

// ToolOption configures a Tool.
type ToolOption func(*Tool)

// WithDescription sets the human-readable description of the tool.
func WithDescription(description string) ToolOption {
	return func(t *Tool) {
		t.description = description
	}
}

// WithSelector overrides the name of the selector argument.
func WithSelector(field string) ToolOption {
	return func(t *Tool) {
		if field != "" {
			t.selector = field
		}
	}
}

// WithCommonSchema declares parameters shared by every action.
func WithCommonSchema(s schema.Schema) ToolOption {
	return func(t *Tool) {
		t.common = s
	}
}

// WithMiddleware appends tool-level middleware, run before any group or
// action middleware.
func WithMiddleware(mw ...Middleware) ToolOption {
	return func(t *Tool) {
		t.middleware = append(t.middleware, mw...)
	}
}

// WithLocker makes the tool's mutation serializer also take a distributed
// lock per action key.
func WithLocker(locker ports.Locker, ttl time.Duration) ToolOption {
	return func(t *Tool) {
		t.locker = locker
		t.lockTTL = ttl
	}
}

// WithLogger configures the logger handed to the tool's serializer.
func WithLogger(logger *slog.Logger) ToolOption {
	return func(t *Tool) {
		t.logger = logger
	}
}

// NewTool creates an empty, unsealed tool.
func NewTool(name string, opts ...ToolOption) *Tool {
	t := &Tool{
		name:     name,
		selector: DefaultSelector,
		keys:     make(map[string]struct{}),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the tool name.
func (t *Tool) Name() string { return t.name }

// Description returns the tool description.
func (t *Tool) Description() string { return t.description }

// Register adds an action under its own name.
func (t *Tool) Register(actions ...Action) error {
	return t.add(nil, actions)
}

// MustRegister is like Register but panics on error. Meant for static
// registration at startup.
func (t *Tool) MustRegister(actions ...Action) *Tool {
	if err := t.Register(actions...); err != nil {
		panic(err)
	}
	return t
}

// Group creates a namespace whose actions are keyed "group.action" and run
// the group middleware after the tool middleware.
func (t *Tool) Group(name string, mw ...Middleware) *Group {
	return &Group{tool: t, name: name, middleware: mw}
}

func (t *Tool) add(g *Group, actions []Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.compiled != nil {
		return fmt.Errorf("register on tool %q: %w", t.name, ErrSealed)
	}
	for _, a := range actions {
		if err := a.validate(); err != nil {
			return fmt.Errorf("register on tool %q: %w", t.name, err)
		}
		key := a.Name
		if g != nil {
			key = g.name + "." + a.Name
		}
		if _, exists := t.keys[key]; exists {
			return fmt.Errorf("register %q on tool %q: %w", key, t.name, ErrDuplicateAction)
		}
		t.keys[key] = struct{}{}
		t.entries = append(t.entries, entry{key: key, group: g, action: a})
	}
	return nil
}

// Sealed reports whether Compile has run.
func (t *Tool) Sealed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.compiled != nil
}

// Group is a namespace of actions inside a tool.
type Group struct {
	tool       *Tool
	name       string
	middleware []Middleware
}

// Register adds actions under "group.name" keys.
func (g *Group) Register(actions ...Action) error {
	if strings.TrimSpace(g.name) == "" || strings.ContainsAny(g.name, ". \t\n") {
		return fmt.Errorf("invalid group name %q", g.name)
	}
	return g.tool.add(g, actions)
}

// MustRegister is like Register but panics on error.
func (g *Group) MustRegister(actions ...Action) *Group {
	if err := g.Register(actions...); err != nil {
		panic(err)
	}
	return g
}
