package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*ExecutionContext
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*ExecutionContext),
	}
}

// Register compiles the tool and adds it to the registry.
// A tool with the same name is rejected.
func (r *Registry) Register(t *Tool) (*ExecutionContext, error) {
	ec, err := t.Compile()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[ec.Tool]; exists {
		return nil, fmt.Errorf("tool %q already registered", ec.Tool)
	}
	r.tools[ec.Tool] = ec
	return ec, nil
}

// Lookup returns the compiled tool by name.
func (r *Registry) Lookup(name string) (*ExecutionContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ec, ok := r.tools[name]
	return ec, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bind adapts a typed handler: the validated arguments are decoded into a
// fresh T (matching `json` tags, weakly typed) before fn is called.
func Bind[T any](fn func(ctx context.Context, in T) (any, error)) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		var in T
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &in,
			TagName:          "json",
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}
		return fn(ctx, in)
	}
}
