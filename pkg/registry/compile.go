package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/toolgate/pkg/mutation"
	"github.com/aretw0/toolgate/pkg/schema"
)

// SelectField is the reserved argument carrying a caller's field selection.
// It is never validated against action schemas.
const SelectField = "_select"

// ErrNoActions is returned when compiling a tool without actions.
var ErrNoActions = errors.New("tool has no actions")

// Compiled is the frozen, ready-to-run form of one action.
type Compiled struct {
	Key    string
	Action Action
	// Schema is the common schema minus OmitCommon, merged with the action
	// schema. It is always applied in strict mode.
	Schema schema.Schema
	// Validated is false when neither the tool nor the action declares any
	// field; such actions receive their arguments untouched.
	Validated bool
	// Chain runs every middleware around the handler.
	Chain Handler
	// Depth is the number of middleware links in Chain.
	Depth int
}

// ExecutionContext is the immutable result of Tool.Compile. It is safe for
// concurrent use.
type ExecutionContext struct {
	Tool        string
	Description string
	Selector    string

	actions    map[string]*Compiled
	keys       []string
	serializer *mutation.Serializer
}

// Compile freezes the tool: schemas are merged, middleware chains composed and
// the mutation serializer created if any action is destructive. Later calls
// return the same context; registration afterwards fails with ErrSealed.
func (t *Tool) Compile() (*ExecutionContext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.compiled != nil {
		return t.compiled, nil
	}
	if len(t.entries) == 0 {
		return nil, fmt.Errorf("compile tool %q: %w", t.name, ErrNoActions)
	}

	ec := &ExecutionContext{
		Tool:        t.name,
		Description: t.description,
		Selector:    t.selector,
		actions:     make(map[string]*Compiled, len(t.entries)),
		keys:        make([]string, 0, len(t.entries)),
	}

	for _, e := range t.entries {
		if e.action.Flags.Destructive {
			opts := []mutation.Option{mutation.WithLogger(t.logger)}
			if t.locker != nil {
				opts = append(opts, mutation.WithLocker(t.locker, t.lockTTL))
			}
			ec.serializer = mutation.New(opts...)
			break
		}
	}

	for _, e := range t.entries {
		for _, name := range e.action.Schema.Names() {
			if name == t.selector || name == SelectField {
				return nil, fmt.Errorf("compile tool %q: action %q declares reserved field %q", t.name, e.key, name)
			}
		}

		merged := t.common.Omit(e.action.OmitCommon...).Merge(e.action.Schema)

		var mws []Middleware
		mws = append(mws, t.middleware...)
		if e.group != nil {
			mws = append(mws, e.group.middleware...)
		}
		mws = append(mws, e.action.Middleware...)

		terminal := e.action.Handler
		if e.action.Flags.Destructive {
			terminal = serialized(ec.serializer, e.key, terminal)
		}

		ec.actions[e.key] = &Compiled{
			Key:       e.key,
			Action:    e.action,
			Schema:    merged,
			Validated: !t.common.IsZero() || !e.action.Schema.IsZero(),
			Chain:     chain(mws, terminal),
			Depth:     len(mws),
		}
		ec.keys = append(ec.keys, e.key)
	}
	sort.Strings(ec.keys)

	t.compiled = ec
	return ec, nil
}

// chain composes middleware once, outermost first.
func chain(mws []Middleware, h Handler) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], h
		h = func(ctx context.Context, args map[string]any) (any, error) {
			return mw(ctx, args, next)
		}
	}
	return h
}

func serialized(s *mutation.Serializer, key string, h Handler) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		return s.Serialize(ctx, key, func(ctx context.Context) (any, error) {
			return h(ctx, args)
		})
	}
}

// Lookup returns the compiled action for key.
func (ec *ExecutionContext) Lookup(key string) (*Compiled, bool) {
	c, ok := ec.actions[key]
	return c, ok
}

// Keys returns the sorted action keys.
func (ec *ExecutionContext) Keys() []string {
	out := make([]string, len(ec.keys))
	copy(out, ec.keys)
	return out
}

// Serializer returns the tool's mutation serializer, or nil when no action is
// destructive.
func (ec *ExecutionContext) Serializer() *mutation.Serializer {
	return ec.serializer
}

// Flags aggregates the flags of all actions: the tool is read-only only if
// every action is, and destructive if any action is.
func (ec *ExecutionContext) Flags() Flags {
	f := Flags{ReadOnly: true, Idempotent: true}
	for _, c := range ec.actions {
		f.ReadOnly = f.ReadOnly && c.Action.Flags.ReadOnly
		f.Idempotent = f.Idempotent && c.Action.Flags.Idempotent
		f.Destructive = f.Destructive || c.Action.Flags.Destructive
	}
	return f
}

// Summary renders the tool description followed by one line per action.
func (ec *ExecutionContext) Summary() string {
	var b strings.Builder
	if ec.Description != "" {
		b.WriteString(ec.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Actions (set %q to one of):\n", ec.Selector)
	for _, key := range ec.keys {
		c := ec.actions[key]
		line := "- " + key
		if tags := c.Action.Flags.String(); tags != "" {
			line += " " + tags
		}
		if c.Action.Description != "" {
			line += ": " + c.Action.Description
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// InputSchema returns a JSON Schema object for the tool's arguments: the
// selector as a required enum plus the union of all action fields. Fields
// stay optional here since requirements differ per action.
func (ec *ExecutionContext) InputSchema() map[string]any {
	props := map[string]any{
		ec.Selector: map[string]any{
			"type":        "string",
			"enum":        ec.Keys(),
			"description": "The action to perform.",
		},
		SelectField: map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Optional list of fields to keep in the returned data.",
		},
	}
	for _, key := range ec.keys {
		for _, f := range ec.actions[key].Schema.Fields() {
			if _, seen := props[f.Name]; seen {
				continue
			}
			prop := f.Type.JSONSchema()
			if f.Description != "" {
				prop["description"] = f.Description
			}
			if f.Default != nil {
				prop["default"] = f.Default
			}
			props[f.Name] = prop
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{ec.Selector},
	}
}
