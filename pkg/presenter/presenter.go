package presenter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/toolgate/pkg/response"
	"github.com/aretw0/toolgate/pkg/schema"
)

// State is the lifecycle stage of a Presenter.
type State int

const (
	// Building accepts configuration changes.
	Building State = iota
	// Compiled has validated its configuration but can still be changed.
	Compiled
	// Sealed has served a Make call and rejects further configuration.
	Sealed
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Compiled:
		return "compiled"
	case Sealed:
		return "sealed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Presenter governs the data a domain returns to callers: it truncates,
// validates, projects and redacts the outgoing data while computing UI
// blocks, rules and suggestions from the full data.
type Presenter struct {
	name string

	mu       sync.Mutex
	state    State
	cfg      config
	compiled *compiled
}

// compiled is the frozen, read-only form of a config.
type compiled struct {
	config
	matchers []matcher
	known    map[string]struct{}
}

// New creates a presenter in the Building state.
func New(name string, opts ...Option) *Presenter {
	p := &Presenter{name: name}
	for _, opt := range opts {
		opt(&p.cfg)
	}
	return p
}

// Name returns the presenter name used in errors.
func (p *Presenter) Name() string { return p.name }

// State returns the current lifecycle stage.
func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Configure applies more options. It fails with ErrSealed once Make has run.
func (p *Presenter) Configure(opts ...Option) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Sealed {
		return fmt.Errorf("configure presenter %q: %w", p.name, ErrSealed)
	}
	for _, opt := range opts {
		opt(&p.cfg)
	}
	p.state = Building
	p.compiled = nil
	return nil
}

// Compile validates the configuration (redaction paths, embeds) ahead of the
// first Make. Calling it is optional.
func (p *Presenter) Compile() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.compileLocked()
	return err
}

func (p *Presenter) compileLocked() (*compiled, error) {
	if p.compiled != nil {
		return p.compiled, nil
	}

	c := &compiled{config: p.cfg}
	c.rules = slices.Clone(p.cfg.rules)
	c.redact = slices.Clone(p.cfg.redact)
	c.embeds = slices.Clone(p.cfg.embeds)
	if c.overflow == nil {
		c.overflow = DefaultOverflow
	}
	for _, path := range c.redact {
		m, err := compilePath(path)
		if err != nil {
			return nil, fmt.Errorf("compile presenter %q: %w", p.name, err)
		}
		c.matchers = append(c.matchers, m)
	}
	for _, e := range c.embeds {
		if e.child == nil || e.child == p {
			return nil, fmt.Errorf("compile presenter %q: invalid embed %q", p.name, e.key)
		}
	}
	if !c.schema.IsZero() {
		c.known = make(map[string]struct{}, c.schema.Len())
		for _, name := range c.schema.Names() {
			c.known[name] = struct{}{}
		}
	}

	p.compiled = c
	if p.state == Building {
		p.state = Compiled
	}
	return c, nil
}

// seal compiles if needed and freezes the presenter.
func (p *Presenter) seal() (*compiled, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, err := p.compileLocked()
	if err != nil {
		return nil, err
	}
	p.state = Sealed
	return c, nil
}

// Make runs data through the presenter and returns a builder holding one
// data segment followed by the overflow notice, embedded blocks, UI blocks,
// rules and suggestions. Validation failures are returned as
// *ValidationError.
func (p *Presenter) Make(ctx context.Context, data any, opts ...MakeOption) (*response.Builder, error) {
	c, err := p.seal()
	if err != nil {
		return nil, err
	}

	var mo makeOptions
	for _, opt := range opts {
		opt(&mo)
	}
	selection := mo.selection
	if !mo.hasSelection {
		selection = SelectionFromContext(ctx)
	}

	raw, err := normalize(data)
	if err != nil {
		return nil, err
	}

	// Guardrail truncation.
	var notice string
	if items, ok := raw.([]any); ok && c.limit > 0 && len(items) > c.limit {
		notice = c.overflow(len(items)-c.limit, c.limit)
		raw = items[:c.limit]
	}

	// Embeds read the raw data: the schema may not keep the relation keys.
	embedded := response.NewBuilder()
	if len(c.embeds) > 0 {
		childCtx := withoutSelection(ctx)
		for _, item := range rawObjects(raw) {
			for _, e := range c.embeds {
				value, ok := item[e.key]
				if !ok || value == nil {
					continue
				}
				child, err := e.child.Make(childCtx, value)
				if err != nil {
					return nil, fmt.Errorf("embed %q: %w", e.key, err)
				}
				embedded.Absorb(child)
			}
		}
	}

	full, err := p.validate(c, raw)
	if err != nil {
		return nil, err
	}

	out := response.NewBuilder()
	outgoing := full
	var selNotice string
	if len(selection) > 0 {
		var unknown []string
		outgoing, unknown = project(outgoing, selection, c.isKnown(full))
		selNotice = selectionNotice(unknown, len(unknown) < len(selection))
	}
	outgoing = redact(outgoing, c.matchers)
	out.Data(outgoing)

	out.Notice(notice)
	out.Notice(selNotice)
	out.Absorb(embedded)
	p.auxiliary(ctx, c, full, out)
	return out, nil
}

func (p *Presenter) validate(c *compiled, data any) (any, error) {
	if c.schema.IsZero() {
		return data, nil
	}
	switch d := data.(type) {
	case map[string]any:
		clean, err := c.schema.Validate(d, schema.Strip)
		if err != nil {
			return nil, &ValidationError{Presenter: p.name, Index: -1, Err: err}
		}
		return clean, nil
	case []any:
		out := make([]any, len(d))
		for i, item := range d {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &ValidationError{Presenter: p.name, Index: i, Err: fmt.Errorf("expected object, got %T", item)}
			}
			clean, err := c.schema.Validate(m, schema.Strip)
			if err != nil {
				return nil, &ValidationError{Presenter: p.name, Index: i, Err: err}
			}
			out[i] = clean
		}
		return out, nil
	}
	return nil, &ValidationError{Presenter: p.name, Index: -1, Err: fmt.Errorf("expected object or collection, got %T", data)}
}

// isKnown reports which selection names may be projected: schema fields when
// a schema is set, otherwise keys present in the data.
func (c *compiled) isKnown(data any) func(string) bool {
	if c.known != nil {
		return func(f string) bool {
			_, ok := c.known[f]
			return ok
		}
	}
	present := make(map[string]struct{})
	for _, item := range rawObjects(data) {
		for k := range item {
			present[k] = struct{}{}
		}
	}
	return func(f string) bool {
		_, ok := present[f]
		return ok
	}
}

// auxiliary appends UI blocks, rules and suggestions computed from the full
// validated data.
func (p *Presenter) auxiliary(ctx context.Context, c *compiled, full any, out *response.Builder) {
	var first map[string]any
	switch d := full.(type) {
	case map[string]any:
		first = d
		if c.itemUI != nil {
			out.UI(c.itemUI(ctx, d)...)
		}
	case []any:
		items, ok := objects(d)
		if ok && c.collectionUI != nil {
			out.UI(c.collectionUI(ctx, items)...)
		}
		if ok && len(items) > 0 {
			first = items[0]
		}
	}

	rules := slices.Clone(c.rules)
	if c.rulesFunc != nil {
		rules = append(rules, c.rulesFunc(ctx, full)...)
	}
	out.Rules(rules...)

	if c.suggest != nil && first != nil {
		out.Suggest(c.suggest(ctx, first)...)
	}
}

func rawObjects(data any) []map[string]any {
	switch d := data.(type) {
	case map[string]any:
		return []map[string]any{d}
	case []any:
		var out []map[string]any
		for _, item := range d {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// IsValidationError reports whether err carries a presenter ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
