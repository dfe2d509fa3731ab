package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/toolgate/internal/logging"
	"github.com/aretw0/toolgate/pkg/egress"
	"github.com/aretw0/toolgate/pkg/gate"
	"github.com/aretw0/toolgate/pkg/mutation"
	"github.com/aretw0/toolgate/pkg/observability"
	"github.com/aretw0/toolgate/pkg/presenter"
	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
	"github.com/aretw0/toolgate/pkg/schema"
)

// PanicError is the error recovered from a panicking handler or middleware.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Dispatcher executes calls against one compiled tool.
type Dispatcher struct {
	ec         *registry.ExecutionContext
	gate       *gate.Gate
	maxPayload int
	hooks      observability.Hooks
	logger     *slog.Logger
	rethrow    bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithGate bounds the number of in-flight calls.
func WithGate(g *gate.Gate) Option {
	return func(d *Dispatcher) {
		d.gate = g
	}
}

// WithMaxPayloadBytes caps the size of every response. Zero disables the cap.
func WithMaxPayloadBytes(n int) Option {
	return func(d *Dispatcher) {
		d.maxPayload = n
	}
}

// WithHooks installs observability hooks.
func WithHooks(h observability.Hooks) Option {
	return func(d *Dispatcher) {
		d.hooks = h
	}
}

// WithLogger configures a logger for handler faults.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithRethrow makes Execute also return handler faults as its error, next to
// the HANDLER_FAULT response, so the caller can run its own closing logic.
func WithRethrow(rethrow bool) Option {
	return func(d *Dispatcher) {
		d.rethrow = rethrow
	}
}

// New creates a dispatcher for a compiled tool.
func New(ec *registry.ExecutionContext, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ec:     ec,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Context returns the compiled tool served by the dispatcher.
func (d *Dispatcher) Context() *registry.ExecutionContext { return d.ec }

// Execute routes args to an action, validates them, runs the middleware
// chain and handler, and returns the governed response. Every foreseeable
// failure is reported as an error response; the returned error is non-nil
// only for handler faults when rethrow is enabled.
func (d *Dispatcher) Execute(ctx context.Context, args map[string]any) (*response.Response, error) {
	tr := d.startTrace(ctx)

	resp, err := d.execute(ctx, args, tr)
	resp = egress.Apply(resp, d.maxPayload)

	tr.end(ctx, resp, err)
	return resp, err
}

func (d *Dispatcher) execute(ctx context.Context, args map[string]any, tr *trace) (*response.Response, error) {
	if d.gate != nil {
		tr.begin()
		release, err := d.gate.Acquire(ctx)
		tr.step(ctx, observability.StepAdmit, err)
		if err != nil {
			return d.admissionError(err), nil
		}
		defer release()
	}

	// Route
	tr.begin()
	key, ok := args[d.ec.Selector].(string)
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		err := fmt.Errorf("missing selector %q", d.ec.Selector)
		tr.step(ctx, observability.StepRoute, err)
		return response.Error(response.MissingSelector,
			fmt.Sprintf("The %q field is required and must name the action to run.", d.ec.Selector),
			response.WithRecovery(fmt.Sprintf("Call again with %q set to one of the available actions.", d.ec.Selector)),
			response.WithAvailable(d.ec.Keys()...),
		), nil
	}
	tr.step(ctx, observability.StepRoute, nil)

	// Resolve
	tr.begin()
	c, ok := d.ec.Lookup(key)
	if !ok {
		err := fmt.Errorf("unknown action %q", key)
		tr.step(ctx, observability.StepResolve, err)
		return response.Error(response.UnknownAction,
			fmt.Sprintf("Unknown action %q for tool %q.", key, d.ec.Tool),
			response.WithRecovery("Pick one of the available actions."),
			response.WithAvailable(d.ec.Keys()...),
		), nil
	}
	tr.resolved(c)
	tr.step(ctx, observability.StepResolve, nil)

	// Validate
	tr.begin()
	params, selection, err := d.validate(c, args)
	tr.step(ctx, observability.StepValidate, err)
	if err != nil {
		return response.Error(response.ValidationFailed,
			fmt.Sprintf("Invalid arguments for action %q.", key),
			response.WithDetails(schema.FieldMessages(err)...),
			response.WithRecovery("Fix the listed fields and call again; undeclared fields are rejected."),
		), nil
	}
	if selection != nil {
		ctx = presenter.WithSelection(ctx, selection)
	}

	// Middleware, handler and presentation
	tr.begin()
	resp, err := d.invoke(ctx, c, params)
	tr.step(ctx, observability.StepExecute, err)
	if err != nil {
		return d.fault(ctx, key, err)
	}
	return resp, nil
}

// validate strips the selector and the selection control field and checks
// the rest against the compiled schema.
func (d *Dispatcher) validate(c *registry.Compiled, args map[string]any) (map[string]any, []string, error) {
	params := make(map[string]any, len(args))
	for k, v := range args {
		if k != d.ec.Selector && k != registry.SelectField {
			params[k] = v
		}
	}

	var selection []string
	if raw, ok := args[registry.SelectField]; ok {
		sel, err := presenter.ParseSelection(raw)
		if err != nil {
			return nil, nil, &schema.AggregateError{Errors: []error{
				&schema.ValidationError{Key: registry.SelectField, Reason: err.Error(), Value: raw},
			}}
		}
		selection = sel
	}

	if !c.Validated {
		return params, selection, nil
	}
	clean, err := c.Schema.Validate(params, schema.Strict)
	if err != nil {
		return nil, nil, err
	}
	return clean, selection, nil
}

// invoke is the outermost frame of the handler: panics are recovered here.
func (d *Dispatcher) invoke(ctx context.Context, c *registry.Compiled, params map[string]any) (resp *response.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	result, err := c.Chain(ctx, params)
	if err != nil {
		return nil, err
	}
	return convert(ctx, c.Action.Presenter, result)
}

// convert turns a handler result into a response.
func convert(ctx context.Context, p *presenter.Presenter, result any) (*response.Response, error) {
	switch v := result.(type) {
	case *response.Response:
		if v != nil {
			return v, nil
		}
		return response.Text("OK"), nil
	case *response.Builder:
		if v != nil {
			return v.Build(), nil
		}
		return response.Text("OK"), nil
	case nil:
		return response.Text("OK"), nil
	}

	if p != nil {
		b, err := p.Make(ctx, result)
		if err != nil {
			return nil, err
		}
		return b.Build(), nil
	}
	if s, ok := result.(string); ok {
		return response.Text(s), nil
	}
	return response.NewBuilder().Data(result).Build(), nil
}

// fault maps an error from the handler frame to an error response.
func (d *Dispatcher) fault(ctx context.Context, key string, err error) (*response.Response, error) {
	if errors.Is(err, mutation.ErrCancelled) {
		return response.Error(response.Cancelled,
			fmt.Sprintf("Action %q was cancelled before it started.", key),
		), nil
	}

	var pve *presenter.ValidationError
	if errors.As(err, &pve) {
		d.logger.ErrorContext(ctx, "Handler returned data rejected by its presenter",
			"tool", d.ec.Tool,
			"action", key,
			"err", err,
		)
		resp := response.Error(response.DomainValidationFailed,
			fmt.Sprintf("Action %q produced data that failed domain validation. This is a server-side bug, not a problem with your arguments.", key),
			response.WithDetails(pve.Details()...),
		)
		return resp, d.rethrown(err)
	}

	attrs := []any{"tool", d.ec.Tool, "action", key, "err", err}
	var pe *PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	d.logger.ErrorContext(ctx, "Handler fault", attrs...)

	resp := response.Error(response.HandlerFault,
		fmt.Sprintf("Action %q failed: %v", key, err),
	)
	return resp, d.rethrown(err)
}

func (d *Dispatcher) rethrown(err error) error {
	if d.rethrow {
		return err
	}
	return nil
}

func (d *Dispatcher) admissionError(err error) *response.Response {
	var busy *gate.BusyError
	if errors.As(err, &busy) {
		return response.Error(response.Busy,
			fmt.Sprintf("Tool %q is at capacity (%d active, %d queued).", d.ec.Tool, busy.Active, busy.Queued),
			response.WithRecovery(fmt.Sprintf("Retry after %s.", busy.RetryAfter)),
		)
	}
	return response.Error(response.Cancelled, "The call was cancelled while waiting for a free slot.")
}

// trace carries per-call hook state. A nil *trace means no hooks are set and
// every method returns immediately.
type trace struct {
	hooks     observability.Hooks
	start     time.Time
	stepStart time.Time
	ev        observability.Event
}

func (d *Dispatcher) startTrace(ctx context.Context) *trace {
	if d.hooks.IsZero() {
		return nil
	}
	now := time.Now()
	tr := &trace{
		hooks: d.hooks,
		start: now,
		ev: observability.Event{
			CallID: newCallID(),
			Tool:   d.ec.Tool,
			Start:  now,
		},
	}
	ev := tr.ev
	tr.hooks.CallStart(ctx, &ev)
	return tr
}

func (t *trace) begin() {
	if t == nil {
		return
	}
	t.stepStart = time.Now()
}

func (t *trace) resolved(c *registry.Compiled) {
	if t == nil {
		return
	}
	t.ev.Action = c.Key
	t.ev.ChainLength = c.Depth
}

func (t *trace) step(ctx context.Context, s observability.Step, err error) {
	if t == nil {
		return
	}
	ev := t.ev
	ev.Step = s
	ev.OK = err == nil
	ev.Err = err
	ev.Duration = time.Since(t.stepStart)
	t.hooks.Step(ctx, &ev)
}

func (t *trace) end(ctx context.Context, resp *response.Response, err error) {
	if t == nil {
		return
	}
	ev := t.ev
	ev.Duration = time.Since(t.start)
	ev.OK = !resp.IsError
	ev.Err = err
	if resp.IsError {
		ev.ErrorKind = string(resp.ErrorKind())
	}
	t.hooks.CallEnd(ctx, &ev)
}
