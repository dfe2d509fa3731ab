package observability

import (
	"context"
	"time"
)

// Step names a stage of the dispatch pipeline.
type Step string

const (
	StepRoute    Step = "route"
	StepResolve  Step = "resolve"
	StepValidate Step = "validate"
	StepAdmit    Step = "admit"
	StepExecute  Step = "execute"
)

// Event describes one pipeline boundary of a call.
type Event struct {
	CallID string    `json:"call_id"`
	Tool   string    `json:"tool"`
	Action string    `json:"action,omitempty"`
	Start  time.Time `json:"start"`

	// Set on step and end events.
	Step     Step          `json:"step,omitempty"`
	OK       bool          `json:"ok"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration,omitempty"`

	// ChainLength is the number of middleware links of the resolved action.
	ChainLength int `json:"chain_length,omitempty"`
	// ErrorKind is the code of the error response, set on end events.
	ErrorKind string `json:"error_kind,omitempty"`
}

// Hooks defines callbacks for pipeline observability. Any field may be nil.
type Hooks struct {
	OnCallStart func(context.Context, *Event)
	OnStep      func(context.Context, *Event)
	OnCallEnd   func(context.Context, *Event)
}

// IsZero reports whether no callback is set.
func (h Hooks) IsZero() bool {
	return h.OnCallStart == nil && h.OnStep == nil && h.OnCallEnd == nil
}

// CallStart invokes OnCallStart, swallowing panics.
func (h Hooks) CallStart(ctx context.Context, e *Event) {
	safe(ctx, h.OnCallStart, e)
}

// Step invokes OnStep, swallowing panics.
func (h Hooks) Step(ctx context.Context, e *Event) {
	safe(ctx, h.OnStep, e)
}

// CallEnd invokes OnCallEnd, swallowing panics.
func (h Hooks) CallEnd(ctx context.Context, e *Event) {
	safe(ctx, h.OnCallEnd, e)
}

func safe(ctx context.Context, fn func(context.Context, *Event), e *Event) {
	if fn == nil {
		return
	}
	defer func() { _ = recover() }()
	fn(ctx, e)
}

// Combine returns hooks that call each of hooks in order. Each callback is
// isolated: a panic in one does not prevent the next from running.
func Combine(hooks ...Hooks) Hooks {
	var out Hooks
	for _, h := range hooks {
		out.OnCallStart = chain(out.OnCallStart, h.OnCallStart)
		out.OnStep = chain(out.OnStep, h.OnStep)
		out.OnCallEnd = chain(out.OnCallEnd, h.OnCallEnd)
	}
	return out
}

func chain(a, b func(context.Context, *Event)) func(context.Context, *Event) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *Event) {
		safe(ctx, a, e)
		safe(ctx, b, e)
	}
}
