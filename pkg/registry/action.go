package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/toolgate/pkg/presenter"
	"github.com/aretw0/toolgate/pkg/schema"
)

// Handler is the body of an action. It receives the validated arguments and
// returns a result (a *response.Response, a *response.Builder, a string, nil
// or any JSON-encodable value) or an error.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Middleware wraps a handler. It may inspect or rewrite args, call next, or
// short-circuit by returning a value without calling next.
type Middleware func(ctx context.Context, args map[string]any, next Handler) (any, error)

// Flags describe the side effects of an action.
type Flags struct {
	// Destructive actions mutate state and are serialized per action key.
	Destructive bool
	Idempotent  bool
	ReadOnly    bool
}

// String renders the set flags as a compact tag list, e.g. "[destructive]".
func (f Flags) String() string {
	var tags []string
	if f.ReadOnly {
		tags = append(tags, "read-only")
	}
	if f.Destructive {
		tags = append(tags, "destructive")
	}
	if f.Idempotent {
		tags = append(tags, "idempotent")
	}
	if len(tags) == 0 {
		return ""
	}
	return "[" + strings.Join(tags, ", ") + "]"
}

// Action is one operation reachable through a tool's selector field.
type Action struct {
	Name        string
	Description string
	// Schema declares the action's own parameters. It is merged over the
	// tool's common schema.
	Schema schema.Schema
	// OmitCommon lists common-schema fields that do not apply to this action.
	OmitCommon []string
	Flags      Flags
	Middleware []Middleware
	Handler    Handler
	// Presenter, when set, governs plain handler results. Handlers returning
	// a *response.Response or *response.Builder bypass it.
	Presenter *presenter.Presenter
}

func (a Action) validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("action name is required")
	}
	if strings.ContainsAny(a.Name, ". \t\n") {
		return fmt.Errorf("action name %q must not contain dots or whitespace", a.Name)
	}
	if a.Handler == nil {
		return fmt.Errorf("action %q has no handler", a.Name)
	}
	return nil
}
