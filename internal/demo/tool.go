package demo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/toolgate/internal/logging"
	"github.com/aretw0/toolgate/pkg/middleware"
	"github.com/aretw0/toolgate/pkg/ports"
	"github.com/aretw0/toolgate/pkg/presenter"
	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
	"github.com/aretw0/toolgate/pkg/schema"
)

// ToolName is the name the tasks tool is registered under.
const ToolName = "tasks"

// ListLimit caps the number of tasks returned by list.
const ListLimit = 50

var userSchema = schema.New(
	schema.Required("id", schema.String()),
	schema.Required("name", schema.String()),
	schema.Optional("email", schema.String()),
)

var taskSchema = schema.New(
	schema.Required("id", schema.String()),
	schema.Required("title", schema.String()),
	schema.Required("status", schema.Enum(StatusOpen, StatusDone)),
	schema.Optional("owner", schema.Object(userSchema)),
	schema.Required("created_at", schema.String()),
)

// NewUserPresenter presents task owners. Emails never leave the process.
func NewUserPresenter() *presenter.Presenter {
	return presenter.New("User",
		presenter.WithSchema(userSchema),
		presenter.WithRedaction("email"),
		presenter.WithRules("Owners are managed outside this tool; pass their id as owner when creating tasks."),
	)
}

// NewTaskPresenter presents tasks, embedding their owner.
func NewTaskPresenter() *presenter.Presenter {
	return presenter.New("Task",
		presenter.WithSchema(taskSchema),
		presenter.WithEmbed("owner", NewUserPresenter()),
		presenter.WithRedaction("owner.email"),
		presenter.WithTruncation(ListLimit, nil),
		presenter.WithRules("Deleting a task is permanent."),
		presenter.WithRulesFunc(func(ctx context.Context, data any) []string {
			if open := countOpen(data); open > 0 {
				return []string{fmt.Sprintf("%d task(s) still open.", open)}
			}
			return nil
		}),
		presenter.WithItemUI(func(ctx context.Context, item map[string]any) []response.UIBlock {
			return []response.UIBlock{response.Summary(fmt.Sprintf("Task %q is %v.", item["title"], item["status"]))}
		}),
		presenter.WithCollectionUI(func(ctx context.Context, items []map[string]any) []response.UIBlock {
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{fmt.Sprint(it["id"]), fmt.Sprint(it["title"]), fmt.Sprint(it["status"])})
			}
			return []response.UIBlock{response.Table([]string{"id", "title", "status"}, rows)}
		}),
		presenter.WithSuggestions(func(ctx context.Context, item map[string]any) []response.Suggestion {
			args := map[string]any{"id": item["id"]}
			if item["status"] == StatusOpen {
				return []response.Suggestion{{Action: "complete", Args: args, Reason: "mark it done"}}
			}
			return []response.Suggestion{{Action: "delete", Args: args, Reason: "clean up finished work"}}
		}),
	)
}

func countOpen(data any) int {
	switch v := data.(type) {
	case map[string]any:
		if v["status"] == StatusOpen {
			return 1
		}
	case []any:
		n := 0
		for _, it := range v {
			n += countOpen(it)
		}
		return n
	}
	return 0
}

// Option configures the tasks tool.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	locker  ports.Locker
	lockTTL time.Duration
	limiter *middleware.Limiter
	timeout time.Duration
}

// WithLogger logs every action call.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLocker serializes mutations across replicas.
func WithLocker(locker ports.Locker, ttl time.Duration) Option {
	return func(o *options) {
		o.locker = locker
		o.lockTTL = ttl
	}
}

// WithCreateLimiter rate limits task creation per owner.
func WithCreateLimiter(l *middleware.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithTimeout bounds every action call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

type idArgs struct {
	ID string `json:"id"`
}

type listArgs struct {
	Status string `json:"status"`
}

type createArgs struct {
	Title string `json:"title"`
	Owner string `json:"owner"`
}

// NewTool builds the tasks tool on top of store.
func NewTool(store *Store, opts ...Option) *registry.Tool {
	o := options{
		logger:  logging.NewNop(),
		limiter: middleware.NewLimiter(5, 10, 10*time.Minute),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	toolOpts := []registry.ToolOption{
		registry.WithDescription("Manage a shared to-do list."),
		registry.WithMiddleware(middleware.Logging(o.logger), middleware.Sanitize(middleware.DefaultMaxInputSize), middleware.Timeout(o.timeout)),
		registry.WithLogger(o.logger),
	}
	if o.locker != nil {
		toolOpts = append(toolOpts, registry.WithLocker(o.locker, o.lockTTL))
	}
	tool := registry.NewTool(ToolName, toolOpts...)

	tasks := NewTaskPresenter()
	idSchema := schema.New(schema.Required("id", schema.String()).Describe("Task id"))

	tool.MustRegister(
		registry.Action{
			Name:        "list",
			Description: "List tasks, optionally filtered by status",
			Schema: schema.New(
				schema.Optional("status", schema.Enum(StatusOpen, StatusDone, "all")).WithDefault("all"),
			),
			Flags:     registry.Flags{ReadOnly: true, Idempotent: true},
			Presenter: tasks,
			Handler: registry.Bind(func(ctx context.Context, in listArgs) (any, error) {
				status := in.Status
				if status == "all" {
					status = ""
				}
				return store.ListTasks(ctx, status)
			}),
		},
		registry.Action{
			Name:        "get",
			Description: "Show one task",
			Schema:      idSchema,
			Flags:       registry.Flags{ReadOnly: true, Idempotent: true},
			Presenter:   tasks,
			Handler: registry.Bind(func(ctx context.Context, in idArgs) (any, error) {
				return store.GetTask(ctx, in.ID)
			}),
		},
		registry.Action{
			Name:        "create",
			Description: "Create an open task",
			Schema: schema.New(
				schema.Required("title", schema.String()).Describe("Short task title"),
				schema.Optional("owner", schema.String()).Describe("Owner user id"),
			),
			Flags:      registry.Flags{Destructive: true},
			Middleware: []registry.Middleware{middleware.RateLimit(o.limiter, middleware.ArgKey("owner"))},
			Presenter:  tasks,
			Handler: registry.Bind(func(ctx context.Context, in createArgs) (any, error) {
				return store.CreateTask(ctx, in.Title, in.Owner)
			}),
		},
		registry.Action{
			Name:        "complete",
			Description: "Mark a task as done",
			Schema:      idSchema,
			Flags:       registry.Flags{Destructive: true, Idempotent: true},
			Presenter:   tasks,
			Handler: registry.Bind(func(ctx context.Context, in idArgs) (any, error) {
				return store.CompleteTask(ctx, in.ID)
			}),
		},
		registry.Action{
			Name:        "delete",
			Description: "Delete a task permanently",
			Schema:      idSchema,
			Flags:       registry.Flags{Destructive: true},
			Handler: registry.Bind(func(ctx context.Context, in idArgs) (any, error) {
				if err := store.DeleteTask(ctx, in.ID); err != nil {
					return nil, err
				}
				return response.NewBuilder().
					Data(map[string]any{"deleted": in.ID}).
					Suggest(response.Suggestion{Action: "list", Reason: "review the remaining tasks"}).
					Build(), nil
			}),
		},
		registry.Action{
			Name:        "ping",
			Description: "Check the task database",
			Flags:       registry.Flags{ReadOnly: true, Idempotent: true},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				if err := store.Ping(ctx); err != nil {
					return nil, err
				}
				return "pong", nil
			},
		},
	)
	return tool
}
