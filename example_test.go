package toolgate_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/toolgate"
	"github.com/aretw0/toolgate/pkg/presenter"
	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/schema"
)

// ExampleServer demonstrates a tool with two actions and the structured error
// an agent receives for an unknown action.
func ExampleServer() {
	tool := registry.NewTool("greeter", registry.WithDescription("Say things."))
	tool.MustRegister(
		registry.Action{
			Name:   "hello",
			Schema: schema.New(schema.Required("name", schema.String())),
			Flags:  registry.Flags{ReadOnly: true},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return fmt.Sprintf("Hello, %s!", args["name"]), nil
			},
		},
		registry.Action{
			Name: "bye",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return "Goodbye.", nil
			},
		},
	)

	srv := toolgate.New()
	if err := srv.Register(tool); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	resp, _ := srv.Execute(ctx, "greeter", map[string]any{"action": "hello", "name": "Ada"})
	fmt.Println(resp.Data())

	resp, _ = srv.Execute(ctx, "greeter", map[string]any{"action": "wave"})
	fmt.Println(resp.ErrorKind())

	// Output:
	// Hello, Ada!
	// UNKNOWN_ACTION
}

// ExampleServer_presenter demonstrates a presenter shaping handler output:
// undeclared fields are stripped, secrets are masked and the caller's
// selection narrows the data.
func ExampleServer_presenter() {
	users := presenter.New("User",
		presenter.WithSchema(schema.New(
			schema.Required("id", schema.Int()),
			schema.Required("name", schema.String()),
			schema.Optional("token", schema.String()),
		)),
		presenter.WithRedaction("token"),
		presenter.WithRules("Users are read-only."),
	)

	tool := registry.NewTool("users")
	tool.MustRegister(registry.Action{
		Name:      "get",
		Presenter: users,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"id": 1, "name": "Ada", "token": "s3cret", "internal": true}, nil
		},
	})

	srv := toolgate.New()
	if err := srv.Register(tool); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	resp, _ := srv.Execute(ctx, "users", map[string]any{"action": "get"})
	fmt.Println(resp.String())

	resp, _ = srv.Execute(ctx, "users", map[string]any{"action": "get", "_select": []any{"name"}})
	fmt.Println(resp.Data())

	// Output:
	// {"id":1,"name":"Ada","token":"[REDACTED]"}
	//
	// [DOMAIN RULES]:
	// - Users are read-only.
	// {"name":"Ada"}
}
