package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/toolgate"
	mcpadapter "github.com/aretw0/toolgate/pkg/adapters/mcp"
	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *mcpadapter.Server {
	t.Helper()
	tool := registry.NewTool("notes", registry.WithDescription("Keep short notes."))
	tool.MustRegister(
		registry.Action{
			Name:        "add",
			Description: "Add a note",
			Schema:      schema.New(schema.Required("text", schema.String())),
			Flags:       registry.Flags{Destructive: true},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return map[string]any{"saved": args["text"]}, nil
			},
		},
		registry.Action{
			Name:  "count",
			Flags: registry.Flags{ReadOnly: true, Idempotent: true},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return 3, nil
			},
		},
	)
	srv := toolgate.New(toolgate.WithName("test-server"))
	require.NoError(t, srv.Register(tool))
	return mcpadapter.NewServer(srv, "1.0.0\n", nil)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func text(t *testing.T, c mcp.Content) string {
	t.Helper()
	tc, ok := c.(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", c)
	return tc.Text
}

func TestServer_DescribesTools(t *testing.T) {
	s := newServer(t)

	tools := s.Tools()
	require.Len(t, tools, 1)
	tool := tools[0]
	assert.Equal(t, "notes", tool.Name)
	assert.Contains(t, tool.Description, "Keep short notes.")
	assert.Contains(t, tool.Description, "- add [destructive]: Add a note")

	require.NotNil(t, tool.Annotations.DestructiveHint)
	assert.True(t, *tool.Annotations.DestructiveHint)
	assert.False(t, *tool.Annotations.ReadOnlyHint)

	var input map[string]any
	require.NoError(t, json.Unmarshal(tool.RawInputSchema, &input))
	props := input["properties"].(map[string]any)
	assert.Contains(t, props, "action")
	assert.Contains(t, props, "text")
}

func TestServer_CallSuccess(t *testing.T) {
	s := newServer(t)

	res, err := s.Call(context.Background(), "notes", callRequest("notes", map[string]any{"action": "add", "text": "hi"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.JSONEq(t, `{"saved":"hi"}`, text(t, res.Content[0]))
}

func TestServer_CallErrorIsData(t *testing.T) {
	s := newServer(t)

	res, err := s.Call(context.Background(), "notes", callRequest("notes", map[string]any{"action": "add"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res.Content[0]), `code="VALIDATION_FAILED"`)

	res, err = s.Call(context.Background(), "notes", callRequest("notes", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res.Content[0]), `code="MISSING_SELECTOR"`)
}
