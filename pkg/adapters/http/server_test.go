package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/toolgate"
	httpadapter "github.com/aretw0/toolgate/pkg/adapters/http"
	"github.com/aretw0/toolgate/pkg/gate"
	"github.com/aretw0/toolgate/pkg/observability"
	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
	"github.com/aretw0/toolgate/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, opts ...httpadapter.Option) (http.Handler, *prometheus.Registry) {
	t.Helper()
	tool := registry.NewTool("echo", registry.WithDescription("Echo things back."))
	tool.MustRegister(registry.Action{
		Name:   "say",
		Schema: schema.New(schema.Required("text", schema.String())),
		Flags:  registry.Flags{ReadOnly: true, Idempotent: true},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"said": args["text"]}, nil
		},
	})

	reg := prometheus.NewRegistry()
	srv := toolgate.New(
		toolgate.WithName("http-test"),
		toolgate.WithHooks(observability.NewMetricsHooks(observability.NewMetrics(reg))),
	)
	require.NoError(t, srv.Register(tool))

	opts = append([]httpadapter.Option{httpadapter.WithVersion("1.2.3\n"), httpadapter.WithMetrics(reg)}, opts...)
	return httpadapter.NewHandler(srv, opts...), reg
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newHandler(t)

	w := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, http.MethodGet, "/info", "")
	assert.JSONEq(t, `{"app":"http-test","version":"1.2.3"}`, w.Body.String())
}

func TestListTools(t *testing.T) {
	h, _ := newHandler(t)

	w := do(h, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	var tools []httpadapter.ToolInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tools))
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name)
	assert.Equal(t, []string{"say"}, tools[0].Actions)
	assert.True(t, tools[0].ReadOnly)
	assert.False(t, tools[0].Destructive)
	assert.Contains(t, tools[0].InputSchema["properties"], "text")
}

func TestCallTool(t *testing.T) {
	h, _ := newHandler(t)

	w := do(h, http.MethodPost, "/tools/echo", `{"action":"say","text":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.IsError)
	assert.JSONEq(t, `{"said":"hi"}`, resp.Data())

	w = do(h, http.MethodPost, "/tools/echo", `{"action":"shout"}`)
	require.Equal(t, http.StatusOK, w.Code, "tool errors travel in the body")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsError)
	assert.Equal(t, response.UnknownAction, resp.ErrorKind())

	w = do(h, http.MethodPost, "/tools/nope", `{}`)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, response.UnknownAction, resp.ErrorKind())
}

func TestCallTool_BadBody(t *testing.T) {
	h, _ := newHandler(t, httpadapter.WithMaxBodyBytes(16))

	w := do(h, http.MethodPost, "/tools/echo", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, http.MethodPost, "/tools/echo", `{"action":"say","text":"a much longer text"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestStatsAndMetrics(t *testing.T) {
	h, _ := newHandler(t)
	do(h, http.MethodPost, "/tools/echo", `{"action":"say","text":"hi"}`)

	w := do(h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]gate.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, toolgate.DefaultMaxActive, stats["echo"].MaxActive)
	assert.Zero(t, stats["echo"].Active)

	w = do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `toolgate_calls_total{action="say",outcome="ok",tool="echo"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newHandler(t)
	w := do(h, http.MethodOptions, "/tools/echo", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
