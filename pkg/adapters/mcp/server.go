package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Executor is the part of toolgate.Server the adapter needs.
type Executor interface {
	Name() string
	Tools() []*registry.ExecutionContext
	Execute(ctx context.Context, tool string, args map[string]any) (*response.Response, error)
}

// Server exposes every registered tool as an MCP tool.
type Server struct {
	executor  Executor
	mcpServer *server.MCPServer
	tools     []mcp.Tool
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(executor Executor, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		executor: executor,
		logger:   logger,
		mcpServer: server.NewMCPServer(executor.Name(), strings.TrimSpace(version),
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// Tools returns the MCP descriptors of the registered tools.
func (s *Server) Tools() []mcp.Tool { return s.tools }

// ServeStdio serves on Stdin/Stdout until the input ends or ctx is
// cancelled. Cancellation is not reported as an error.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	for _, ec := range s.executor.Tools() {
		tool, err := Describe(ec)
		if err != nil {
			s.logger.Error("Failed to describe tool", "tool", ec.Tool, "err", err)
			continue
		}
		s.tools = append(s.tools, tool)
		s.mcpServer.AddTool(tool, s.handler(ec.Tool))
	}
}

// Describe builds the MCP descriptor of a compiled tool: the action summary
// as description, the union input schema and behaviour annotations.
func Describe(ec *registry.ExecutionContext) (mcp.Tool, error) {
	raw, err := json.Marshal(ec.InputSchema())
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("failed to encode input schema: %w", err)
	}
	tool := mcp.NewToolWithRawSchema(ec.Tool, ec.Summary(), raw)

	flags := ec.Flags()
	tool.Annotations = mcp.ToolAnnotation{
		Title:           ec.Tool,
		ReadOnlyHint:    mcp.ToBoolPtr(flags.ReadOnly),
		DestructiveHint: mcp.ToBoolPtr(flags.Destructive),
		IdempotentHint:  mcp.ToBoolPtr(flags.Idempotent),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}
	return tool, nil
}

func (s *Server) handler(tool string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.Call(ctx, tool, request)
	}
}

// Call executes request against tool and converts the response: each
// segment becomes one text content block.
func (s *Server) Call(ctx context.Context, tool string, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		args = map[string]any{}
	}

	resp, err := s.executor.Execute(ctx, tool, args)
	if err != nil && resp == nil {
		return mcp.NewToolResultError(fmt.Sprintf("call failed: %v", err)), nil
	}
	if err != nil {
		s.logger.Error("MCP Call: handler fault", "tool", tool, "err", err)
	}
	return ToResult(resp), nil
}

// ToResult converts a response into an MCP tool result.
func ToResult(resp *response.Response) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		content = append(content, mcp.NewTextContent(seg.Text))
	}
	return &mcp.CallToolResult{
		Content: content,
		IsError: resp.IsError,
	}
}
