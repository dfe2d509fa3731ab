package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/toolgate"
	"github.com/aretw0/toolgate/internal/config"
	httpadapter "github.com/aretw0/toolgate/pkg/adapters/http"
	"github.com/aretw0/toolgate/pkg/adapters/mcp"
	"github.com/aretw0/toolgate/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts toolgate as an MCP Server, optionally with a JSON API and Prometheus metrics.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("transport") {
			cfg.Server.Transport, _ = cmd.Flags().GetString("transport")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("http-port") {
			cfg.Server.HTTPPort, _ = cmd.Flags().GetInt("http-port")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("transport", config.TransportStdio, "Transport protocol to use: 'stdio' or 'sse'")
	serveCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	serveCmd.Flags().Int("http-port", 0, "Port for the JSON API and /metrics (0 disables it)")
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hooks := observability.Combine(
		observability.NewLoggingHooks(logger),
		observability.NewMetricsHooks(observability.NewMetrics(reg)),
		observability.NewTracingHooks(otel.Tracer("github.com/aretw0/toolgate")),
	)

	a, err := newApp(ctx, cfg, logger, hooks)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpServer := mcp.NewServer(a.server, toolgate.Version, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Any transport ending stops the others.
		defer cancel()
		switch cfg.Server.Transport {
		case config.TransportSSE:
			logger.Info("Starting toolgate MCP Server (SSE)", "port", cfg.Server.Port, "tools", a.server.ToolNames())
			if err := mcpServer.ServeSSE(ctx, cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("MCP server failed: %w", err)
			}
		default:
			logger.Info("Starting toolgate MCP Server (Stdio)...", "tools", a.server.ToolNames())
			if err := mcpServer.ServeStdio(ctx); err != nil {
				return fmt.Errorf("MCP server failed: %w", err)
			}
		}
		return nil
	})

	if cfg.Server.HTTPPort > 0 {
		handler := httpadapter.NewHandler(a.server,
			httpadapter.WithVersion(toolgate.Version),
			httpadapter.WithMetrics(reg),
			httpadapter.WithLogger(logger),
		)
		g.Go(func() error {
			return listen(ctx, fmt.Sprintf(":%d", cfg.Server.HTTPPort), handler, logger)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("toolgate stopped gracefully")
	return nil
}

// listen serves handler on addr until ctx ends.
func listen(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "address", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		return nil
	}
}
