package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/toolgate"
	"github.com/aretw0/toolgate/internal/config"
	"github.com/aretw0/toolgate/internal/demo"
	"github.com/aretw0/toolgate/pkg/adapters/memory"
	redisadapter "github.com/aretw0/toolgate/pkg/adapters/redis"
	"github.com/aretw0/toolgate/pkg/observability"
	backend "github.com/redis/go-redis/v9"
)

// app holds a configured server and the resources it owns.
type app struct {
	server  *toolgate.Server
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// newApp builds the server described by cfg and registers the bundled tools.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, hooks observability.Hooks) (*app, error) {
	a := &app{}
	opts := append(cfg.ServerOptions(),
		toolgate.WithLogger(logger),
		toolgate.WithHooks(hooks),
	)
	a.server = toolgate.New(opts...)

	var demoOpts []demo.Option
	demoOpts = append(demoOpts, demo.WithLogger(logger))

	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, client.Close)
		locker := redisadapter.NewLocker(client, redisadapter.WithPrefix(cfg.Redis.Prefix))
		demoOpts = append(demoOpts, demo.WithLocker(locker, cfg.Redis.LockTTL))
		logger.Info("Distributed mutation locks enabled", "addr", cfg.Redis.Addr)
	} else {
		demoOpts = append(demoOpts, demo.WithLocker(memory.NewLocker(), cfg.Redis.LockTTL))
	}

	if cfg.Demo.Enabled {
		store, err := demo.Open(cfg.Demo.Database)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if err := a.server.Register(demo.NewTool(store, demoOpts...)); err != nil {
			a.Close()
			return nil, err
		}
	}

	if len(a.server.ToolNames()) == 0 {
		a.Close()
		return nil, fmt.Errorf("no tools configured (enable demo in the configuration)")
	}
	return a, nil
}
