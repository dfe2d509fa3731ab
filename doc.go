/*
Package toolgate is a server-side framework for exposing many fine-grained operations to AI agents through a few coarse tools.

Each tool groups related actions behind a selector argument ("action"). Calls go through a fixed pipeline: admission control, routing, strict argument validation, middleware, mutation serialization for destructive actions, domain presentation and a hard cap on the response size.

# Concept

Agents choose better from a short tool list. Toolgate keeps the list short while each tool still routes to dozens of typed actions, and it shapes every reply for a language model: data first, then notices, UI blocks, domain rules and suggested next actions. Failures are never thrown at the agent; they come back as structured <tool_error> responses with a recovery hint.

# Key Features

  - Grouped Tools: one registration unit, many actions, each with its own schema, flags and middleware.
  - Load Shedding: a bounded FIFO gate per tool answers BUSY instead of queueing forever.
  - Safe Mutations: destructive actions on the same key never overlap, optionally across replicas through a Redis lock.
  - Presenters: strip-mode validation, projection, redaction, truncation with an overflow notice, embedded child presenters.
  - Observability: hooks for slog, Prometheus and OpenTelemetry with a zero-cost path when unused.

# Usage

	tool := registry.NewTool("tasks", registry.WithDescription("Manage tasks."))
	tool.MustRegister(registry.Action{
		Name:    "list",
		Flags:   registry.Flags{ReadOnly: true},
		Handler: listTasks,
	})

	srv := toolgate.New(toolgate.WithLimits(toolgate.DefaultLimits()))
	if err := srv.Register(tool); err != nil {
		log.Fatal(err)
	}

	resp, err := srv.Execute(ctx, "tasks", map[string]any{"action": "list"})

Transports live in pkg/adapters: mcp serves the tools over the Model Context Protocol and http over a small JSON API.
*/
package toolgate
