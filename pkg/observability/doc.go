/*
Package observability provides hooks for monitoring the dispatch pipeline.

The Dispatcher reports the start of each call, the outcome of each pipeline
step and the end of each call through a Hooks value. Ready-made
implementations log through slog, record Prometheus metrics and emit
OpenTelemetry spans; Combine fans a call out to several of them.

Hooks run synchronously on the calling goroutine. A panicking hook is
recovered and never changes the outcome of the call.
*/
package observability
