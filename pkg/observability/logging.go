package observability

import (
	"context"
	"log/slog"
)

// NewLoggingHooks logs steps at debug level and call ends at info level, or
// warn when the call produced an error response.
func NewLoggingHooks(logger *slog.Logger) Hooks {
	return Hooks{
		OnStep: func(ctx context.Context, e *Event) {
			if !logger.Enabled(ctx, slog.LevelDebug) {
				return
			}
			attrs := []any{
				"call_id", e.CallID,
				"tool", e.Tool,
				"step", e.Step,
				"ok", e.OK,
				"duration", e.Duration,
			}
			if e.Action != "" {
				attrs = append(attrs, "action", e.Action)
			}
			if e.Err != nil {
				attrs = append(attrs, "err", e.Err)
			}
			logger.DebugContext(ctx, "Pipeline step", attrs...)
		},
		OnCallEnd: func(ctx context.Context, e *Event) {
			attrs := []any{
				"call_id", e.CallID,
				"tool", e.Tool,
				"action", e.Action,
				"duration", e.Duration,
				"chain", e.ChainLength,
			}
			if e.OK {
				logger.InfoContext(ctx, "Call completed", attrs...)
				return
			}
			attrs = append(attrs, "kind", e.ErrorKind)
			if e.Err != nil {
				attrs = append(attrs, "err", e.Err)
			}
			logger.WarnContext(ctx, "Call failed", attrs...)
		},
	}
}
