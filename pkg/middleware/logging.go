// Package middleware provides reusable links for action middleware chains.
package middleware

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
)

// Logging logs every call that reaches it with the argument names (never
// their values), its duration and outcome.
func Logging(logger *slog.Logger) registry.Middleware {
	return func(ctx context.Context, args map[string]any, next registry.Handler) (any, error) {
		start := time.Now()
		out, err := next(ctx, args)

		attrs := []any{
			"args", argNames(args),
			"duration", time.Since(start),
		}
		switch {
		case err != nil:
			logger.WarnContext(ctx, "Action returned error", append(attrs, "err", err)...)
		case isErrorResponse(out):
			logger.InfoContext(ctx, "Action returned error response", append(attrs, "kind", out.(*response.Response).ErrorKind())...)
		default:
			logger.DebugContext(ctx, "Action completed", attrs...)
		}
		return out, err
	}
}

func argNames(args map[string]any) []string {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func isErrorResponse(v any) bool {
	r, ok := v.(*response.Response)
	return ok && r != nil && r.IsError
}
