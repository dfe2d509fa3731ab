package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
)

// Timeout gives the rest of the chain a deadline. Handlers are expected to
// honour ctx; when one returns after the deadline with a context error the
// call is reported as CANCELLED instead of a fault.
func Timeout(d time.Duration) registry.Middleware {
	return func(ctx context.Context, args map[string]any, next registry.Handler) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		out, err := next(ctx, args)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return response.Error(response.Cancelled,
				fmt.Sprintf("The action did not finish within %s.", d),
				response.WithRecovery("Narrow the request or try again later."),
			), nil
		}
		return out, err
	}
}
