package middleware

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
)

// DefaultMaxInputSize bounds each string argument (4KB).
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeString enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return.
func SanitizeString(input string, limit int) (string, error) {
	if limit > 0 && len(input) > limit {
		// Rejected rather than truncated so the handler never acts on partial input.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// Sanitize cleans every string in the arguments, nested values included.
// Oversized or malformed strings fail the call with VALIDATION_FAILED.
// A limit of zero or less uses DefaultMaxInputSize.
func Sanitize(limit int) registry.Middleware {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	return func(ctx context.Context, args map[string]any, next registry.Handler) (any, error) {
		var details []string
		clean := make(map[string]any, len(args))
		for k, v := range args {
			out, err := sanitizeValue(v, limit)
			if err != nil {
				details = append(details, fmt.Sprintf("%s: %v", k, err))
				continue
			}
			clean[k] = out
		}
		if len(details) > 0 {
			sort.Strings(details)
			return response.Error(response.ValidationFailed,
				"Some arguments were rejected by input sanitization.",
				response.WithDetails(details...),
				response.WithRecovery(fmt.Sprintf("Send valid UTF-8 strings of at most %d bytes.", limit)),
			), nil
		}
		return next(ctx, clean)
	}
}

func sanitizeValue(v any, limit int) (any, error) {
	switch t := v.(type) {
	case string:
		return SanitizeString(t, limit)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			c, err := sanitizeValue(e, limit)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			c, err := sanitizeValue(e, limit)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return v, nil
	}
}
