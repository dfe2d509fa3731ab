package presenter

import (
	"context"
	"fmt"
	"strings"
)

type selectionKey struct{}

// WithSelection returns a context carrying a caller's field selection, picked
// up by Make when no Select option is given.
func WithSelection(ctx context.Context, fields []string) context.Context {
	return context.WithValue(ctx, selectionKey{}, fields)
}

// SelectionFromContext returns the selection stored by WithSelection.
func SelectionFromContext(ctx context.Context) []string {
	fields, _ := ctx.Value(selectionKey{}).([]string)
	return fields
}

// withoutSelection hides the caller selection from embedded presenters.
func withoutSelection(ctx context.Context) context.Context {
	if SelectionFromContext(ctx) == nil {
		return ctx
	}
	return context.WithValue(ctx, selectionKey{}, []string(nil))
}

// ParseSelection accepts a list of strings or a comma-separated string.
func ParseSelection(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		var out []string
		for _, f := range strings.Split(val, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out, nil
	case []string:
		return val, nil
	case []any:
		out := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: expected string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected list of field names, got %T", v)
}

// project keeps the selected top-level keys of each object and returns the
// names it could not match. When none of them is known the data is returned
// whole.
func project(data any, selection []string, known func(string) bool) (any, []string) {
	var keep, unknown []string
	for _, f := range selection {
		if known(f) {
			keep = append(keep, f)
		} else {
			unknown = append(unknown, f)
		}
	}
	if len(keep) == 0 {
		return data, unknown
	}

	pick := func(m map[string]any) map[string]any {
		out := make(map[string]any, len(keep))
		for _, k := range keep {
			if v, ok := m[k]; ok {
				out[k] = v
			}
		}
		return out
	}

	switch d := data.(type) {
	case map[string]any:
		return pick(d), unknown
	case []any:
		out := make([]any, len(d))
		for i, item := range d {
			if m, ok := item.(map[string]any); ok {
				out[i] = pick(m)
			} else {
				out[i] = item
			}
		}
		return out, unknown
	}
	return data, unknown
}

// selectionNotice tells the caller which selected names were ignored.
func selectionNotice(unknown []string, projected bool) string {
	if len(unknown) == 0 {
		return ""
	}
	msg := fmt.Sprintf("[SELECTION]: Unknown field(s) ignored: %s.", strings.Join(unknown, ", "))
	if !projected {
		msg += " No selected field matched, so all fields were returned."
	}
	return msg
}
