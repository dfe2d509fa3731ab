package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Key    string // Field name
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// ValidationErrors returns all validation errors if err is (or wraps) an
// AggregateError. Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// FieldMessages flattens err into one "field: reason" line per failure.
func FieldMessages(err error) []string {
	errs := ValidationErrors(err)
	if errs == nil {
		if err == nil {
			return nil
		}
		return []string{err.Error()}
	}
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		var ve *ValidationError
		if errors.As(e, &ve) {
			lines = append(lines, fmt.Sprintf("%s: %s", ve.Key, ve.Reason))
			continue
		}
		lines = append(lines, e.Error())
	}
	return lines
}
