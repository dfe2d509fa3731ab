package presenter

import (
	"errors"
	"fmt"

	"github.com/aretw0/toolgate/pkg/schema"
)

// ErrSealed is returned by Configure once the presenter has been used.
var ErrSealed = errors.New("presenter is sealed")

// ValidationError reports handler output that does not match the
// presenter's schema. It signals a handler bug rather than a caller mistake.
type ValidationError struct {
	Presenter string
	// Index is the position of the offending element in a collection, or -1.
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("presenter %q: item %d: %v", e.Presenter, e.Index, e.Err)
	}
	return fmt.Sprintf("presenter %q: %v", e.Presenter, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Details returns one "field: reason" line per failure.
func (e *ValidationError) Details() []string {
	lines := schema.FieldMessages(e.Err)
	if e.Index < 0 {
		return lines
	}
	for i, l := range lines {
		lines[i] = fmt.Sprintf("[%d] %s", e.Index, l)
	}
	return lines
}
