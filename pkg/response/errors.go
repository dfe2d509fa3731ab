package response

import (
	"fmt"
	"strings"
)

// ErrorKind is the machine-readable code of a failed call.
type ErrorKind string

const (
	MissingSelector        ErrorKind = "MISSING_SELECTOR"
	UnknownAction          ErrorKind = "UNKNOWN_ACTION"
	ValidationFailed       ErrorKind = "VALIDATION_FAILED"
	DomainValidationFailed ErrorKind = "DOMAIN_VALIDATION_FAILED"
	Busy                   ErrorKind = "BUSY"
	Cancelled              ErrorKind = "CANCELLED"
	HandlerFault           ErrorKind = "HANDLER_FAULT"
	RateLimited            ErrorKind = "RATE_LIMITED"
)

type toolError struct {
	details   []string
	recovery  string
	available []string
}

// ErrorOption enriches an error response.
type ErrorOption func(*toolError)

// WithDetails adds one line per detail, e.g. field-level validation messages.
func WithDetails(lines ...string) ErrorOption {
	return func(e *toolError) {
		e.details = append(e.details, lines...)
	}
}

// WithRecovery adds a hint telling the caller how to self-correct.
func WithRecovery(hint string) ErrorOption {
	return func(e *toolError) {
		e.recovery = hint
	}
}

// WithAvailable lists the valid alternatives (e.g. action keys).
func WithAvailable(keys ...string) ErrorOption {
	return func(e *toolError) {
		e.available = append(e.available, keys...)
	}
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Error builds an error response in the structured tool_error envelope:
//
//	<tool_error code="UNKNOWN_ACTION">
//	<message>...</message>
//	<recovery>...</recovery>
//	<available_actions>a, b</available_actions>
//	</tool_error>
func Error(kind ErrorKind, message string, opts ...ErrorOption) *Response {
	var te toolError
	for _, opt := range opts {
		opt(&te)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<tool_error code=%q>\n", string(kind))
	fmt.Fprintf(&b, "<message>%s</message>\n", escaper.Replace(message))
	if len(te.details) > 0 {
		b.WriteString("<details>\n")
		for _, d := range te.details {
			fmt.Fprintf(&b, "- %s\n", escaper.Replace(d))
		}
		b.WriteString("</details>\n")
	}
	if te.recovery != "" {
		fmt.Fprintf(&b, "<recovery>%s</recovery>\n", escaper.Replace(te.recovery))
	}
	if len(te.available) > 0 {
		fmt.Fprintf(&b, "<available_actions>%s</available_actions>\n", escaper.Replace(strings.Join(te.available, ", ")))
	}
	b.WriteString("</tool_error>")

	return &Response{
		Segments: []Segment{{Kind: KindError, Text: b.String()}},
		IsError:  true,
	}
}

// ErrorKind extracts the code of an error response. It returns "" for
// successful responses.
func (r *Response) ErrorKind() ErrorKind {
	if !r.IsError {
		return ""
	}
	text := r.Data()
	const prefix = `<tool_error code="`
	i := strings.Index(text, prefix)
	if i < 0 {
		return ""
	}
	rest := text[i+len(prefix):]
	j := strings.IndexByte(rest, '"')
	if j < 0 {
		return ""
	}
	return ErrorKind(rest[:j])
}
