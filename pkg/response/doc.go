// Package response defines the reply of a tool call and the builder that
// assembles it.
//
// A Response is an ordered list of text segments: exactly one data (or error)
// segment, then auxiliary segments such as overflow notices, UI blocks,
// domain rules and action suggestions. Failures are data too: Error renders a
// structured <tool_error> envelope with a code, a message, an optional
// recovery hint and the list of valid alternatives, so callers can
// self-correct instead of crashing on a protocol error.
package response
