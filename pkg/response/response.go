package response

import (
	"strings"
)

// SegmentKind labels a content segment of a Response.
type SegmentKind string

const (
	KindData        SegmentKind = "data"
	KindNotice      SegmentKind = "notice"
	KindUI          SegmentKind = "ui"
	KindRules       SegmentKind = "rules"
	KindSuggestions SegmentKind = "suggestions"
	KindError       SegmentKind = "error"
)

// Segment is one ordered block of text sent back to the caller.
type Segment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text"`
}

// Response is the reply of a single call: exactly one data (or error)
// segment followed by auxiliary segments.
type Response struct {
	Segments []Segment `json:"segments"`
	IsError  bool      `json:"isError,omitempty"`
}

// Text returns a successful response with a single data segment.
func Text(s string) *Response {
	return &Response{Segments: []Segment{{Kind: KindData, Text: s}}}
}

// Size returns the number of bytes of text carried by the response.
func (r *Response) Size() int {
	n := 0
	for _, s := range r.Segments {
		n += len(s.Text)
	}
	return n
}

// Data returns the text of the first data or error segment.
func (r *Response) Data() string {
	for _, s := range r.Segments {
		if s.Kind == KindData || s.Kind == KindError {
			return s.Text
		}
	}
	return ""
}

// Find returns the texts of all segments of the given kind, in order.
func (r *Response) Find(kind SegmentKind) []string {
	var out []string
	for _, s := range r.Segments {
		if s.Kind == kind {
			out = append(out, s.Text)
		}
	}
	return out
}

// String joins all segment texts with blank lines.
func (r *Response) String() string {
	parts := make([]string, len(r.Segments))
	for i, s := range r.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, "\n\n")
}

// Clone returns a copy whose segment slice can be modified independently.
func (r *Response) Clone() *Response {
	out := &Response{IsError: r.IsError, Segments: make([]Segment, len(r.Segments))}
	copy(out.Segments, r.Segments)
	return out
}
