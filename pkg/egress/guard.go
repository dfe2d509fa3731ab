// Package egress enforces a hard cap on the size of responses leaving the
// process, independently of any domain-aware truncation upstream.
package egress

import (
	"unicode/utf8"

	"github.com/aretw0/toolgate/pkg/response"
)

// Notice is appended to every truncated response.
const Notice = "[SYSTEM INTERVENTION]: Response truncated because it exceeded the maximum payload size. " +
	"Narrow the request with filters, pagination or a field selection (_select) and try again."

// Apply returns resp unchanged when its text fits in maxBytes (or when
// maxBytes <= 0). Otherwise it returns a copy whose segments are cut to fit,
// with Notice appended as a final notice segment, so the total stays within
// maxBytes. The first data or error segment is always kept, with empty text if
// nothing else fits. The error flag is carried over untouched.
func Apply(resp *response.Response, maxBytes int) *response.Response {
	if resp == nil || maxBytes <= 0 || resp.Size() <= maxBytes {
		return resp
	}

	notice := cut(Notice, maxBytes)
	budget := maxBytes - len(notice)

	out := &response.Response{IsError: resp.IsError}
	primary := false
	for _, seg := range resp.Segments {
		isPrimary := !primary && (seg.Kind == response.KindData || seg.Kind == response.KindError)
		if budget <= 0 && !isPrimary {
			continue
		}
		if isPrimary {
			primary = true
		}
		if len(seg.Text) > budget {
			seg.Text = cut(seg.Text, budget)
		}
		out.Segments = append(out.Segments, seg)
		budget -= len(seg.Text)
	}
	out.Segments = append(out.Segments, response.Segment{Kind: response.KindNotice, Text: notice})
	return out
}

// cut shortens s to at most n bytes without splitting a UTF-8 sequence.
func cut(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
