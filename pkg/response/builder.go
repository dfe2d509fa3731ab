package response

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// UIBlock is a renderable artifact (diagram, table, summary) attached to a
// response for the client to display.
type UIBlock struct {
	Type    string
	Content string
}

// Mermaid wraps a mermaid diagram.
func Mermaid(code string) UIBlock { return UIBlock{Type: "mermaid", Content: code} }

// Markdown wraps free-form markdown.
func Markdown(text string) UIBlock { return UIBlock{Type: "markdown", Content: text} }

// Summary wraps a one-paragraph summary.
func Summary(text string) UIBlock { return UIBlock{Type: "summary", Content: text} }

// Table renders rows as a markdown table.
func Table(headers []string, rows [][]string) UIBlock {
	var b strings.Builder
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return UIBlock{Type: "markdown", Content: strings.TrimRight(b.String(), "\n")}
}

func (u UIBlock) render() string {
	switch u.Type {
	case "mermaid":
		return fmt.Sprintf("[UI_BLOCK type=mermaid]\n```mermaid\n%s\n```", u.Content)
	default:
		return fmt.Sprintf("[UI_BLOCK type=%s]\n%s", u.Type, u.Content)
	}
}

// Suggestion recommends a follow-up action to the caller.
type Suggestion struct {
	Action string
	Reason string
	Args   map[string]any
}

func (s Suggestion) render() string {
	line := "→ " + s.Action
	if len(s.Args) > 0 {
		keys := make([]string, 0, len(s.Args))
		for k := range s.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, s.Args[k])
		}
		line += "(" + strings.Join(parts, ", ") + ")"
	}
	if s.Reason != "" {
		line += ": " + s.Reason
	}
	return line
}

// Builder assembles a Response: one data segment first, then auxiliary
// segments in the order they were added.
type Builder struct {
	data    any
	hasData bool
	rawText bool
	aux     []Segment
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Data sets the value encoded as JSON into the data segment.
func (b *Builder) Data(v any) *Builder {
	b.data, b.hasData, b.rawText = v, true, false
	return b
}

// Text sets pre-formatted text as the data segment.
func (b *Builder) Text(s string) *Builder {
	b.data, b.hasData, b.rawText = s, true, true
	return b
}

// Notice appends a system notice such as an overflow warning.
func (b *Builder) Notice(text string) *Builder {
	if text != "" {
		b.aux = append(b.aux, Segment{Kind: KindNotice, Text: text})
	}
	return b
}

// UI appends rendered UI blocks.
func (b *Builder) UI(blocks ...UIBlock) *Builder {
	for _, blk := range blocks {
		if blk.Content == "" {
			continue
		}
		b.aux = append(b.aux, Segment{Kind: KindUI, Text: blk.render()})
	}
	return b
}

// Rules appends a domain rules segment. Empty rules are dropped and nothing
// is appended when none remain.
func (b *Builder) Rules(rules ...string) *Builder {
	var lines []string
	for _, r := range rules {
		if strings.TrimSpace(r) != "" {
			lines = append(lines, "- "+r)
		}
	}
	if len(lines) > 0 {
		b.aux = append(b.aux, Segment{Kind: KindRules, Text: "[DOMAIN RULES]:\n" + strings.Join(lines, "\n")})
	}
	return b
}

// Suggest appends an action suggestions segment.
func (b *Builder) Suggest(suggestions ...Suggestion) *Builder {
	var lines []string
	for _, s := range suggestions {
		if s.Action != "" {
			lines = append(lines, s.render())
		}
	}
	if len(lines) > 0 {
		b.aux = append(b.aux, Segment{Kind: KindSuggestions, Text: "[SYSTEM HINT]: Recommended next actions:\n" + strings.Join(lines, "\n")})
	}
	return b
}

// Absorb appends the auxiliary segments of other, skipping any text already
// present. The data segment of other is ignored.
func (b *Builder) Absorb(other *Builder) *Builder {
	if other == nil {
		return b
	}
	for _, seg := range other.aux {
		if !slices.Contains(b.aux, seg) {
			b.aux = append(b.aux, seg)
		}
	}
	return b
}

// Auxiliary returns a copy of the auxiliary segments added so far.
func (b *Builder) Auxiliary() []Segment {
	return slices.Clone(b.aux)
}

// Build returns the assembled response.
func (b *Builder) Build() *Response {
	segments := make([]Segment, 0, len(b.aux)+1)
	segments = append(segments, Segment{Kind: KindData, Text: b.dataText()})
	segments = append(segments, b.aux...)
	return &Response{Segments: segments}
}

func (b *Builder) dataText() string {
	if !b.hasData {
		return "OK"
	}
	if b.rawText {
		return b.data.(string)
	}
	raw, err := json.Marshal(b.data)
	if err != nil {
		return fmt.Sprintf("%v", b.data)
	}
	return string(raw)
}
