package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/toolgate/pkg/response"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// Printer writes responses to a terminal or a plain stream.
type Printer struct {
	out    io.Writer
	styled bool
	render func(string) (string, error)
	output *termenv.Output
}

// NewPrinter creates a Printer. When styled is false the raw segment text
// is written unchanged, which is what pipes and scripts expect.
func NewPrinter(out io.Writer, styled bool) *Printer {
	p := &Printer{out: out, styled: styled}
	if styled {
		p.render = NewRenderer()
		p.output = termenv.NewOutput(out)
	}
	return p
}

// Print writes every segment of resp.
func (p *Printer) Print(resp *response.Response) error {
	if !p.styled {
		_, err := fmt.Fprintln(p.out, resp.String())
		return err
	}
	for _, seg := range resp.Segments {
		text, err := p.segment(seg)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(p.out, text); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) segment(seg response.Segment) (string, error) {
	switch seg.Kind {
	case response.KindError:
		return p.output.String(seg.Text).Foreground(p.output.Color("#f87171")).Bold().String(), nil
	case response.KindNotice:
		return p.output.String(seg.Text).Foreground(p.output.Color("#fbbf24")).String(), nil
	case response.KindData:
		return p.render(fence(seg.Text))
	case response.KindUI:
		return p.render(uiMarkdown(seg.Text))
	default:
		return p.render(seg.Text)
	}
}

// fence pretty-prints JSON data inside a code block; other text is kept.
func fence(text string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
		return text
	}
	return "```json\n" + buf.String() + "\n```"
}

// uiMarkdown drops the block header line so glamour renders the content.
func uiMarkdown(text string) string {
	if _, body, ok := strings.Cut(text, "\n"); ok && strings.HasPrefix(text, "[UI_BLOCK") {
		return body
	}
	return text
}
