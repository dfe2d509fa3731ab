package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the toolgate banner to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"  _              _             _       ", "#818cf8"},
		{" | |_ ___   ___ | | __ _  __ _| |_ ___ ", "#a78bfa"},
		{" | __/ _ \\ / _ \\| |/ _` |/ _` | __/ _ \\", "#c084fc"},
		{" | || (_) | (_) | | (_| | (_| | ||  __/", "#e879f9"},
		{"  \\__\\___/ \\___/|_|\\__, |\\__,_|\\__\\___|", "#f472b6"},
		{"                   |___/               ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintf(w, "  v%s\n\n", version)
}
