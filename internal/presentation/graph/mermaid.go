package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/toolgate/pkg/registry"
)

// GenerateMermaid produces a Mermaid flowchart of a compiled tool: the tool,
// its groups and one node per action. Shapes follow the action flags:
// - Tool: ((Circle))
// - Group: [Rectangle]
// - Destructive: [[Subroutine]]
// - Read-only: ([Stadium])
// - Default: [Rectangle]
func GenerateMermaid(ec *registry.ExecutionContext) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	root := sanitizeMermaidID(ec.Tool)
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", root, ec.Tool)

	groups := make(map[string]bool)
	var destructive, readOnly []string
	for _, key := range ec.Keys() {
		c, _ := ec.Lookup(key)
		parent := root
		if group, _, ok := strings.Cut(key, "."); ok {
			parent = root + "__" + sanitizeMermaidID(group)
			if !groups[group] {
				groups[group] = true
				fmt.Fprintf(&sb, "    %s[\"%s\"]\n", parent, group)
				fmt.Fprintf(&sb, "    %s --> %s\n", root, parent)
			}
		}

		id := root + "__" + sanitizeMermaidID(key)
		opener, closer := "[", "]"
		switch {
		case c.Action.Flags.Destructive:
			opener, closer = "[[", "]]"
			destructive = append(destructive, id)
		case c.Action.Flags.ReadOnly:
			opener, closer = "([", "])"
			readOnly = append(readOnly, id)
		}
		label := c.Action.Name
		if c.Depth > 0 {
			label = fmt.Sprintf("%s <br/> %d middleware", label, c.Depth)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)
		fmt.Fprintf(&sb, "    %s --> %s\n", parent, id)
	}

	if len(destructive) > 0 || len(readOnly) > 0 {
		sb.WriteString("\n    %% Flag Styles\n")
		sb.WriteString("    classDef destructive fill:#fee2e2,stroke:#b91c1c,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef readonly fill:#e1f5fe,stroke:#01579b,color:#000;\n")
		if len(destructive) > 0 {
			fmt.Fprintf(&sb, "    class %s destructive;\n", strings.Join(destructive, ","))
		}
		if len(readOnly) > 0 {
			fmt.Fprintf(&sb, "    class %s readonly;\n", strings.Join(readOnly, ","))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
