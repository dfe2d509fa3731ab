package presenter

import (
	"fmt"
	"strconv"
	"strings"
)

// Mask replaces redacted values.
const Mask = "[REDACTED]"

type segKind int

const (
	segKey segKind = iota
	segAnyKey
	segIndex
	segAnyIndex
)

type segment struct {
	kind  segKind
	name  string
	index int
}

// matcher is a compiled redaction path.
type matcher []segment

// compilePath parses "a.b", "*", "list[*]", "list[2].field" and "[*].x".
func compilePath(path string) (matcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty redaction path")
	}
	var m matcher
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("redaction path %q: empty segment", path)
		}
		name, rest, _ := strings.Cut(part, "[")
		switch name {
		case "":
		case "*":
			m = append(m, segment{kind: segAnyKey})
		default:
			m = append(m, segment{kind: segKey, name: name})
		}
		if rest == "" && !strings.Contains(part, "[") {
			continue
		}
		rest = "[" + rest
		for rest != "" {
			if rest[0] != '[' {
				return nil, fmt.Errorf("redaction path %q: unexpected %q", path, rest)
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("redaction path %q: unclosed bracket", path)
			}
			idx := rest[1:end]
			if idx == "*" {
				m = append(m, segment{kind: segAnyIndex})
			} else {
				n, err := strconv.Atoi(idx)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("redaction path %q: invalid index %q", path, idx)
				}
				m = append(m, segment{kind: segIndex, index: n})
			}
			rest = rest[end+1:]
		}
	}
	return m, nil
}

// apply masks every value matched by m inside v, modifying v in place.
func (m matcher) apply(v any) any {
	if len(m) == 0 {
		return Mask
	}
	seg, rest := m[0], m[1:]
	switch seg.kind {
	case segKey:
		if obj, ok := v.(map[string]any); ok {
			if child, ok := obj[seg.name]; ok {
				obj[seg.name] = rest.apply(child)
			}
		}
	case segAnyKey:
		if obj, ok := v.(map[string]any); ok {
			for k, child := range obj {
				obj[k] = rest.apply(child)
			}
		}
	case segIndex:
		if arr, ok := v.([]any); ok && seg.index < len(arr) {
			arr[seg.index] = rest.apply(arr[seg.index])
		}
	case segAnyIndex:
		if arr, ok := v.([]any); ok {
			for i := range arr {
				arr[i] = rest.apply(arr[i])
			}
		}
	}
	return v
}

// redact returns a deep copy of data with every matcher applied to each
// object (or to data itself when it is a single object).
func redact(data any, matchers []matcher) any {
	if len(matchers) == 0 {
		return data
	}
	out := deepCopy(data)
	target := func(v any) any {
		for _, m := range matchers {
			v = m.apply(v)
		}
		return v
	}
	if items, ok := out.([]any); ok {
		for i := range items {
			items[i] = target(items[i])
		}
		return items
	}
	return target(out)
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = deepCopy(child)
		}
		return out
	}
	return v
}
