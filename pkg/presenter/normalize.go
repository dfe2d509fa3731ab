package presenter

import (
	"encoding/json"
	"fmt"
)

// normalize converts data into a tree of map[string]any, []any and scalars.
// Trees already in that shape are returned as is; anything else (structs,
// typed maps and slices) goes through its JSON encoding so `json` tags apply.
func normalize(data any) (any, error) {
	if generic(data) {
		return data, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %T: %w", data, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize %T: %w", data, err)
	}
	return out, nil
}

func generic(v any) bool {
	switch val := v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case map[string]any:
		for _, child := range val {
			if !generic(child) {
				return false
			}
		}
		return true
	case []any:
		for _, child := range val {
			if !generic(child) {
				return false
			}
		}
		return true
	}
	return false
}

// objects returns the elements of items as objects, or false if any is not.
func objects(items []any) ([]map[string]any, bool) {
	out := make([]map[string]any, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out[i] = m
	}
	return out, true
}
