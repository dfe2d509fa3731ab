package schema

import (
	"encoding/json"
)

// JSONSchema describes s as a JSON Schema object that forbids additional
// properties.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.fields))
	required := []string{}
	for _, f := range s.fields {
		prop := f.Type.JSONSchema()
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if f.Default != nil {
			prop["default"] = f.Default
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// MarshalJSON serializes the schema as a JSON Schema object.
func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.JSONSchema())
}
