package schema

import (
	"slices"
	"sort"
)

// Mode controls how fields that are not declared in a Schema are treated.
type Mode int

const (
	// Strict rejects undeclared fields with a ValidationError.
	Strict Mode = iota
	// Strip silently drops undeclared fields from the output.
	Strip
)

// Field declares one named entry of a Schema.
type Field struct {
	Name        string
	Type        Type
	Required    bool
	Default     any
	Description string
}

// Required declares a field that must be present.
func Required(name string, t Type) Field {
	return Field{Name: name, Type: t, Required: true}
}

// Optional declares a field that may be omitted.
func Optional(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

// Describe returns a copy of f with a description.
func (f Field) Describe(description string) Field {
	f.Description = description
	return f
}

// WithDefault returns a copy of f that is filled with v when absent.
func (f Field) WithDefault(v any) Field {
	f.Default = v
	return f
}

// Schema is an ordered list of fields.
// Example: schema.New(schema.Required("api_key", schema.String()), schema.Optional("retries", schema.Int()))
//
// A Schema is a value: Merge, Omit and Pick return new schemas and never
// modify the receiver.
type Schema struct {
	fields []Field
}

// New builds a Schema. A later field with an already declared name replaces
// the earlier one in place.
func New(fields ...Field) Schema {
	var s Schema
	for _, f := range fields {
		s = s.with(f)
	}
	return s
}

func (s Schema) with(f Field) Schema {
	out := Schema{fields: slices.Clone(s.fields)}
	if i := s.index(f.Name); i >= 0 {
		out.fields[i] = f
		return out
	}
	out.fields = append(out.fields, f)
	return out
}

func (s Schema) index(name string) int {
	for i, f := range s.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// IsZero reports whether the schema declares no fields.
func (s Schema) IsZero() bool { return len(s.fields) == 0 }

// Len returns the number of declared fields.
func (s Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the declared fields in order.
func (s Schema) Fields() []Field { return slices.Clone(s.fields) }

// Names returns the declared field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the field declared as name.
func (s Schema) Lookup(name string) (Field, bool) {
	if i := s.index(name); i >= 0 {
		return s.fields[i], true
	}
	return Field{}, false
}

// Merge returns the union of s and other. Fields of other win on conflict.
func (s Schema) Merge(other Schema) Schema {
	out := Schema{fields: slices.Clone(s.fields)}
	for _, f := range other.fields {
		out = out.with(f)
	}
	return out
}

// Omit returns s without the named fields.
func (s Schema) Omit(names ...string) Schema {
	out := Schema{}
	for _, f := range s.fields {
		if !slices.Contains(names, f.Name) {
			out.fields = append(out.fields, f)
		}
	}
	return out
}

// Pick returns s restricted to the named fields, keeping declaration order.
func (s Schema) Pick(names ...string) Schema {
	out := Schema{}
	for _, f := range s.fields {
		if slices.Contains(names, f.Name) {
			out.fields = append(out.fields, f)
		}
	}
	return out
}

// Equal reports structural equality: same names, order, type names and
// required flags.
func (s Schema) Equal(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i, f := range s.fields {
		o := other.fields[i]
		if f.Name != o.Name || f.Required != o.Required || f.Type.Name() != o.Type.Name() {
			return false
		}
	}
	return true
}

// Validate checks data against the schema and returns a new map holding only
// declared fields, with defaults applied. Undeclared fields are rejected in
// Strict mode and dropped in Strip mode.
// Returns an *AggregateError with all validation failures found.
func (s Schema) Validate(data map[string]any, mode Mode) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))
	var errs []error

	for _, f := range s.fields {
		value, exists := data[f.Name]
		if !exists || value == nil {
			if f.Default != nil {
				out[f.Name] = f.Default
				continue
			}
			if f.Required {
				errs = append(errs, &ValidationError{Key: f.Name, Reason: "required"})
			}
			continue
		}

		clean, err := check(f.Type, value, mode)
		if err != nil {
			errs = append(errs, &ValidationError{Key: f.Name, Reason: err.Error(), Value: value})
			continue
		}
		out[f.Name] = clean
	}

	if mode == Strict {
		var surplus []string
		for key := range data {
			if s.index(key) < 0 {
				surplus = append(surplus, key)
			}
		}
		sort.Strings(surplus)
		for _, key := range surplus {
			errs = append(errs, &ValidationError{Key: key, Reason: "unexpected field"})
		}
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return out, nil
}

// Validate checks data against s in Strict mode, discarding the output.
func Validate(s Schema, data map[string]any) error {
	_, err := s.Validate(data, Strict)
	return err
}
