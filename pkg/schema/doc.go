// Package schema provides a structural validation system for flat argument maps
// and presenter payloads.
//
// A Schema is an ordered list of fields, each with a Type and a required flag.
// Schemas are values: Merge, Omit and Pick are set operations over the field
// list and return new schemas, which lets a registration unit combine a shared
// "common" schema with per-action schemas.
//
// Basic usage:
//
//	s := schema.New(
//	    schema.Required("api_key", schema.String()),
//	    schema.Optional("retries", schema.Int()).WithDefault(3),
//	    schema.Optional("tags", schema.Slice(schema.String())),
//	)
//
//	clean, err := s.Validate(data, schema.Strict)
//	if err != nil {
//	    for _, line := range schema.FieldMessages(err) {
//	        // "retries: expected int, got string"
//	    }
//	}
//
// Strict mode rejects undeclared fields (a whitelist), Strip mode drops them.
// Either way the returned map only holds declared fields.
//
// Custom validators can be registered for domain-specific validation:
//
//	positiveInt := schema.Custom("positive_int", func(v any) error {
//	    i, ok := v.(int)
//	    if !ok {
//	        return fmt.Errorf("expected int")
//	    }
//	    if i <= 0 {
//	        return fmt.Errorf("must be positive")
//	    }
//	    return nil
//	})
//
// This package has no dependencies beyond the Go standard library.
package schema
