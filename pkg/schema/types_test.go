package schema

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestStringType(t *testing.T) {
	typ := String()

	if typ.Name() != "string" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "string")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{"hello", false},
		{"", false},
		{42, true},
		{3.14, true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestIntType(t *testing.T) {
	typ := Int()

	tests := []struct {
		value   any
		wantErr bool
	}{
		{42, false},
		{int8(42), false},
		{int64(42), false},
		{uint32(42), false},
		{float64(42), false},  // whole number
		{float64(42.5), true}, // not whole
		{json.Number("7"), false},
		{json.Number("7.5"), true},
		{"42", true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestFloatType(t *testing.T) {
	typ := Float()

	tests := []struct {
		value   any
		wantErr bool
	}{
		{3.14, false},
		{float32(3.14), false},
		{42, false},
		{json.Number("1.5"), false},
		{"3.14", true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestEnumType(t *testing.T) {
	typ := Enum("open", "done")

	if typ.Name() != "enum(open|done)" {
		t.Errorf("Name() = %q", typ.Name())
	}
	if err := typ.Validate("open"); err != nil {
		t.Errorf("Validate(open) error = %v", err)
	}
	if err := typ.Validate("closed"); err == nil {
		t.Error("Validate(closed) should fail")
	}
	if err := typ.Validate(1); err == nil {
		t.Error("Validate(1) should fail")
	}
}

func TestSliceType(t *testing.T) {
	typ := Slice(Int())

	if typ.Name() != "[int]" {
		t.Errorf("Name() = %q, want [int]", typ.Name())
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{[]int{1, 2}, false},
		{[]any{1, float64(2)}, false},
		{[]any{1, "two"}, true},
		{"not a slice", true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestObjectType_StripsNestedSurplus(t *testing.T) {
	typ := Object(New(Required("id", Int())))

	out, err := check(typ, map[string]any{"id": 1, "secret": "x"}, Strip)
	if err != nil {
		t.Fatalf("check() error = %v", err)
	}
	m := out.(map[string]any)
	if _, ok := m["secret"]; ok {
		t.Errorf("nested surplus should be stripped, got %v", m)
	}

	if err := typ.Validate(map[string]any{"id": 1, "secret": "x"}); err == nil {
		t.Error("strict Validate should reject nested surplus")
	}
}

func TestCustomType(t *testing.T) {
	positive := Custom("positive_int", func(v any) error {
		i, ok := v.(int)
		if !ok || i <= 0 {
			return fmt.Errorf("must be a positive int")
		}
		return nil
	})

	if err := positive.Validate(3); err != nil {
		t.Errorf("Validate(3) error = %v", err)
	}
	if err := positive.Validate(-1); err == nil {
		t.Error("Validate(-1) should fail")
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"string", "string", false},
		{"int", "int", false},
		{"any", "any", false},
		{"[bool]", "[bool]", false},
		{"[[float]]", "[[float]]", false},
		{"map", "", true},
		{"[nope]", "", true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got.Name() != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got.Name(), tt.want)
		}
	}
}
