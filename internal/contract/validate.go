package contract

import (
	"fmt"
	"sort"
)

// ViolationKind classifies a single row-validation finding.
type ViolationKind int

const (
	// MissingField: a required field is absent from the row.
	MissingField ViolationKind = iota
	// TypeMismatch: a present value's derived type differs from the
	// declared type.
	TypeMismatch
	// ExtraField: a field is present but undeclared. Reported only under
	// ModeFixed; the other modes accept extras as inferred fields.
	ExtraField
)

func (k ViolationKind) String() string {
	switch k {
	case MissingField:
		return "missing_field"
	case TypeMismatch:
		return "type_mismatch"
	case ExtraField:
		return "extra_field"
	default:
		return fmt.Sprintf("ViolationKind(%d)", int(k))
	}
}

// Violation is one finding from validating a row against a contract.
type Violation struct {
	Kind  ViolationKind
	Field string
	Want  ValueType
	Got   ValueType
}

func (v Violation) String() string {
	switch v.Kind {
	case MissingField:
		return fmt.Sprintf("missing required field %q", v.Field)
	case TypeMismatch:
		return fmt.Sprintf("field %q: declared %s, got %s", v.Field, v.Want, v.Got)
	case ExtraField:
		return fmt.Sprintf("undeclared field %q", v.Field)
	default:
		return fmt.Sprintf("field %q: %s", v.Field, v.Kind)
	}
}

// Validate checks a row against the contract and returns all violations.
// Row keys may use either original or normalized field names. A present
// null value satisfies presence: it matches null-typed and dynamic fields
// and mismatches everything else.
func (c *Contract) Validate(row map[string]any) []Violation {
	var violations []Violation

	for _, f := range c.fields {
		value, present := c.lookup(row, f)
		if !present {
			if f.Required {
				violations = append(violations, Violation{Kind: MissingField, Field: f.NormalizedName, Want: f.Type})
			}
			continue
		}
		if f.Type == TypeUnknown {
			continue
		}
		got, err := Infer(value)
		if err != nil || got != f.Type {
			violations = append(violations, Violation{Kind: TypeMismatch, Field: f.NormalizedName, Want: f.Type, Got: got})
		}
	}

	if c.mode == ModeFixed {
		var extras []string
		for key := range row {
			if _, err := c.ResolveName(key); err != nil {
				extras = append(extras, key)
			}
		}
		sort.Strings(extras)
		for _, key := range extras {
			violations = append(violations, Violation{Kind: ExtraField, Field: key})
		}
	}

	return violations
}

// lookup finds a field's value in a row, trying the normalized name first
// and falling back to the original name.
func (c *Contract) lookup(row map[string]any, f Field) (any, bool) {
	if v, ok := row[f.NormalizedName]; ok {
		return v, true
	}
	if f.OriginalName != "" {
		if v, ok := row[f.OriginalName]; ok {
			return v, true
		}
	}
	return nil, false
}
