// Package contract implements immutable schema contracts: the declaration
// of the row shape flowing into or out of a pipeline node. A contract is a
// set of field contracts plus an enforcement mode; every operation that
// would change a contract returns a new value instead of mutating.
package contract

import (
	"fmt"
	"sort"

	"github.com/vk/flowgridgo/internal/canonical"
)

// Mode controls how strictly a contract treats fields that were not
// declared. Modes are ordered by restrictiveness: FIXED rejects extras,
// FLEXIBLE and OBSERVED accept them as non-required inferred fields.
type Mode int

const (
	ModeFixed Mode = iota
	ModeFlexible
	ModeObserved
)

var modeNames = map[Mode]string{
	ModeFixed:    "fixed",
	ModeFlexible: "flexible",
	ModeObserved: "observed",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a serialized mode tag back to its Mode.
func ParseMode(tag string) (Mode, error) {
	for m, name := range modeNames {
		if name == tag {
			return m, nil
		}
	}
	return ModeFlexible, fmt.Errorf("unrecognized contract mode %q", tag)
}

// Source records whether a field was declared at configuration time or
// inferred from the first observed row.
type Source int

const (
	SourceDeclared Source = iota
	SourceInferred
)

func (s Source) String() string {
	if s == SourceDeclared {
		return "declared"
	}
	return "inferred"
}

// ParseSource maps a serialized source tag back to its Source.
func ParseSource(tag string) (Source, error) {
	switch tag {
	case "declared":
		return SourceDeclared, nil
	case "inferred":
		return SourceInferred, nil
	default:
		return SourceInferred, fmt.Errorf("unrecognized field source %q", tag)
	}
}

// Field is one field's identity and type. NormalizedName is the
// identifier-safe key used everywhere inside the engine; OriginalName is
// the display form as seen in source data and may contain arbitrary
// characters.
type Field struct {
	NormalizedName string
	OriginalName   string
	Type           ValueType
	Required       bool
	Source         Source
}

// Contract is an immutable, ordered set of field contracts with an
// enforcement mode. The two lookup maps are precomputed at construction so
// name resolution is O(1).
type Contract struct {
	mode   Mode
	fields []Field
	locked bool

	byNormalized map[string]int
	byOriginal   map[string]string
}

// New constructs a contract from an ordered field list. Normalized names
// must be unique within one contract.
func New(mode Mode, fields ...Field) (*Contract, error) {
	c := &Contract{
		mode:         mode,
		fields:       make([]Field, len(fields)),
		byNormalized: make(map[string]int, len(fields)),
		byOriginal:   make(map[string]string, len(fields)),
	}
	copy(c.fields, fields)
	for i, f := range c.fields {
		if f.NormalizedName == "" {
			return nil, fmt.Errorf("contract: field %d has an empty normalized name", i)
		}
		if _, exists := c.byNormalized[f.NormalizedName]; exists {
			return nil, fmt.Errorf("contract: duplicate field %q", f.NormalizedName)
		}
		c.byNormalized[f.NormalizedName] = i
		if f.OriginalName != "" {
			c.byOriginal[f.OriginalName] = f.NormalizedName
		}
	}
	return c, nil
}

// MustNew is New for statically-known field lists; it panics on error.
func MustNew(mode Mode, fields ...Field) *Contract {
	c, err := New(mode, fields...)
	if err != nil {
		panic(err)
	}
	return c
}

// Mode returns the contract's enforcement mode.
func (c *Contract) Mode() Mode { return c.mode }

// Locked reports whether declared types may no longer change.
func (c *Contract) Locked() bool { return c.locked }

// Len returns the number of fields.
func (c *Contract) Len() int { return len(c.fields) }

// Fields returns a copy of the ordered field list.
func (c *Contract) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// ResolveName maps a key in either its original or normalized form to the
// field's normalized name.
func (c *Contract) ResolveName(key string) (string, error) {
	if _, ok := c.byNormalized[key]; ok {
		return key, nil
	}
	if norm, ok := c.byOriginal[key]; ok {
		return norm, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNameNotFound, key)
}

// FieldByName returns the field contract for a normalized name.
func (c *Contract) FieldByName(normalized string) (Field, bool) {
	i, ok := c.byNormalized[normalized]
	if !ok {
		return Field{}, false
	}
	return c.fields[i], true
}

// WithLocked returns a copy of the contract with locked set. Fields are
// unchanged.
func (c *Contract) WithLocked() *Contract {
	out, err := New(c.mode, c.fields...)
	if err != nil {
		// Fields came from a valid contract, so this is unreachable.
		panic(err)
	}
	out.locked = true
	return out
}

// WithField returns a copy of the contract with one inferred field added,
// its type derived from the sample value. Replacing an existing field on a
// locked contract fails with ErrAlreadyLocked; adding a genuinely new
// field stays legal after lock, since locking freezes declared types, not
// observation.
func (c *Contract) WithField(normalized, original string, sample any) (*Contract, error) {
	vt, err := Infer(sample)
	if err != nil {
		return nil, fmt.Errorf("contract: field %q: %w", normalized, err)
	}

	field := Field{
		NormalizedName: normalized,
		OriginalName:   original,
		Type:           vt,
		Required:       false,
		Source:         SourceInferred,
	}

	if i, exists := c.byNormalized[normalized]; exists {
		if c.locked {
			return nil, fmt.Errorf("contract: field %q: %w", normalized, ErrAlreadyLocked)
		}
		fields := c.Fields()
		fields[i] = field
		out, err := New(c.mode, fields...)
		if err != nil {
			return nil, err
		}
		out.locked = c.locked
		return out, nil
	}

	out, err := New(c.mode, append(c.Fields(), field)...)
	if err != nil {
		return nil, err
	}
	out.locked = c.locked
	return out, nil
}

// VersionHash returns a stable hash over the canonical serialization of
// the contract's mode and fields. The field list is sorted by normalized
// name first, so two contracts with the same field set hash identically
// regardless of declaration order.
func (c *Contract) VersionHash() string {
	fields := c.Fields()
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].NormalizedName < fields[j].NormalizedName
	})
	entries := make([]map[string]any, len(fields))
	for i, f := range fields {
		entries[i] = map[string]any{
			"normalized_name": f.NormalizedName,
			"original_name":   f.OriginalName,
			"value_type":      f.Type.String(),
			"required":        f.Required,
			"source":          f.Source.String(),
		}
	}
	digest, err := canonical.Digest(map[string]any{
		"mode":   c.mode.String(),
		"fields": entries,
	})
	if err != nil {
		// The input is built from plain maps and strings; encoding cannot fail.
		panic(err)
	}
	return digest
}

// Equal reports whether two contracts declare the same mode and field set.
func (c *Contract) Equal(other *Contract) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.VersionHash() == other.VersionHash()
}
