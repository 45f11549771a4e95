package contract

import (
	"fmt"
	"math"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// ValueType is the closed set of primitive shapes a field may carry.
// "null" is a first-class type: a present null value matches a null-typed
// field instead of counting as missing.
type ValueType int

const (
	TypeInteger ValueType = iota
	TypeFloat
	TypeString
	TypeBool
	TypeTimestamp
	TypeNull
	// TypeUnknown covers nested structures and dynamically-typed fields.
	// As a declared type it is compatible with any observed value.
	TypeUnknown
)

var valueTypeNames = map[ValueType]string{
	TypeInteger:   "integer",
	TypeFloat:     "float",
	TypeString:    "string",
	TypeBool:      "boolean",
	TypeTimestamp: "timestamp",
	TypeNull:      "null",
	TypeUnknown:   "unknown",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// ParseValueType maps a serialized type tag back to its ValueType. An
// unrecognized tag is an error; callers restoring checkpoints must treat
// it as fatal rather than substitute a default.
func ParseValueType(tag string) (ValueType, error) {
	for t, name := range valueTypeNames {
		if name == tag {
			return t, nil
		}
	}
	if tag == "any" {
		// Accepted in definition files as an alias for unknown/dynamic.
		return TypeUnknown, nil
	}
	return TypeUnknown, fmt.Errorf("unrecognized value type tag %q", tag)
}

// Infer derives the ValueType of a sample Go value. Non-finite floats are
// rejected outright; they are never coerced into a usable type.
func Infer(v any) (ValueType, error) {
	switch t := v.(type) {
	case nil:
		return TypeNull, nil
	case bool:
		return TypeBool, nil
	case string:
		return TypeString, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger, nil
	case float32:
		return inferFloat(float64(t))
	case float64:
		return inferFloat(t)
	case time.Time:
		return TypeTimestamp, nil
	case map[string]any, []any:
		return TypeUnknown, nil
	default:
		return TypeUnknown, nil
	}
}

func inferFloat(f float64) (ValueType, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return TypeFloat, fmt.Errorf("%w: %v", ErrNonFinite, f)
	}
	return TypeFloat, nil
}

// InferCty derives the ValueType of a cty value, used when samples arrive
// from a definition file rather than from row data. cty numbers carry no
// int/float distinction, so whole numbers infer as integers.
func InferCty(v cty.Value) (ValueType, error) {
	if v.IsNull() {
		return TypeNull, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return TypeBool, nil
	case ty == cty.String:
		return TypeString, nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInf() {
			return TypeFloat, fmt.Errorf("%w: %s", ErrNonFinite, bf.String())
		}
		if bf.IsInt() {
			return TypeInteger, nil
		}
		return TypeFloat, nil
	default:
		return TypeUnknown, nil
	}
}
