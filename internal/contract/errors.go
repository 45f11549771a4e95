package contract

import (
	"errors"
	"fmt"
)

// ErrNameNotFound is returned by ResolveName when neither the normalized
// nor the original form of a key matches a declared field.
var ErrNameNotFound = errors.New("field name not found")

// ErrAlreadyLocked is returned when a mutation would change the declared
// type of a field on a locked contract.
var ErrAlreadyLocked = errors.New("contract is locked")

// ErrNonFinite is returned when a sample numeric value is NaN or infinite.
// Such values are rejected, never coerced.
var ErrNonFinite = errors.New("non-finite numeric value")

// MergeError reports a field whose value type differs between the two
// inputs of a merge. Conflicting types are a definition defect, so this
// error is fatal at build time.
type MergeError struct {
	Field string
	Left  ValueType
	Right ValueType
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("contract merge: field %q has conflicting types %s and %s", e.Field, e.Left, e.Right)
}
