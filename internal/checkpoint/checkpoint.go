// Package checkpoint serializes schema contracts to the stable form
// referenced by checkpoint state, and restores them with integrity
// verification. A restored contract whose recomputed version hash differs
// from the stored hash, or whose stored value-type tag is unrecognized, is
// rejected outright: resume never substitutes a default or silently
// recovers.
package checkpoint

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/contract"
)

// IntegrityError reports a checkpoint whose stored schema cannot be
// trusted. It is fatal at resume time.
type IntegrityError struct {
	Reason string
	Err    error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkpoint integrity: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("checkpoint integrity: %s", e.Reason)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// FieldState is the serialized form of one field contract.
type FieldState struct {
	NormalizedName string `json:"normalized_name" yaml:"normalized_name"`
	OriginalName   string `json:"original_name" yaml:"original_name"`
	ValueType      string `json:"value_type" yaml:"value_type"`
	Required       bool   `json:"required" yaml:"required"`
	Source         string `json:"source" yaml:"source"`
}

// ContractState is the serialized form of a schema contract, carrying the
// version hash computed when the snapshot was taken.
type ContractState struct {
	Mode        string       `json:"mode" yaml:"mode"`
	Locked      bool         `json:"locked" yaml:"locked"`
	Fields      []FieldState `json:"fields" yaml:"fields"`
	VersionHash string       `json:"version_hash" yaml:"version_hash"`
}

// Snapshot converts a contract to its checkpoint form.
func Snapshot(c *contract.Contract) *ContractState {
	if c == nil {
		return nil
	}
	fields := c.Fields()
	out := &ContractState{
		Mode:        c.Mode().String(),
		Locked:      c.Locked(),
		Fields:      make([]FieldState, len(fields)),
		VersionHash: c.VersionHash(),
	}
	for i, f := range fields {
		out.Fields[i] = FieldState{
			NormalizedName: f.NormalizedName,
			OriginalName:   f.OriginalName,
			ValueType:      f.Type.String(),
			Required:       f.Required,
			Source:         f.Source.String(),
		}
	}
	return out
}

// Restore rebuilds a contract from its checkpoint form and verifies that
// the rebuilt contract hashes to the stored version hash.
func Restore(state *ContractState) (*contract.Contract, error) {
	if state == nil {
		return nil, &IntegrityError{Reason: "nil contract state"}
	}

	mode, err := contract.ParseMode(state.Mode)
	if err != nil {
		return nil, &IntegrityError{Reason: "bad mode", Err: err}
	}

	fields := make([]contract.Field, len(state.Fields))
	for i, fs := range state.Fields {
		vt, err := contract.ParseValueType(fs.ValueType)
		if err != nil {
			return nil, &IntegrityError{
				Reason: fmt.Sprintf("field %q has unrecognized value type", fs.NormalizedName),
				Err:    err,
			}
		}
		source, err := contract.ParseSource(fs.Source)
		if err != nil {
			return nil, &IntegrityError{
				Reason: fmt.Sprintf("field %q has unrecognized source", fs.NormalizedName),
				Err:    err,
			}
		}
		fields[i] = contract.Field{
			NormalizedName: fs.NormalizedName,
			OriginalName:   fs.OriginalName,
			Type:           vt,
			Required:       fs.Required,
			Source:         source,
		}
	}

	restored, err := contract.New(mode, fields...)
	if err != nil {
		return nil, &IntegrityError{Reason: "contract rebuild failed", Err: err}
	}
	if state.Locked {
		restored = restored.WithLocked()
	}

	if got := restored.VersionHash(); got != state.VersionHash {
		return nil, &IntegrityError{
			Reason: fmt.Sprintf("version hash mismatch: stored %s, recomputed %s", state.VersionHash, got),
		}
	}
	return restored, nil
}
