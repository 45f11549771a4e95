// Package barrier implements the run-time synchronization contract of a
// coalesce node: each forked row's children reunite at a per-row waiter
// that resolves according to the configured merge policy. Branch failure
// is reported to the waiter explicitly, so policy logic reacts instead of
// hanging; under every policy the outcome is a designed result, never an
// error path of the engine itself.
package barrier

import "github.com/google/uuid"

// Unit is one independent row identity flowing through the pipeline. A
// fork produces one child unit per branch; children share no mutable
// state and may be processed concurrently.
type Unit struct {
	ID       string
	ParentID string
	Branch   string
	Row      map[string]any
}

// NewUnit wraps a row in a fresh identity.
func NewUnit(row map[string]any) Unit {
	return Unit{ID: uuid.NewString(), Row: row}
}

// Split produces one child unit per branch with COPY semantics: each child
// carries its own shallow copy of the row, keyed back to the parent.
func Split(parent Unit, branches []string) []Unit {
	children := make([]Unit, len(branches))
	for i, branchName := range branches {
		row := make(map[string]any, len(parent.Row))
		for k, v := range parent.Row {
			row[k] = v
		}
		children[i] = Unit{
			ID:       uuid.NewString(),
			ParentID: parent.ID,
			Branch:   branchName,
			Row:      row,
		}
	}
	return children
}
