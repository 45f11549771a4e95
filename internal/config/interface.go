package config

import "context"

// Loader is the interface for a format-specific definition loader. It
// reads one or more definition files and translates them into the
// format-agnostic model.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}
