package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// DefinitionPath points at a definition file or a directory of them.
	DefinitionPath string
	// Format selects the definition front end: "hcl", "yaml", or "auto"
	// to pick by file extension.
	Format string

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.DefinitionPath == "" {
		return nil, errors.New("DefinitionPath is a required configuration field and cannot be empty")
	}
	switch cfg.Format {
	case "", "auto", "hcl", "yaml":
	default:
		return nil, fmt.Errorf("unknown definition format %q", cfg.Format)
	}
	return &cfg, nil
}
