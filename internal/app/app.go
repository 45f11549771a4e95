package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/plugin"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *plugin.Registry
	model    *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and
// plugin registry.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...plugin.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Load the definition into the format-agnostic model first.
	model, err := loader.Load(ctx, appConfig.DefinitionPath)
	if err != nil {
		// A failure to load the definition is a fatal startup error.
		panic(fmt.Errorf("failed to load definition: %w", err))
	}
	logger.Debug("Definition loaded and translated into unified model.")

	reg := plugin.NewRegistry()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All plugin modules registered.", "count", len(modules), "types", reg.Types())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
	}
}

// Registry returns the application's plugin registry. This is primarily
// for testing.
func (a *App) Registry() *plugin.Registry {
	return a.registry
}

// Model returns the loaded definition model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
