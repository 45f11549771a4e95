package app

import (
	"context"
	"fmt"

	"github.com/vk/flowgridgo/internal/audit"
	"github.com/vk/flowgridgo/internal/builder"
	"github.com/vk/flowgridgo/internal/ctxlog"
)

// Run executes the main application logic: build the execution graph
// from the loaded model and emit its audit records. Any contract or
// topology problem surfaces here, before a single row would flow.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	g, err := builder.Build(ctx, a.model, a.registry, audit.LogRecorder{})
	if err != nil {
		return fmt.Errorf("failed to build execution graph: %w", err)
	}

	a.logger.Info("Pipeline validated.",
		"pipeline", a.model.Pipeline.Name,
		"nodes", len(g.Nodes()),
		"edges", len(g.Edges()),
	)
	for _, n := range g.Nodes() {
		a.logger.Debug("Node frozen.", "node_id", n.ID(), "node_type", n.Kind().String(), "plugin", n.Plugin())
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
