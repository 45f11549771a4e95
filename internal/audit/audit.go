// Package audit defines the boundary to the lineage/audit collaborator.
// The graph build emits one record per node: identity, kind, plugin,
// serialized configuration, and both schema snapshots. Serialization of a
// node configuration is total over the config variants and lossless; what
// the collaborator does with the records is outside this engine.
package audit

import (
	"context"

	"github.com/vk/flowgridgo/internal/checkpoint"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/node"
)

// Record is the per-node emission consumed by the audit collaborator.
type Record struct {
	NodeID       string
	Kind         string
	Plugin       string
	Config       map[string]any
	InputSchema  *checkpoint.ContractState
	OutputSchema *checkpoint.ContractState
}

// Recorder receives records at the end of a successful graph build.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// FromNode builds the audit record for one node.
func FromNode(n *node.Node) (Record, error) {
	cfg, err := n.Config().Serialize()
	if err != nil {
		return Record{}, err
	}
	return Record{
		NodeID:       n.ID(),
		Kind:         n.Kind().String(),
		Plugin:       n.Plugin(),
		Config:       cfg,
		InputSchema:  checkpoint.Snapshot(n.InputContract()),
		OutputSchema: checkpoint.Snapshot(n.OutputContract()),
	}, nil
}

// EmitGraph sends one record per node, in graph insertion order.
func EmitGraph(ctx context.Context, g *graph.Graph, rec Recorder) error {
	for _, n := range g.Nodes() {
		record, err := FromNode(n)
		if err != nil {
			return err
		}
		if err := rec.Record(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// LogRecorder writes records through the context logger.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, rec Record) error {
	logger := ctxlog.FromContext(ctx)
	attrs := []any{
		"node_id", rec.NodeID,
		"node_type", rec.Kind,
		"plugin", rec.Plugin,
		"config", rec.Config,
	}
	if rec.InputSchema != nil {
		attrs = append(attrs, "input_schema", rec.InputSchema.VersionHash)
	}
	if rec.OutputSchema != nil {
		attrs = append(attrs, "output_schema", rec.OutputSchema.VersionHash)
	}
	logger.Info("Audit record.", attrs...)
	return nil
}

// MemoryRecorder buffers records for tests and offline inspection.
type MemoryRecorder struct {
	records []Record
}

func (m *MemoryRecorder) Record(_ context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything recorded so far.
func (m *MemoryRecorder) Records() []Record {
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}
