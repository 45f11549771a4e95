package builder

import (
	"github.com/vk/flowgridgo/internal/branch"
	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/node"
)

// outputSchema computes the schema flowing out of a stage, memoized.
// This is the model-level twin of the graph's effective-schema walk: it
// runs before any node exists so that coalesce merge schemas can be part
// of the frozen coalesce node. Cycles resolve to nil here; the structural
// pass reports them properly later.
func (b *build) outputSchema(name string) (*contract.Contract, error) {
	if schema, done := b.schemas[name]; done {
		return schema, nil
	}
	if b.resolving[name] {
		return nil, nil
	}
	b.resolving[name] = true
	defer delete(b.resolving, name)

	stage, ok := b.pipeline.Stage(name)
	if !ok {
		return nil, graph.Errorf("schema resolution: undeclared stage %q", name)
	}

	schema, err := b.computeSchema(stage)
	if err != nil {
		return nil, err
	}
	b.schemas[name] = schema
	return schema, nil
}

func (b *build) computeSchema(stage *config.Stage) (*contract.Contract, error) {
	switch b.kinds[stage.Name] {
	case node.KindSource, node.KindTransform, node.KindAggregation:
		if declared, ok := b.declared[stage.Name]; ok {
			return declared, nil
		}
		if instance, ok := b.instances[stage.Name]; ok {
			return instance.OutputContract(), nil
		}
		return nil, nil

	case node.KindGate:
		// Gates do not transform data. A declared contract covers both
		// sides; otherwise the gate is pass-through and carries the
		// upstream schema.
		if declared, ok := b.declared[stage.Name]; ok {
			return declared, nil
		}
		if stage.Input == "" {
			return nil, nil
		}
		return b.outputSchema(stage.Input)

	case node.KindCoalesce:
		cfg := b.coalesce[stage.Name]
		forkStage, _ := b.pipeline.Stage(cfg.Fork)
		branchSchemas := make(map[string]*contract.Contract, len(cfg.Branches))
		for _, chain := range b.chains[cfg.Fork] {
			var schema *contract.Contract
			var err error
			if chain.Connection == "" {
				// Identity branch: the coalesce sees what flows out of
				// the fork itself.
				schema, err = b.outputSchema(forkStage.Name)
			} else {
				schema, err = b.outputSchema(chain.Connection)
			}
			if err != nil {
				return nil, err
			}
			branchSchemas[chain.Branch] = schema
		}
		merged, err := branch.MergeSchema(cfg, branchSchemas)
		if err != nil {
			return nil, graph.Errorf("%v", err)
		}
		return merged, nil

	case node.KindSink:
		// Sinks terminate flow; they have no output schema.
		return nil, nil

	default:
		return nil, graph.Errorf("schema resolution: unhandled kind for stage %q", stage.Name)
	}
}
