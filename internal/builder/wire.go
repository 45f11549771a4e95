package builder

import (
	"sort"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/node"
	"github.com/vk/flowgridgo/internal/nodeid"
)

// createNodes is the third phase: every schema is already known, so each
// node is created frozen, with complete configuration and contracts, in
// declaration order.
func (b *build) createNodes() error {
	for _, stage := range b.pipeline.Stages {
		kind := b.kinds[stage.Name]

		cfg, err := b.nodeConfig(stage, kind)
		if err != nil {
			return err
		}
		serialized, err := cfg.Serialize()
		if err != nil {
			return graph.Errorf("stage %q: %v", stage.Name, err)
		}

		identityName := stage.Name
		pluginIdent := kind.String()
		if kind.IsPlugin() {
			identityName = stage.Type
			pluginIdent = stage.Type
		}
		addr, err := nodeid.Deterministic(kind.String(), identityName, serialized)
		if err != nil {
			return graph.Errorf("stage %q: %v", stage.Name, err)
		}

		input, output := b.stageContracts(stage, kind)
		n := node.New(addr, stage.Name, kind, pluginIdent, cfg, input, output)
		if err := b.g.AddNode(n); err != nil {
			return err
		}
		b.addrs[stage.Name] = addr
	}
	return nil
}

// nodeConfig builds the tagged configuration variant for a stage.
func (b *build) nodeConfig(stage *config.Stage, kind node.Kind) (node.Config, error) {
	switch kind {
	case node.KindSource, node.KindTransform, node.KindSink:
		return node.NewPluginConfig(kind, node.PluginConfig{
			Name:    stage.Name,
			Options: stage.Options,
		})
	case node.KindGate:
		gate := node.GateConfig{
			Name:   stage.Name,
			Routes: stage.Routes,
		}
		if stage.Branches != nil {
			gate.Branches = stage.Branches.Bindings
			gate.BranchOrder = stage.Branches.Order
		}
		return node.NewGateConfig(gate), nil
	case node.KindAggregation:
		trigger := stage.Trigger
		if trigger == "" {
			trigger = "end_of_stream"
		}
		return node.NewAggregationConfig(node.AggregationConfig{
			Name:    stage.Name,
			Trigger: trigger,
			Options: stage.Options,
		}), nil
	case node.KindCoalesce:
		return node.NewCoalesceConfig(*b.coalesce[stage.Name]), nil
	default:
		return node.Config{}, graph.Errorf("stage %q: unhandled kind %s", stage.Name, kind)
	}
}

// stageContracts picks the input/output contracts for a stage. Output
// schemas come from the phase-two computation; inputs come from the
// declaration or the plugin's own declaration.
func (b *build) stageContracts(stage *config.Stage, kind node.Kind) (*contract.Contract, *contract.Contract) {
	output := b.schemas[stage.Name]
	var input *contract.Contract
	switch kind {
	case node.KindSource:
		// Sources consume nothing.
	case node.KindSink:
		if declared, ok := b.declared[stage.Name]; ok {
			input = declared
		} else if instance, ok := b.instances[stage.Name]; ok {
			input = instance.InputContract()
		}
	case node.KindTransform, node.KindAggregation:
		if instance, ok := b.instances[stage.Name]; ok {
			input = instance.InputContract()
		}
	case node.KindGate:
		// A gate's declared schema covers both sides; pass-through gates
		// carry none.
		input = output
	case node.KindCoalesce:
		// The coalesce's per-branch inputs are validated branch by branch.
	}
	return input, output
}

// wireEdges is the final construction phase: linear MOVE edges, gate
// route edges, and the fork/coalesce COPY routing.
func (b *build) wireEdges() error {
	// Branch chain bookkeeping: which stages are entered via a COPY edge,
	// and which coalesce waits on each fork.
	chainFirst := make(map[string]string) // first stage name -> branch
	forkCoalesce := make(map[string]string)
	for coalesceName, cfg := range b.coalesce {
		forkCoalesce[cfg.Fork] = coalesceName
	}

	for forkName, chains := range b.chains {
		coalesceName := forkCoalesce[forkName]
		for _, chain := range chains {
			if len(chain.Stages) > 0 {
				chainFirst[chain.Stages[0].Name] = chain.Branch
			}
			first := chain.First(coalesceName)
			if err := b.g.SetBranchFirst(chain.Branch, b.addrs[first]); err != nil {
				return err
			}
		}
	}

	for _, stage := range b.pipeline.Stages {
		kind := b.kinds[stage.Name]

		// Linear input edge, unless the stage is entered through a fork.
		if stage.Input != "" {
			if _, isChainFirst := chainFirst[stage.Name]; isChainFirst {
				// COPY edge wired below with the fork.
			} else {
				upstream, ok := b.pipeline.Stage(stage.Input)
				if !ok {
					return graph.Errorf("stage %q consumes undeclared stage %q", stage.Name, stage.Input)
				}
				if b.kinds[upstream.Name] == node.KindGate && upstream.Branches != nil {
					return graph.Errorf("stage %q consumes fork gate %q but is not one of its branch chains", stage.Name, upstream.Name)
				}
				if err := b.g.AddEdge(&node.Edge{
					From:  b.addrs[stage.Input],
					To:    b.addrs[stage.Name],
					Label: reservedLabel,
					Mode:  node.MoveEdge,
				}); err != nil {
					return err
				}
			}
		}

		// Gate route edges, in sorted label order so edge order is stable.
		if kind == node.KindGate {
			labels := make([]string, 0, len(stage.Routes))
			for label := range stage.Routes {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			for _, label := range labels {
				target := stage.Routes[label]
				targetAddr, ok := b.addrs[target]
				if !ok {
					return graph.Errorf("gate %q route %q targets undeclared stage %q", stage.Name, label, target)
				}
				if err := b.g.AddEdge(&node.Edge{
					From:  b.addrs[stage.Name],
					To:    targetAddr,
					Label: label,
					Mode:  node.MoveEdge,
				}); err != nil {
					return err
				}
			}
		}

		// Fork COPY edges and the coalesce's consuming edges.
		if kind == node.KindGate && stage.Branches != nil {
			coalesceName := forkCoalesce[stage.Name]
			for _, chain := range b.chains[stage.Name] {
				first := chain.First(coalesceName)
				if err := b.g.AddEdge(&node.Edge{
					From:  b.addrs[stage.Name],
					To:    b.addrs[first],
					Label: chain.Branch,
					Mode:  node.CopyEdge,
				}); err != nil {
					return err
				}
				if chain.Connection != "" {
					if err := b.g.AddEdge(&node.Edge{
						From:  b.addrs[chain.Connection],
						To:    b.addrs[coalesceName],
						Label: chain.Branch,
						Mode:  node.MoveEdge,
					}); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
