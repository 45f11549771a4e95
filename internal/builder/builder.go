// Package builder turns a validated pipeline definition into a frozen
// execution graph. Construction is a strict multi-phase pass: plan the
// full topology, compute every schema from that topology (including
// coalesce merge schemas), create fully-populated immutable nodes, wire
// edges, then validate. Nothing patches a node after creation, and any
// failure aborts the build before a single row could be processed.
package builder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vk/flowgridgo/internal/audit"
	"github.com/vk/flowgridgo/internal/branch"
	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/nodeid"
	"github.com/vk/flowgridgo/internal/node"
	"github.com/vk/flowgridgo/internal/plugin"
	"github.com/vk/flowgridgo/internal/validate"
)

// reservedLabel is the implicit label of linear edges; stages and branches
// may not claim it.
const reservedLabel = "default"

// build carries the intermediate state of one construction pass.
type build struct {
	pipeline  *config.Pipeline
	registry  *plugin.Registry
	instances map[string]*plugin.Instance
	declared  map[string]*contract.Contract
	kinds     map[string]node.Kind
	chains    map[string][]*branch.Chain // fork stage name -> chains
	coalesce  map[string]*node.CoalesceConfig

	schemas  map[string]*contract.Contract
	resolving map[string]bool

	addrs map[string]*nodeid.Address
	g     *graph.Graph
}

// Build constructs, validates, and freezes the execution graph for a
// definition model. The recorder receives one audit record per node after
// a successful build; a nil recorder skips emission.
func Build(ctx context.Context, model *config.Model, reg *plugin.Registry, rec audit.Recorder) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	if model == nil || model.Pipeline == nil {
		return nil, graph.Errorf("definition contains no pipeline")
	}
	b := &build{
		pipeline:  model.Pipeline,
		registry:  reg,
		instances: make(map[string]*plugin.Instance),
		declared:  make(map[string]*contract.Contract),
		kinds:     make(map[string]node.Kind),
		chains:    make(map[string][]*branch.Chain),
		coalesce:  make(map[string]*node.CoalesceConfig),
		schemas:   make(map[string]*contract.Contract),
		resolving: make(map[string]bool),
		addrs:     make(map[string]*nodeid.Address),
		g:         graph.New(),
	}

	// Phase 0: definition sanity and plugin self-validation.
	if err := b.prepare(); err != nil {
		return nil, err
	}
	logger.Debug("Definition prepared.", "pipeline", b.pipeline.Name, "stages", len(b.pipeline.Stages))

	// Phase 1: topology plan (branch chains, coalesce wiring) without
	// allocating any node.
	if err := b.planTopology(); err != nil {
		return nil, err
	}

	// Phase 2: every schema, including coalesce merge schemas, computed
	// from the planned topology.
	for _, stage := range b.pipeline.Stages {
		if _, err := b.outputSchema(stage.Name); err != nil {
			return nil, err
		}
	}

	// Phase 3: frozen nodes carrying complete configuration.
	if err := b.createNodes(); err != nil {
		return nil, err
	}

	// Phase 4: edges and branch routing.
	if err := b.wireEdges(); err != nil {
		return nil, err
	}
	b.g.Freeze()

	// Compatibility validation first, then the schema-blind structural pass.
	if err := validate.Edges(b.g); err != nil {
		return nil, err
	}
	if problems := b.g.Validate(); len(problems) > 0 {
		details := make([]string, len(problems))
		for i, p := range problems {
			details[i] = p.String()
		}
		return nil, graph.Errorf("structural validation failed:\n- %s", strings.Join(details, "\n- "))
	}

	if rec != nil {
		if err := audit.EmitGraph(ctx, b.g, rec); err != nil {
			return nil, fmt.Errorf("audit emission: %w", err)
		}
	}
	logger.Info("Execution graph built.", "nodes", len(b.g.Nodes()), "edges", len(b.g.Edges()))
	return b.g, nil
}

// prepare checks stage-level sanity, parses kinds, constructs plugin
// instances (running their self-validation), and derives declared
// contracts.
func (b *build) prepare() error {
	if len(b.pipeline.Stages) == 0 {
		return graph.Errorf("pipeline %q declares no stages", b.pipeline.Name)
	}
	seen := make(map[string]bool)
	for _, stage := range b.pipeline.Stages {
		if stage.Name == "" {
			return graph.Errorf("stage with empty name in pipeline %q", b.pipeline.Name)
		}
		if stage.Name == reservedLabel {
			return graph.Errorf("stage name %q is reserved", reservedLabel)
		}
		if seen[stage.Name] {
			return graph.Errorf("duplicate stage name %q", stage.Name)
		}
		seen[stage.Name] = true

		kind, err := node.ParseKind(stage.Kind)
		if err != nil {
			return graph.Errorf("stage %q: %v", stage.Name, err)
		}
		b.kinds[stage.Name] = kind

		if kind.IsPlugin() {
			if stage.Type == "" {
				return graph.Errorf("stage %q: %s stages require a plugin type", stage.Name, kind)
			}
			instance, err := plugin.NewInstance(b.registry, stage.Type, stage.Options)
			if err != nil {
				return err
			}
			b.instances[stage.Name] = instance
		} else if stage.Type != "" {
			return graph.Errorf("stage %q: %s stages carry no plugin type", stage.Name, kind)
		}

		declared, err := declaredContract(stage)
		if err != nil {
			return err
		}
		if declared != nil {
			b.declared[stage.Name] = declared
		}
	}
	return nil
}

// declaredContract builds a contract from a stage's field blocks.
func declaredContract(stage *config.Stage) (*contract.Contract, error) {
	if len(stage.Fields) == 0 {
		return nil, nil
	}
	mode := contract.ModeFixed
	if stage.Mode != "" {
		parsed, err := contract.ParseMode(stage.Mode)
		if err != nil {
			return nil, graph.Errorf("stage %q: %v", stage.Name, err)
		}
		mode = parsed
	}
	fields := make([]contract.Field, len(stage.Fields))
	for i, def := range stage.Fields {
		vt, err := contract.ParseValueType(def.Type)
		if err != nil {
			return nil, graph.Errorf("stage %q field %q: %v", stage.Name, def.Name, err)
		}
		original := def.OriginalName
		if original == "" {
			original = def.Name
		}
		fields[i] = contract.Field{
			NormalizedName: def.Name,
			OriginalName:   original,
			Type:           vt,
			Required:       def.Required,
			Source:         contract.SourceDeclared,
		}
	}
	c, err := contract.New(mode, fields...)
	if err != nil {
		return nil, graph.Errorf("stage %q: %v", stage.Name, err)
	}
	return c, nil
}

// planTopology resolves fork branch chains and coalesce configuration.
func (b *build) planTopology() error {
	for _, stage := range b.pipeline.Stages {
		if b.kinds[stage.Name] != node.KindCoalesce {
			continue
		}
		forkStage, ok := b.pipeline.Stage(stage.Fork)
		if !ok {
			return graph.Errorf("coalesce %q references undeclared fork %q", stage.Name, stage.Fork)
		}
		if b.kinds[forkStage.Name] != node.KindGate || forkStage.Branches == nil {
			return graph.Errorf("coalesce %q: stage %q is not a fork gate", stage.Name, stage.Fork)
		}
		for _, branchName := range forkStage.Branches.Order {
			if branchName == reservedLabel {
				return graph.Errorf("fork %q: branch name %q is reserved", forkStage.Name, reservedLabel)
			}
		}

		chains, err := branch.ResolveChains(b.pipeline, forkStage, stage)
		if err != nil {
			return graph.Errorf("%v", err)
		}
		b.chains[forkStage.Name] = chains

		cfg, err := coalesceConfig(stage, forkStage)
		if err != nil {
			return err
		}
		b.coalesce[stage.Name] = cfg
	}

	// Every fork must have exactly one coalesce waiting on it.
	for _, stage := range b.pipeline.Stages {
		if b.kinds[stage.Name] == node.KindGate && stage.Branches != nil {
			if _, ok := b.chains[stage.Name]; !ok {
				return graph.Errorf("fork gate %q has no coalesce waiting on its branches", stage.Name)
			}
		}
	}
	return nil
}

// coalesceConfig parses the framework fields of a coalesce stage.
func coalesceConfig(stage *config.Stage, forkStage *config.Stage) (*node.CoalesceConfig, error) {
	policy := node.PolicyRequireAll
	if stage.Policy != "" {
		parsed, err := node.ParseMergePolicy(stage.Policy)
		if err != nil {
			return nil, graph.Errorf("coalesce %q: %v", stage.Name, err)
		}
		policy = parsed
	}
	strategy := node.StrategyUnion
	if stage.Strategy != "" {
		parsed, err := node.ParseMergeStrategy(stage.Strategy)
		if err != nil {
			return nil, graph.Errorf("coalesce %q: %v", stage.Name, err)
		}
		strategy = parsed
	}
	var timeout time.Duration
	if stage.Timeout != "" {
		parsed, err := time.ParseDuration(stage.Timeout)
		if err != nil {
			return nil, graph.Errorf("coalesce %q: bad timeout: %v", stage.Name, err)
		}
		timeout = parsed
	}
	branches := append([]string(nil), forkStage.Branches.Order...)
	if policy == node.PolicyQuorum && (stage.Quorum < 1 || stage.Quorum > len(branches)) {
		return nil, graph.Errorf("coalesce %q: quorum %d out of range for %d branches", stage.Name, stage.Quorum, len(branches))
	}
	if strategy == node.StrategySelect {
		found := false
		for _, br := range branches {
			if br == stage.Select {
				found = true
			}
		}
		if !found {
			return nil, graph.Errorf("coalesce %q: select names unknown branch %q", stage.Name, stage.Select)
		}
	}
	return &node.CoalesceConfig{
		Name:     stage.Name,
		Fork:     forkStage.Name,
		Branches: branches,
		Policy:   policy,
		Strategy: strategy,
		Quorum:   stage.Quorum,
		Select:   stage.Select,
		Timeout:  timeout,
	}, nil
}
