// Package hcl is the HCL front end of the definition loader. It parses
// pipeline files into block structs, then translates them into the
// format-agnostic config model. Nothing downstream of the loader ever
// sees HCL types.
package hcl

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/fsutil"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under the given paths and merges their
// pipeline blocks into one model. Blocks naming the same pipeline may be
// split across files; two different pipeline names in one load are an
// error.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.Find(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL definition files.", "count", len(files))

	parser := hclparse.NewParser()
	pipelines := make(map[string]*config.Pipeline)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("decode %s: %w", file, diags)
		}
		for _, block := range root.Pipelines {
			pipeline, ok := pipelines[block.Name]
			if !ok {
				pipeline = &config.Pipeline{Name: block.Name}
				pipelines[block.Name] = pipeline
			}
			if err := l.translatePipeline(pipeline, block); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}
	}

	switch len(pipelines) {
	case 0:
		return nil, fmt.Errorf("no pipeline blocks found in %d file(s)", len(files))
	case 1:
		for _, p := range pipelines {
			logger.Debug("HCL loading complete.", "pipeline", p.Name, "stages", len(p.Stages))
			return &config.Model{Pipeline: p}, nil
		}
	}
	return nil, fmt.Errorf("multiple pipelines defined in one load: %s", strings.Join(sortedKeys(pipelines), ", "))
}

// translatePipeline appends one pipeline block's stages to the model
// pipeline. Within a block, stages are appended kind by kind; stage
// semantics never depend on declaration order.
func (l *Loader) translatePipeline(p *config.Pipeline, block *pipelineBlock) error {
	for _, b := range block.Sources {
		stage, err := translatePlugin("source", b)
		if err != nil {
			return err
		}
		p.Stages = append(p.Stages, stage)
	}
	for _, b := range block.Transforms {
		stage, err := translatePlugin("transform", b)
		if err != nil {
			return err
		}
		p.Stages = append(p.Stages, stage)
	}
	for _, b := range block.Gates {
		stage, err := translateGate(b)
		if err != nil {
			return err
		}
		p.Stages = append(p.Stages, stage)
	}
	for _, b := range block.Aggregations {
		stage, err := translateAggregation(b)
		if err != nil {
			return err
		}
		p.Stages = append(p.Stages, stage)
	}
	for _, b := range block.Coalesces {
		p.Stages = append(p.Stages, &config.Stage{
			Kind:     "coalesce",
			Name:     b.Name,
			Fork:     b.Fork,
			Policy:   b.Policy,
			Strategy: b.Strategy,
			Quorum:   b.Quorum,
			Select:   b.Select,
			Timeout:  b.Timeout,
		})
	}
	for _, b := range block.Sinks {
		stage, err := translatePlugin("sink", b)
		if err != nil {
			return err
		}
		p.Stages = append(p.Stages, stage)
	}
	return nil
}

func translatePlugin(kind string, b *pluginBlock) (*config.Stage, error) {
	options, err := extractOptions(b.Options)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, b.Name, err)
	}
	stage := &config.Stage{
		Kind:    kind,
		Type:    b.PluginType,
		Name:    b.Name,
		Input:   b.Input,
		Options: options,
	}
	applyContract(stage, b.Contract)
	return stage, nil
}

func translateGate(b *gateBlock) (*config.Stage, error) {
	stage := &config.Stage{
		Kind:  "gate",
		Name:  b.Name,
		Input: b.Input,
	}
	branches, err := parseBranches(b.Branches)
	if err != nil {
		return nil, fmt.Errorf("gate %q: %w", b.Name, err)
	}
	if branches != nil {
		if err := branches.Validate(); err != nil {
			return nil, fmt.Errorf("gate %q: %w", b.Name, err)
		}
		stage.Branches = branches
	}
	if len(b.Routes) > 0 {
		stage.Routes = make(map[string]string, len(b.Routes))
		for _, r := range b.Routes {
			if _, dup := stage.Routes[r.Label]; dup {
				return nil, fmt.Errorf("gate %q: duplicate route %q", b.Name, r.Label)
			}
			stage.Routes[r.Label] = r.To
		}
	}
	applyContract(stage, b.Contract)
	return stage, nil
}

func translateAggregation(b *aggregationBlock) (*config.Stage, error) {
	options, err := extractOptions(b.Options)
	if err != nil {
		return nil, fmt.Errorf("aggregation %q: %w", b.Name, err)
	}
	stage := &config.Stage{
		Kind:    "aggregation",
		Name:    b.Name,
		Input:   b.Input,
		Trigger: b.Trigger,
		Options: options,
	}
	applyContract(stage, b.Contract)
	return stage, nil
}

func applyContract(stage *config.Stage, c *contractBlock) {
	if c == nil {
		return
	}
	stage.Mode = c.Mode
	for _, f := range c.Fields {
		stage.Fields = append(stage.Fields, &config.FieldDef{
			Name:         f.Name,
			OriginalName: f.OriginalName,
			Type:         f.Type,
			Required:     f.Required,
		})
	}
}
