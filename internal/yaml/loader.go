// Package yaml is the YAML front end of the definition loader. It
// mirrors the HCL loader: parse files, translate into the agnostic
// config model, and keep every format detail behind the Loader
// interface.
package yaml

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/fsutil"
	yamlv3 "gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	Pipeline *pipelineDoc `yaml:"pipeline"`
}

type pipelineDoc struct {
	Name   string      `yaml:"name"`
	Stages []*stageDoc `yaml:"stages"`
}

type stageDoc struct {
	Kind     string            `yaml:"kind"`
	Type     string            `yaml:"type"`
	Name     string            `yaml:"name"`
	Input    string            `yaml:"input"`
	Options  map[string]any    `yaml:"options"`
	Contract *contractDoc      `yaml:"contract"`
	Routes   map[string]string `yaml:"routes"`
	Branches *branchesDoc      `yaml:"branches"`
	Fork     string            `yaml:"fork"`
	Policy   string            `yaml:"policy"`
	Strategy string            `yaml:"strategy"`
	Quorum   int               `yaml:"quorum"`
	Select   string            `yaml:"select"`
	Timeout  string            `yaml:"timeout"`
	Trigger  string            `yaml:"trigger"`
}

type contractDoc struct {
	Mode   string      `yaml:"mode"`
	Fields []*fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Name         string `yaml:"name"`
	OriginalName string `yaml:"original_name"`
	Type         string `yaml:"type"`
	Required     bool   `yaml:"required"`
}

// branchesDoc accepts both branch forms. Decoding goes through the raw
// node so that the map form keeps its declaration order; a plain
// map[string]string would scramble it.
type branchesDoc struct {
	branches *config.Branches
}

func (b *branchesDoc) UnmarshalYAML(node *yamlv3.Node) error {
	switch node.Kind {
	case yamlv3.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		b.branches = config.NewIdentityBranches(names)
		return nil
	case yamlv3.MappingNode:
		branches := &config.Branches{Bindings: make(map[string]string, len(node.Content)/2)}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			branches.Order = append(branches.Order, key)
			branches.Bindings[key] = node.Content[i+1].Value
		}
		b.branches = branches
		return nil
	default:
		return fmt.Errorf("branches must be a list of names or a map of branch to connection")
	}
}

// Load parses every .yaml/.yml file under the given paths and merges
// their pipeline documents into one model, following the same merge
// rules as the HCL loader.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.Find(paths, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML definition files.", "count", len(files))

	var pipeline *config.Pipeline
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		var root fileRoot
		if err := yamlv3.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		if root.Pipeline == nil {
			continue
		}
		if pipeline == nil {
			pipeline = &config.Pipeline{Name: root.Pipeline.Name}
		} else if pipeline.Name != root.Pipeline.Name {
			return nil, fmt.Errorf("multiple pipelines defined in one load: %s, %s", pipeline.Name, root.Pipeline.Name)
		}
		for _, doc := range root.Pipeline.Stages {
			stage, err := translateStage(doc)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			pipeline.Stages = append(pipeline.Stages, stage)
		}
	}
	if pipeline == nil {
		return nil, fmt.Errorf("no pipeline documents found in %d file(s)", len(files))
	}

	logger.Debug("YAML loading complete.", "pipeline", pipeline.Name, "stages", len(pipeline.Stages))
	return &config.Model{Pipeline: pipeline}, nil
}

func translateStage(doc *stageDoc) (*config.Stage, error) {
	stage := &config.Stage{
		Kind:     doc.Kind,
		Type:     doc.Type,
		Name:     doc.Name,
		Input:    doc.Input,
		Options:  doc.Options,
		Routes:   doc.Routes,
		Fork:     doc.Fork,
		Policy:   doc.Policy,
		Strategy: doc.Strategy,
		Quorum:   doc.Quorum,
		Select:   doc.Select,
		Timeout:  doc.Timeout,
		Trigger:  doc.Trigger,
	}
	if doc.Branches != nil {
		if err := doc.Branches.branches.Validate(); err != nil {
			return nil, fmt.Errorf("stage %q: %w", doc.Name, err)
		}
		stage.Branches = doc.Branches.branches
	}
	if doc.Contract != nil {
		stage.Mode = doc.Contract.Mode
		for _, f := range doc.Contract.Fields {
			stage.Fields = append(stage.Fields, &config.FieldDef{
				Name:         f.Name,
				OriginalName: f.OriginalName,
				Type:         f.Type,
				Required:     f.Required,
			})
		}
	}
	return stage, nil
}
