package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes all top-level blocks of a definition file.
type fileRoot struct {
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

// pipelineBlock is one `pipeline "<name>" { ... }` block.
type pipelineBlock struct {
	Name         string              `hcl:"name,label"`
	Sources      []*pluginBlock      `hcl:"source,block"`
	Transforms   []*pluginBlock      `hcl:"transform,block"`
	Gates        []*gateBlock        `hcl:"gate,block"`
	Aggregations []*aggregationBlock `hcl:"aggregation,block"`
	Coalesces    []*coalesceBlock    `hcl:"coalesce,block"`
	Sinks        []*pluginBlock      `hcl:"sink,block"`
}

// pluginBlock covers source, transform, and sink stages, which all carry
// a plugin type label and an instance name label.
type pluginBlock struct {
	PluginType string         `hcl:"plugin_type,label"`
	Name       string         `hcl:"instance_name,label"`
	Input      string         `hcl:"input,optional"`
	Options    *optionsBlock  `hcl:"options,block"`
	Contract   *contractBlock `hcl:"contract,block"`
}

// optionsBlock holds opaque plugin configuration as raw attributes.
type optionsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// contractBlock declares a stage's schema contract.
type contractBlock struct {
	Mode   string        `hcl:"mode,optional"`
	Fields []*fieldBlock `hcl:"field,block"`
}

// fieldBlock declares one contract field.
type fieldBlock struct {
	Name         string `hcl:"name,label"`
	Type         string `hcl:"type"`
	OriginalName string `hcl:"original_name,optional"`
	Required     bool   `hcl:"required,optional"`
}

// gateBlock is a routing stage. A gate with a branches attribute is a
// fork; one with route blocks is a conditional router; one with neither
// is a pass-through.
type gateBlock struct {
	Name     string         `hcl:"instance_name,label"`
	Input    string         `hcl:"input,optional"`
	Branches hcl.Expression `hcl:"branches,optional"`
	Routes   []*routeBlock  `hcl:"route,block"`
	Contract *contractBlock `hcl:"contract,block"`
}

// routeBlock binds one route label to its target stage.
type routeBlock struct {
	Label string `hcl:"label,label"`
	To    string `hcl:"to"`
}

// aggregationBlock is a framework stage accumulating rows until its
// trigger fires.
type aggregationBlock struct {
	Name     string         `hcl:"instance_name,label"`
	Input    string         `hcl:"input,optional"`
	Trigger  string         `hcl:"trigger,optional"`
	Options  *optionsBlock  `hcl:"options,block"`
	Contract *contractBlock `hcl:"contract,block"`
}

// coalesceBlock merges the branches of a fork back into one flow.
type coalesceBlock struct {
	Name     string `hcl:"instance_name,label"`
	Fork     string `hcl:"fork"`
	Policy   string `hcl:"policy,optional"`
	Strategy string `hcl:"strategy,optional"`
	Quorum   int    `hcl:"quorum,optional"`
	Select   string `hcl:"select,optional"`
	Timeout  string `hcl:"timeout,optional"`
}
