// Package passthrough provides a transform plugin that forwards rows
// unchanged. It optionally declares a schema; when it does, the same
// contract serves as both input and output, so the no-transformation
// property holds by construction.
package passthrough

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/plugin"
)

// Module implements the plugin.Module interface for this package.
type Module struct{}

// Register registers the passthrough transform factory.
func (m *Module) Register(r *plugin.Registry) {
	r.Register("passthrough", New)
}

// FieldOption declares one field of the forwarded schema.
type FieldOption struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Required bool   `mapstructure:"required"`
}

// Options is the decoded option set of a passthrough stage.
type Options struct {
	Mode   string        `mapstructure:"mode"`
	Fields []FieldOption `mapstructure:"fields"`
}

// Transform is a constructed passthrough instance.
type Transform struct {
	options Options
	schema  *contract.Contract
}

// New builds a passthrough transform from its option map.
func New(options map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return &Transform{options: opts}, nil
}

// Name returns the plugin type name.
func (t *Transform) Name() string { return "passthrough" }

// SelfValidate builds the single shared contract, if fields were
// declared. With no fields the transform is fully dynamic.
func (t *Transform) SelfValidate() error {
	if len(t.options.Fields) == 0 {
		return nil
	}
	mode := contract.ModeFlexible
	if t.options.Mode != "" {
		parsed, err := contract.ParseMode(t.options.Mode)
		if err != nil {
			return err
		}
		mode = parsed
	}
	fields := make([]contract.Field, len(t.options.Fields))
	for i, f := range t.options.Fields {
		vt, err := contract.ParseValueType(f.Type)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields[i] = contract.Field{
			NormalizedName: f.Name,
			OriginalName:   f.Name,
			Type:           vt,
			Required:       f.Required,
			Source:         contract.SourceDeclared,
		}
	}
	schema, err := contract.New(mode, fields...)
	if err != nil {
		return err
	}
	t.schema = schema
	return nil
}

// InputContract returns the shared contract; nil when dynamic.
func (t *Transform) InputContract() *contract.Contract { return t.schema }

// OutputContract returns the shared contract; nil when dynamic.
func (t *Transform) OutputContract() *contract.Contract { return t.schema }

// Apply forwards a row unchanged.
func (t *Transform) Apply(row map[string]any) map[string]any { return row }
