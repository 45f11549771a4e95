// Package static provides a source plugin that emits a fixed set of rows
// declared inline in the definition. It is the reference schema-producing
// source: its output contract is built from its options and every
// declared row must already satisfy it at self-validation time.
package static

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/plugin"
)

// Module implements the plugin.Module interface for this package.
type Module struct{}

// Register registers the static source factory.
func (m *Module) Register(r *plugin.Registry) {
	r.Register("static", New)
}

// FieldOption declares one output field in the options map.
type FieldOption struct {
	Name         string `mapstructure:"name"`
	OriginalName string `mapstructure:"original_name"`
	Type         string `mapstructure:"type"`
	Required     bool   `mapstructure:"required"`
}

// Options is the decoded option set of a static source stage.
type Options struct {
	Mode   string           `mapstructure:"mode"`
	Fields []FieldOption    `mapstructure:"fields"`
	Rows   []map[string]any `mapstructure:"rows"`
}

// Source is a constructed static source instance.
type Source struct {
	options Options
	schema  *contract.Contract
}

// New builds a static source from its option map.
func New(options map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return &Source{options: opts}, nil
}

// Name returns the plugin type name.
func (s *Source) Name() string { return "static" }

// SelfValidate builds the output contract from the declared fields and
// checks every declared row against it. Both the field declarations and
// the rows come from the same stage definition, so any failure here is a
// defect in the definition itself, caught before topology exists.
func (s *Source) SelfValidate() error {
	if len(s.options.Fields) == 0 {
		return fmt.Errorf("static source requires at least one field")
	}
	mode := contract.ModeFixed
	if s.options.Mode != "" {
		parsed, err := contract.ParseMode(s.options.Mode)
		if err != nil {
			return err
		}
		mode = parsed
	}
	fields := make([]contract.Field, len(s.options.Fields))
	for i, f := range s.options.Fields {
		vt, err := contract.ParseValueType(f.Type)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		original := f.OriginalName
		if original == "" {
			original = f.Name
		}
		fields[i] = contract.Field{
			NormalizedName: f.Name,
			OriginalName:   original,
			Type:           vt,
			Required:       f.Required,
			Source:         contract.SourceDeclared,
		}
	}
	schema, err := contract.New(mode, fields...)
	if err != nil {
		return err
	}
	for i, row := range s.options.Rows {
		if violations := schema.Validate(row); len(violations) > 0 {
			return fmt.Errorf("row %d violates declared schema: %v", i, violations[0])
		}
	}
	s.schema = schema
	return nil
}

// OutputContract returns the contract built from the field options.
func (s *Source) OutputContract() *contract.Contract { return s.schema }

// Rows returns the declared rows in definition order.
func (s *Source) Rows() []map[string]any { return s.options.Rows }
