package plugin

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/vk/flowgridgo/internal/contract"
)

// Instance is a constructed, self-validated plugin. Construction is the
// only way to obtain one, so a plugin that reaches the builder has always
// run its self-validation exactly once.
type Instance struct {
	pluginType string
	impl       Plugin
}

// NewInstance builds a plugin through its registered factory and runs its
// self-validation. Validation failure aborts with the plugin's own
// diagnostic wrapped in a SelfValidationError.
func NewInstance(r *Registry, pluginType string, options map[string]any) (*Instance, error) {
	factory, ok := r.Lookup(pluginType)
	if !ok {
		return nil, fmt.Errorf("unknown plugin type %q (registered: %v)", pluginType, r.Types())
	}
	impl, err := factory(options)
	if err != nil {
		return nil, fmt.Errorf("plugin %q construction: %w", pluginType, err)
	}
	if err := impl.SelfValidate(); err != nil {
		return nil, &SelfValidationError{Plugin: pluginType, Err: err}
	}
	return &Instance{pluginType: pluginType, impl: impl}, nil
}

// Type returns the plugin type name used at registration.
func (i *Instance) Type() string { return i.pluginType }

// Impl returns the underlying plugin implementation.
func (i *Instance) Impl() Plugin { return i.impl }

// InputContract returns the plugin's declared input schema, or nil when
// the plugin does not consume a declared shape.
func (i *Instance) InputContract() *contract.Contract {
	if consumer, ok := i.impl.(SchemaConsumer); ok {
		return consumer.InputContract()
	}
	return nil
}

// OutputContract returns the plugin's declared output schema, or nil when
// the plugin's output is dynamic.
func (i *Instance) OutputContract() *contract.Contract {
	if producer, ok := i.impl.(SchemaProducer); ok {
		return producer.OutputContract()
	}
	return nil
}

// DecodeOptions binds an opaque option map onto a plugin-owned config
// struct. Unknown keys are an error so typos fail at construction.
func DecodeOptions(options map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("option decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}
