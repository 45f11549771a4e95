// Package plugin defines the capability contracts for pipeline plugins
// and the registry that holds their factories. Capabilities are composed,
// not inherited: self-validation is mandatory for every plugin, and
// schema production/consumption are separate optional interfaces.
package plugin

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/contract"
)

// Plugin is the minimum contract every plugin instance satisfies.
// SelfValidate is called exactly once, during instance construction,
// before any topology exists; a plugin that cannot validate itself never
// becomes a node. Because the method is part of the interface, a plugin
// that fails to implement it is rejected by the compiler, not silently
// skipped at run time.
type Plugin interface {
	// Name returns the plugin type name, e.g. "fieldmap".
	Name() string
	// SelfValidate checks that the plugin's own schema declaration is
	// internally well-formed and returns a descriptive error otherwise.
	SelfValidate() error
}

// SchemaProducer is implemented by plugins that declare the shape of the
// rows they emit. A nil contract means the output is dynamic.
type SchemaProducer interface {
	OutputContract() *contract.Contract
}

// SchemaConsumer is implemented by plugins that declare the shape of the
// rows they accept. A nil contract means anything is accepted.
type SchemaConsumer interface {
	InputContract() *contract.Contract
}

// SelfValidationError reports a plugin whose own schema declaration is
// internally inconsistent. It aborts the build with the plugin's own
// diagnostic.
type SelfValidationError struct {
	Plugin string
	Err    error
}

func (e *SelfValidationError) Error() string {
	return fmt.Sprintf("plugin %q failed self-validation: %v", e.Plugin, e.Err)
}

func (e *SelfValidationError) Unwrap() error { return e.Err }
