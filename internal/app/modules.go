package app

import (
	"github.com/vk/flowgridgo/internal/plugin"
	"github.com/vk/flowgridgo/modules/discard"
	"github.com/vk/flowgridgo/modules/fieldmap"
	"github.com/vk/flowgridgo/modules/passthrough"
	"github.com/vk/flowgridgo/modules/static"
)

// coreModules is the definitive list of all plugin modules that are
// compiled into the flowgridgo binary.
var coreModules = []plugin.Module{
	&static.Module{},
	&passthrough.Module{},
	&fieldmap.Module{},
	&discard.Module{},
}
