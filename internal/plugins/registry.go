package plugins

import (
	"github.com/go-logr/logr"

	"github.com/joshp123/dknhome/internal/config"
	"github.com/joshp123/dknhome/internal/core"
	"github.com/joshp123/dknhome/internal/mqtt"
)

// Deps carries the shared runtime a plugin factory may wire in.
type Deps struct {
	Config *config.Config
	Bus    *mqtt.Client
	Log    logr.Logger
}

// Factory builds a plugin instance from the runtime deps.
type Factory func(Deps) (core.Plugin, bool)

var compiled []Factory

// Register adds a compiled-in plugin factory to the registry.
func Register(factory Factory) {
	compiled = append(compiled, factory)
}

// Compiled returns the configured plugin instances for this build.
func Compiled(deps Deps) []core.Plugin {
	if deps.Config == nil {
		return nil
	}
	out := make([]core.Plugin, 0, len(compiled))
	for _, factory := range compiled {
		plugin, ok := factory(deps)
		if !ok {
			continue
		}
		out = append(out, plugin)
	}
	return out
}
