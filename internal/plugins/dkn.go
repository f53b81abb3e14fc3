//go:build dknhome_plugin_dkn

package plugins

import (
	"github.com/joshp123/dknhome/internal/core"
	"github.com/joshp123/dknhome/plugins/dkn"
)

func init() {
	Register(func(deps Deps) (core.Plugin, bool) {
		return dkn.NewPlugin(deps.Config, deps.Bus, deps.Log)
	})
}
