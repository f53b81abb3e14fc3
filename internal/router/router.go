package router

import (
	"net/http"

	"github.com/joshp123/dknhome/internal/core"
	"github.com/joshp123/dknhome/internal/server"
)

// RegisterPlugins mounts the plugin registry and plugin handlers on
// the HTTP mux.
func RegisterPlugins(mux *http.ServeMux, plugins []core.Plugin) {
	registry := server.RegistryHandler(core.NewRegistry(plugins))
	mux.Handle("/api/v1/plugins", registry)
	mux.Handle("/api/v1/plugins/", registry)

	for _, p := range plugins {
		if registrant, ok := p.(core.HTTPRegistrant); ok {
			registrant.RegisterHTTP(mux)
		}
	}
}
