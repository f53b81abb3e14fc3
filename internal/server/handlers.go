package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/joshp123/dknhome/internal/core"
)

// HealthHandler returns a simple OK for liveness checks.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// WriteJSON encodes v to the response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError reports a handler failure as a JSON error body.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// RegistryHandler serves plugin discovery at /api/v1/plugins.
func RegistryHandler(registry *core.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/plugins"), "/")
		if id == "" {
			WriteJSON(w, http.StatusOK, map[string]any{"plugins": registry.ListPlugins()})
			return
		}

		descriptor, ok := registry.DescribePlugin(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "unknown plugin: "+id)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"plugin": descriptor})
	})
}
