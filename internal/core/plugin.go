package core

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// HealthStatus represents plugin health states for registry reporting.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "HEALTHY"
	HealthDegraded HealthStatus = "DEGRADED"
	HealthError    HealthStatus = "ERROR"
)

// Dashboard is a Grafana dashboard asset embedded by the plugin.
type Dashboard struct {
	Name string
	JSON []byte
}

// Manifest describes a plugin for discovery and registry metadata.
type Manifest struct {
	PluginID    string
	DisplayName string
	Version     string
	Services    []string
}

// Plugin is the compile-time contract for all bridge plugins.
type Plugin interface {
	ID() string
	Manifest() Manifest
	Dashboards() []Dashboard
	Collectors() []prometheus.Collector
	Health() HealthStatus
	HealthMessage() string
}

// HTTPRegistrant allows plugins to expose HTTP handlers.
type HTTPRegistrant interface {
	RegisterHTTP(*http.ServeMux)
}

// Starter is implemented by plugins that run background work. Start
// must return promptly; long-lived loops belong in goroutines bound
// to ctx.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is implemented by plugins that need orderly shutdown.
type Stopper interface {
	Stop(ctx context.Context) error
}
