package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PluginSummary is the registry list entry served to clients.
type PluginSummary struct {
	PluginID    string `json:"plugin_id"`
	DisplayName string `json:"display_name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
}

// DashboardRef points at a dashboard served under /dashboards/.
type DashboardRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// PluginDescriptor is the full registry record for one plugin.
type PluginDescriptor struct {
	PluginID      string         `json:"plugin_id"`
	DisplayName   string         `json:"display_name"`
	Version       string         `json:"version"`
	Services      []string       `json:"services,omitempty"`
	Dashboards    []DashboardRef `json:"dashboards,omitempty"`
	Status        string         `json:"status"`
	HealthMessage string         `json:"health_message,omitempty"`
}

// Registry provides plugin discovery to clients.
type Registry struct {
	plugins []Plugin
	mu      sync.RWMutex
}

func NewRegistry(plugins []Plugin) *Registry {
	return &Registry{plugins: plugins}
}

func (r *Registry) ListPlugins() []PluginSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]PluginSummary, 0, len(r.plugins))
	for _, p := range r.plugins {
		manifest := p.Manifest()
		summaries = append(summaries, PluginSummary{
			PluginID:    manifest.PluginID,
			DisplayName: manifest.DisplayName,
			Version:     manifest.Version,
			Status:      string(p.Health()),
		})
	}

	return summaries
}

func (r *Registry) DescribePlugin(id string) (PluginDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		manifest := p.Manifest()
		if manifest.PluginID != id {
			continue
		}

		descriptor := PluginDescriptor{
			PluginID:      manifest.PluginID,
			DisplayName:   manifest.DisplayName,
			Version:       manifest.Version,
			Services:      manifest.Services,
			Status:        string(p.Health()),
			HealthMessage: p.HealthMessage(),
		}

		for _, d := range p.Dashboards() {
			descriptor.Dashboards = append(descriptor.Dashboards, DashboardRef{
				Name: d.Name,
				Path: "/dashboards/" + manifest.PluginID + "/" + d.Name + ".json",
			})
		}

		return descriptor, true
	}

	return PluginDescriptor{}, false
}

// FilterPlugins selects the compiled plugins enabled by config. With
// all set, every compiled plugin is active regardless of config.
func FilterPlugins(compiled []Plugin, enabled map[string]bool, all bool) []Plugin {
	if all {
		return compiled
	}

	var active []Plugin
	for _, p := range compiled {
		if enabled[p.ID()] {
			active = append(active, p)
		}
	}
	return active
}

// ValidateEnabledPlugins errors when config enables a plugin that was
// not compiled into this binary.
func ValidateEnabledPlugins(compiled []Plugin, enabled map[string]bool, all bool) error {
	if all {
		return nil
	}

	compiledIDs := make(map[string]bool, len(compiled))
	for _, p := range compiled {
		compiledIDs[p.ID()] = true
	}

	var missing []string
	for id := range enabled {
		if !compiledIDs[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("enabled plugins not compiled in: %s", strings.Join(missing, ", "))
	}
	return nil
}
