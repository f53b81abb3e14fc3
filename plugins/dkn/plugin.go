package dkn

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/dknhome/internal/config"
	"github.com/joshp123/dknhome/internal/core"
	"github.com/joshp123/dknhome/internal/rate"
)

//go:embed dashboard.json
var dashboardJSON []byte

// Plugin implements the bridge plugin contract for DKN Cloud NA.
type Plugin struct {
	client       *Client
	bridge       *Bridge
	sock         *socket
	log          logr.Logger
	pollInterval time.Duration

	health        core.HealthStatus
	healthMessage string
}

var (
	_ rate.RateLimited    = (*Plugin)(nil)
	_ core.HTTPRegistrant = (*Plugin)(nil)
	_ core.Starter        = (*Plugin)(nil)
	_ core.Stopper        = (*Plugin)(nil)
)

// NewPlugin constructs the DKN plugin from config.
func NewPlugin(appCfg *config.Config, bus Bus, log logr.Logger) (Plugin, bool) {
	if appCfg == nil || appCfg.DKN == nil {
		return Plugin{}, false
	}

	runtimeCfg, err := FromAppConfig(appCfg.DKN)
	if err != nil {
		return Plugin{health: core.HealthError, healthMessage: err.Error()}, true
	}

	client := NewClient(runtimeCfg, Plugin{}.RateLimits(), log)

	return Plugin{
		client:       client,
		bridge:       NewBridge(client, bus, log, appCfg.MQTT.TopicPrefix, appCfg.MQTT.DiscoveryPrefix),
		sock:         newSocket(client, log),
		log:          log,
		pollInterval: runtimeCfg.PollInterval,
		health:       core.HealthHealthy,
	}, true
}

func (p Plugin) ID() string {
	return "dkn"
}

func (p Plugin) Manifest() core.Manifest {
	return core.Manifest{
		PluginID:    "dkn",
		DisplayName: "DKN Cloud NA",
		Version:     "0.1.0",
		Services:    []string{"/api/v1/dkn"},
	}
}

func (p Plugin) RateLimits() rate.Declaration {
	return rate.Provider("dkn").
		MaxRequestsPer(rate.Minute, 30).
		MaxRequestsPer(rate.Day, 5000).
		BudgetFloor(rate.Minute, 2).
		CacheFor(30 * time.Second).
		ReadHeaders(rate.StandardHeaders())
}

func (p Plugin) Dashboards() []core.Dashboard {
	return []core.Dashboard{{Name: "dkn-overview", JSON: dashboardJSON}}
}

func (p Plugin) Collectors() []prometheus.Collector {
	collectors := MetricsCollectors()
	if p.client != nil {
		collectors = append(collectors, NewMetricsCollector(p.client))
	}
	return collectors
}

func (p Plugin) Health() core.HealthStatus {
	return p.health
}

func (p Plugin) HealthMessage() string {
	return p.healthMessage
}

// Start logs in, announces devices, and launches the push socket and
// the periodic refresh. Bad credentials fail startup rather than
// retrying quietly.
func (p Plugin) Start(ctx context.Context) error {
	if p.client == nil {
		return fmt.Errorf("dkn plugin not configured: %s", p.healthMessage)
	}

	if err := p.client.Login(ctx); err != nil {
		return fmt.Errorf("initial login: %w", err)
	}
	if err := p.bridge.Start(ctx); err != nil {
		return err
	}

	go p.sock.run(ctx)
	go p.pollLoop(ctx)
	return nil
}

// Stop unwinds the bridge so Home Assistant marks the units
// unavailable instead of stale.
func (p Plugin) Stop(_ context.Context) error {
	if p.bridge != nil {
		p.bridge.Stop()
	}
	return nil
}

// pollLoop refreshes device state on the configured interval as a
// safety net for updates the socket missed.
func (p Plugin) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.client.Refresh(ctx); err != nil {
				p.log.Error(err, "periodic refresh failed")
			}
		}
	}
}
