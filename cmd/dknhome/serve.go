package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/joshp123/dknhome/internal/config"
	"github.com/joshp123/dknhome/internal/core"
	"github.com/joshp123/dknhome/internal/logging"
	"github.com/joshp123/dknhome/internal/mqtt"
	"github.com/joshp123/dknhome/internal/plugins"
	"github.com/joshp123/dknhome/internal/rate"
	"github.com/joshp123/dknhome/internal/router"
	"github.com/joshp123/dknhome/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	log.Info("starting dknhome", "version", version)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The broker will signals bridge death to Home Assistant even when
	// the process dies without a clean shutdown.
	availability := cfg.MQTT.TopicPrefix + "/bridge/availability"
	bus, err := mqtt.Connect(mqtt.Config{
		BrokerURL: cfg.MQTT.BrokerURL,
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		Birth:     &mqtt.Message{Topic: availability, Payload: []byte("online"), Retained: true},
		Will:      &mqtt.Message{Topic: availability, Payload: []byte("offline"), Retained: true},
	})
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	defer bus.Disconnect()
	log.Info("mqtt connected", "broker", cfg.MQTT.BrokerURL)

	enabled := config.EnabledPlugins(cfg)
	active := plugins.Compiled(plugins.Deps{Config: cfg, Bus: bus, Log: log})
	if err := core.ValidatePlugins(active); err != nil {
		return err
	}
	if err := core.ValidateEnabledPlugins(active, enabled, false); err != nil {
		return err
	}
	active = core.FilterPlugins(active, enabled, false)
	if len(active) == 0 {
		log.Info("no plugins enabled; serving health and metrics only")
	}

	metricsRegistry := core.MetricsRegistry(active)
	metricsRegistry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "dknhome_build_info",
		Help:        "Build information",
		ConstLabels: prometheus.Labels{"version": version},
	}, func() float64 { return 1 }))
	metricsRegistry.MustRegister(rate.MetricsCollectors()...)

	if err := core.WriteDashboards(cfg.DashboardDir, active); err != nil {
		log.Error(err, "write dashboards failed")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HealthHandler)
	mux.Handle("/metrics", server.MetricsHandler(metricsRegistry))
	mux.Handle("/dashboards/", server.DashboardsHandler(core.DashboardsMap(active)))
	router.RegisterPlugins(mux, active)

	for _, plugin := range active {
		starter, ok := plugin.(core.Starter)
		if !ok {
			continue
		}
		if err := starter.Start(ctx); err != nil {
			return fmt.Errorf("start plugin %s: %w", plugin.ID(), err)
		}
		log.Info("plugin started", "plugin", plugin.ID())
	}

	httpServer := server.NewHTTPServer(cfg.HTTPAddr, mux)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	log.Info("http listening", "addr", cfg.HTTPAddr)

	select {
	case err := <-errCh:
		return fmt.Errorf("http serve: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, plugin := range active {
		if stopper, ok := plugin.(core.Stopper); ok {
			if err := stopper.Stop(shutdownCtx); err != nil {
				log.Error(err, "plugin stop failed", "plugin", plugin.ID())
			}
		}
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
