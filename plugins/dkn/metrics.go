package dkn

import "github.com/prometheus/client_golang/prometheus"

var (
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dknhome_dkn_logins_total",
			Help: "Login attempts against the DKN API by result",
		},
		[]string{"result"},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dknhome_dkn_commands_total",
			Help: "Device commands sent to the DKN API by parameter and result",
		},
		[]string{"param", "result"},
	)
	commandRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dknhome_dkn_command_rejects_total",
			Help: "MQTT command payloads rejected before reaching the API",
		},
		[]string{"command"},
	)
	pushEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dknhome_dkn_push_events_total",
			Help: "Device update frames received over the push socket",
		},
	)
	socketConnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dknhome_dkn_socket_connects_total",
			Help: "Successful push socket connections",
		},
	)
)

// MetricsCollectors exposes the package-level counters.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		loginsTotal,
		commandsTotal,
		commandRejectsTotal,
		pushEventsTotal,
		socketConnectsTotal,
	}
}

// MetricsCollector reads unit state gauges from the client cache.
// Scrapes never hit the DKN API; the cache is fed by the socket and
// the poller.
type MetricsCollector struct {
	client *Client

	deviceCount  prometheus.Gauge
	power        *prometheus.GaugeVec
	mode         *prometheus.GaugeVec
	roomTemp     *prometheus.GaugeVec
	setpoint     *prometheus.GaugeVec
	wifiRSSI     *prometheus.GaugeVec
	connected    *prometheus.GaugeVec
	machineReady *prometheus.GaugeVec
}

func NewMetricsCollector(client *Client) *MetricsCollector {
	labels := []string{"mac", "unit_name"}
	modeLabels := []string{"mac", "unit_name", "mode"}
	setpointLabels := []string{"mac", "unit_name", "mode"}
	return &MetricsCollector{
		client: client,
		deviceCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dknhome_dkn_devices",
			Help: "Number of units known to the bridge",
		}),
		power: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dknhome_dkn_power",
			Help: "Unit power state (1=on, 0=off)",
		}, labels),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dknhome_dkn_mode",
			Help: "Active HVAC mode (1=active)",
		}, modeLabels),
		roomTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dknhome_dkn_room_temperature",
			Help: "Reported room temperature in the unit's configured scale",
		}, labels),
		setpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dknhome_dkn_setpoint",
			Help: "Setpoint temperature per HVAC mode",
		}, setpointLabels),
		wifiRSSI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dknhome_dkn_wifi_rssi_dbm",
			Help: "WiFi signal strength reported by the unit (dBm)",
		}, labels),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dknhome_dkn_connected",
			Help: "Whether the unit is connected to the cloud (1=up, 0=down)",
		}, labels),
		machineReady: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dknhome_dkn_machine_ready",
			Help: "Whether the unit accepts commands (1=ready, 0=busy)",
		}, labels),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.deviceCount.Describe(ch)
	c.power.Describe(ch)
	c.mode.Describe(ch)
	c.roomTemp.Describe(ch)
	c.setpoint.Describe(ch)
	c.wifiRSSI.Describe(ch)
	c.connected.Describe(ch)
	c.machineReady.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	states := c.client.snapshot()

	c.power.Reset()
	c.mode.Reset()
	c.roomTemp.Reset()
	c.setpoint.Reset()
	c.wifiRSSI.Reset()
	c.connected.Reset()
	c.machineReady.Reset()

	c.deviceCount.Set(float64(len(states)))

	for _, state := range states {
		labels := prometheus.Labels{
			"mac":       state.Mac,
			"unit_name": state.Name,
		}

		c.power.With(labels).Set(boolToFloat(state.Power))
		c.roomTemp.With(labels).Set(state.WorkTemp)
		c.wifiRSSI.With(labels).Set(float64(state.RSSI))
		c.connected.With(labels).Set(boolToFloat(state.Connected))
		c.machineReady.With(labels).Set(boolToFloat(state.MachineReady))

		if mode, ok := HVACMode(state.Mode, state.Power); ok {
			c.mode.With(prometheus.Labels{
				"mac":       state.Mac,
				"unit_name": state.Name,
				"mode":      mode,
			}).Set(1)
		}

		setpoints := map[string]float64{
			ModeCool:     state.SetpointAirCool,
			ModeHeat:     state.SetpointAirHeat,
			ModeHeatCool: state.SetpointAirAuto,
		}
		for mode, value := range setpoints {
			c.setpoint.With(prometheus.Labels{
				"mac":       state.Mac,
				"unit_name": state.Name,
				"mode":      mode,
			}).Set(value)
		}
	}

	c.deviceCount.Collect(ch)
	c.power.Collect(ch)
	c.mode.Collect(ch)
	c.roomTemp.Collect(ch)
	c.setpoint.Collect(ch)
	c.wifiRSSI.Collect(ch)
	c.connected.Collect(ch)
	c.machineReady.Collect(ch)
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
