package dkn

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/joshp123/dknhome/internal/hass"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Bus is the broker surface the bridge publishes and subscribes on.
type Bus interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, cb func([]byte)) (func(), error)
}

// Bridge announces devices to Home Assistant over MQTT discovery,
// mirrors unit state to state topics, and turns command topic
// payloads into API calls.
type Bridge struct {
	client          *Client
	bus             Bus
	log             logr.Logger
	topicPrefix     string
	discoveryPrefix string

	unsubs []func()
}

func NewBridge(client *Client, bus Bus, log logr.Logger, topicPrefix, discoveryPrefix string) *Bridge {
	return &Bridge{
		client:          client,
		bus:             bus,
		log:             log,
		topicPrefix:     topicPrefix,
		discoveryPrefix: discoveryPrefix,
	}
}

// Start announces every unit, wires command subscriptions and update
// callbacks, and publishes the initial state.
func (b *Bridge) Start(ctx context.Context) error {
	devices, err := b.client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("load devices: %w", err)
	}

	if err := b.bus.Publish(b.bridgeAvailabilityTopic(), []byte(payloadOnline), true); err != nil {
		return err
	}

	for _, device := range devices {
		climate := NewClimate(device)
		if err := b.announce(device, climate); err != nil {
			return fmt.Errorf("announce %s: %w", device.Mac(), err)
		}
		if err := b.subscribeCommands(ctx, climate); err != nil {
			return fmt.Errorf("subscribe commands for %s: %w", device.Mac(), err)
		}
		device.SetUpdateCallback(func() { b.publishState(climate) })
		b.publishState(climate)
	}

	return nil
}

// Stop removes command subscriptions and marks the bridge offline.
func (b *Bridge) Stop() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil

	if err := b.bus.Publish(b.bridgeAvailabilityTopic(), []byte(payloadOffline), true); err != nil {
		b.log.Error(err, "publish bridge offline failed")
	}
}

func (b *Bridge) announce(device *Device, climate *Climate) error {
	state := device.State()
	id := topicID(state.Mac)

	deviceBlock := hass.Device{
		Identifiers:  []string{state.Mac},
		Manufacturer: "Daikin",
		Model:        state.Brand,
		Name:         state.Name,
		SWVersion:    state.Firmware,
	}
	availability := []hass.Availability{
		{Topic: b.bridgeAvailabilityTopic()},
		{Topic: b.deviceAvailabilityTopic(id)},
	}

	climateCfg := hass.Climate{
		Name:             state.Name,
		UniqueID:         id + "_climate",
		Device:           deviceBlock,
		Availability:     availability,
		AvailabilityMode: "all",
		Modes:            HVACModes(),
		FanModes:         FanModes(),

		ModeStateTopic:          b.stateTopic(id, "mode"),
		ModeCommandTopic:        b.commandTopic(id, "mode"),
		ActionTopic:             b.stateTopic(id, "action"),
		CurrentTemperatureTopic: b.stateTopic(id, "current_temperature"),
		TemperatureStateTopic:   b.stateTopic(id, "target_temperature"),
		TemperatureCommandTopic: b.commandTopic(id, "target_temperature"),
		FanModeStateTopic:       b.stateTopic(id, "fan_mode"),
		FanModeCommandTopic:     b.commandTopic(id, "fan_mode"),

		TempStep:        0.5,
		TemperatureUnit: climate.TemperatureUnit(),
	}
	if low, high, ok := climate.TemperatureLimits(); ok {
		climateCfg.MinTemp = low
		climateCfg.MaxTemp = high
	}

	payload, err := json.Marshal(climateCfg)
	if err != nil {
		return err
	}
	if err := b.bus.Publish(hass.ConfigTopic(b.discoveryPrefix, "climate", id), payload, true); err != nil {
		return err
	}

	for _, sensor := range Sensors(device) {
		meta := sensor.Meta()
		objectID := fmt.Sprintf("%s_%s", id, sensor.Kind())
		sensorCfg := hass.Sensor{
			Name:              meta.Name,
			UniqueID:          objectID,
			Device:            deviceBlock,
			Availability:      availability,
			AvailabilityMode:  "all",
			StateTopic:        b.sensorStateTopic(id, sensor.Kind()),
			UnitOfMeasurement: meta.Unit,
			DeviceClass:       meta.DeviceClass,
			StateClass:        meta.StateClass,
			Icon:              meta.Icon,
			EntityCategory:    meta.EntityCategory,
		}
		payload, err := json.Marshal(sensorCfg)
		if err != nil {
			return err
		}
		if err := b.bus.Publish(hass.ConfigTopic(b.discoveryPrefix, "sensor", objectID), payload, true); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bridge) subscribeCommands(ctx context.Context, climate *Climate) error {
	mac := climate.Device().Mac()
	id := topicID(mac)

	handlers := map[string]func(string) error{
		"mode": func(payload string) error {
			return climate.SetHVACMode(ctx, payload)
		},
		"target_temperature": func(payload string) error {
			value, err := strconv.ParseFloat(payload, 64)
			if err != nil {
				return fmt.Errorf("parse temperature %q: %w", payload, err)
			}
			return climate.SetTemperature(ctx, value)
		},
		"fan_mode": func(payload string) error {
			return climate.SetFanMode(ctx, payload)
		},
	}

	for key, handler := range handlers {
		unsub, err := b.bus.Subscribe(b.commandTopic(id, key), func(payload []byte) {
			value := strings.TrimSpace(string(payload))
			if err := handler(value); err != nil {
				commandRejectsTotal.WithLabelValues(key).Inc()
				b.log.Error(err, "command failed", "mac", mac, "command", key, "payload", value)
			}
		})
		if err != nil {
			return err
		}
		b.unsubs = append(b.unsubs, unsub)
	}

	return nil
}

// publishState mirrors the unit to its state topics. A unit reporting
// a mode code outside the known table keeps its last published state
// rather than flapping the entity.
func (b *Bridge) publishState(climate *Climate) {
	device := climate.Device()
	state := device.State()
	id := topicID(state.Mac)

	mode, ok := climate.HVACMode()
	if !ok {
		b.log.Info("unit reports unknown mode code; keeping last published state",
			"mac", state.Mac, "code", state.Mode)
		return
	}

	publish := func(topic, payload string) {
		if err := b.bus.Publish(topic, []byte(payload), true); err != nil {
			b.log.Error(err, "publish failed", "topic", topic)
		}
	}

	publish(b.stateTopic(id, "mode"), mode)
	publish(b.stateTopic(id, "action"), climate.HVACAction())
	publish(b.stateTopic(id, "current_temperature"), strconv.FormatFloat(climate.CurrentTemperature(), 'f', 1, 64))

	if target, ok := climate.TargetTemperature(); ok {
		publish(b.stateTopic(id, "target_temperature"), strconv.FormatFloat(target, 'f', 1, 64))
	} else {
		// "None" clears the target in Home Assistant for modes
		// without a setpoint.
		publish(b.stateTopic(id, "target_temperature"), "None")
	}

	if fan, ok := climate.FanMode(); ok {
		publish(b.stateTopic(id, "fan_mode"), fan)
	}

	for _, sensor := range Sensors(device) {
		publish(b.sensorStateTopic(id, sensor.Kind()), sensor.Value())
	}

	availability := payloadOffline
	if climate.Available() {
		availability = payloadOnline
	}
	publish(b.deviceAvailabilityTopic(id), availability)
}

func (b *Bridge) bridgeAvailabilityTopic() string {
	return b.topicPrefix + "/bridge/availability"
}

func (b *Bridge) deviceAvailabilityTopic(id string) string {
	return fmt.Sprintf("%s/%s/availability", b.topicPrefix, id)
}

func (b *Bridge) stateTopic(id, key string) string {
	return fmt.Sprintf("%s/%s/climate/%s/state", b.topicPrefix, id, key)
}

func (b *Bridge) commandTopic(id, key string) string {
	return fmt.Sprintf("%s/%s/climate/%s/set", b.topicPrefix, id, key)
}

func (b *Bridge) sensorStateTopic(id string, kind SensorKind) string {
	return fmt.Sprintf("%s/%s/sensor/%s/state", b.topicPrefix, id, kind)
}

// topicID turns a MAC into a topic and object id safe form. Raw MACs
// keep their colons only inside the device identifiers block.
func topicID(mac string) string {
	return strings.ToLower(strings.ReplaceAll(mac, ":", ""))
}
