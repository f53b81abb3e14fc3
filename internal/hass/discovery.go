// Package hass builds Home Assistant MQTT discovery payloads.
package hass

import "fmt"

// Device groups entities under one Home Assistant device entry.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// Availability points at one availability topic.
type Availability struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available,omitempty"`
	PayloadNotAvailable string `json:"payload_not_available,omitempty"`
}

// Climate is the discovery config for an MQTT climate entity.
type Climate struct {
	Name             string         `json:"name"`
	UniqueID         string         `json:"unique_id"`
	Device           Device         `json:"device"`
	Availability     []Availability `json:"availability,omitempty"`
	AvailabilityMode string         `json:"availability_mode,omitempty"`

	Modes    []string `json:"modes"`
	FanModes []string `json:"fan_modes,omitempty"`

	ModeStateTopic          string `json:"mode_state_topic"`
	ModeCommandTopic        string `json:"mode_command_topic"`
	ActionTopic             string `json:"action_topic,omitempty"`
	CurrentTemperatureTopic string `json:"current_temperature_topic,omitempty"`
	TemperatureStateTopic   string `json:"temperature_state_topic,omitempty"`
	TemperatureCommandTopic string `json:"temperature_command_topic,omitempty"`
	FanModeStateTopic       string `json:"fan_mode_state_topic,omitempty"`
	FanModeCommandTopic     string `json:"fan_mode_command_topic,omitempty"`

	MinTemp         float64 `json:"min_temp,omitempty"`
	MaxTemp         float64 `json:"max_temp,omitempty"`
	TempStep        float64 `json:"temp_step,omitempty"`
	TemperatureUnit string  `json:"temperature_unit,omitempty"`
}

// Sensor is the discovery config for an MQTT sensor entity.
type Sensor struct {
	Name              string         `json:"name"`
	UniqueID          string         `json:"unique_id"`
	Device            Device         `json:"device"`
	Availability      []Availability `json:"availability,omitempty"`
	AvailabilityMode  string         `json:"availability_mode,omitempty"`
	StateTopic        string         `json:"state_topic"`
	UnitOfMeasurement string         `json:"unit_of_measurement,omitempty"`
	DeviceClass       string         `json:"device_class,omitempty"`
	StateClass        string         `json:"state_class,omitempty"`
	Icon              string         `json:"icon,omitempty"`
	EntityCategory    string         `json:"entity_category,omitempty"`
}

// ConfigTopic returns the discovery config topic for a component.
func ConfigTopic(prefix, component, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/config", prefix, component, objectID)
}
