package hass

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestConfigTopic(t *testing.T) {
	got := ConfigTopic("homeassistant", "climate", "aabbcc")
	if got != "homeassistant/climate/aabbcc/config" {
		t.Fatalf("ConfigTopic = %q", got)
	}
}

func TestClimateMarshal(t *testing.T) {
	climate := Climate{
		Name:     "Living Room",
		UniqueID: "aabbcc_climate",
		Device: Device{
			Identifiers:  []string{"AA:BB:CC"},
			Manufacturer: "Daikin",
		},
		Availability: []Availability{
			{Topic: "dknhome/bridge/availability"},
			{Topic: "dknhome/aabbcc/availability"},
		},
		AvailabilityMode:        "all",
		Modes:                   []string{"off", "cool", "heat"},
		FanModes:                []string{"auto", "low"},
		ModeStateTopic:          "dknhome/aabbcc/climate/mode/state",
		ModeCommandTopic:        "dknhome/aabbcc/climate/mode/set",
		ActionTopic:             "dknhome/aabbcc/climate/action/state",
		CurrentTemperatureTopic: "dknhome/aabbcc/climate/current_temperature/state",
		TemperatureStateTopic:   "dknhome/aabbcc/climate/target_temperature/state",
		TemperatureCommandTopic: "dknhome/aabbcc/climate/target_temperature/set",
		MinTemp:                 16,
		MaxTemp:                 30,
		TempStep:                0.5,
		TemperatureUnit:         "C",
	}

	data, err := json.Marshal(climate)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{
		"name", "unique_id", "device", "availability", "availability_mode",
		"modes", "fan_modes", "mode_state_topic", "mode_command_topic",
		"action_topic", "temp_step", "temperature_unit",
	} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if decoded["availability_mode"] != "all" {
		t.Errorf("availability_mode = %v", decoded["availability_mode"])
	}
}

func TestSensorMarshalOmitsEmpty(t *testing.T) {
	sensor := Sensor{
		Name:       "WiFi SSID",
		UniqueID:   "aabbcc_ssid",
		Device:     Device{Identifiers: []string{"AA:BB:CC"}},
		StateTopic: "dknhome/aabbcc/sensor/ssid/state",
		Icon:       "mdi:access-point-network",
	}

	data, err := json.Marshal(sensor)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	for _, absent := range []string{"unit_of_measurement", "device_class", "state_class"} {
		if strings.Contains(body, absent) {
			t.Errorf("payload should omit %q: %s", absent, body)
		}
	}
	if !strings.Contains(body, `"icon":"mdi:access-point-network"`) {
		t.Errorf("icon missing from payload: %s", body)
	}
}
