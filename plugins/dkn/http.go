package dkn

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joshp123/dknhome/internal/server"
)

// DeviceSummary is the REST representation of one unit.
type DeviceSummary struct {
	Mac                string   `json:"mac"`
	Name               string   `json:"name"`
	Model              string   `json:"model,omitempty"`
	Firmware           string   `json:"firmware,omitempty"`
	HVACMode           string   `json:"hvac_mode"`
	HVACAction         string   `json:"hvac_action"`
	CurrentTemperature float64  `json:"current_temperature"`
	TargetTemperature  *float64 `json:"target_temperature,omitempty"`
	FanMode            string   `json:"fan_mode,omitempty"`
	TemperatureUnit    string   `json:"temperature_unit"`
	Available          bool     `json:"available"`
}

// RegisterHTTP mounts the plugin REST API.
func (p Plugin) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/dkn/devices", p.handleListDevices)
	mux.HandleFunc("GET /api/v1/dkn/devices/{mac}", p.handleGetDevice)
	mux.HandleFunc("POST /api/v1/dkn/devices/{mac}/mode", p.handleSetMode)
	mux.HandleFunc("POST /api/v1/dkn/devices/{mac}/temperature", p.handleSetTemperature)
	mux.HandleFunc("POST /api/v1/dkn/devices/{mac}/fan", p.handleSetFan)
}

func (p Plugin) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if p.client == nil {
		server.WriteError(w, http.StatusServiceUnavailable, "dkn plugin not configured")
		return
	}

	devices, err := p.client.Devices(r.Context())
	if err != nil {
		server.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	summaries := make([]DeviceSummary, 0, len(devices))
	for _, device := range devices {
		summaries = append(summaries, deviceSummary(device))
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"devices": summaries})
}

func (p Plugin) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := p.lookupDevice(w, r)
	if !ok {
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"device": deviceSummary(device)})
}

func (p Plugin) handleSetMode(w http.ResponseWriter, r *http.Request) {
	device, ok := p.lookupDevice(w, r)
	if !ok {
		return
	}

	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeCommandResult(w, NewClimate(device).SetHVACMode(r.Context(), body.Mode))
}

func (p Plugin) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	device, ok := p.lookupDevice(w, r)
	if !ok {
		return
	}

	var body struct {
		Temperature *float64 `json:"temperature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Temperature == nil {
		server.WriteError(w, http.StatusBadRequest, "temperature is required")
		return
	}

	writeCommandResult(w, NewClimate(device).SetTemperature(r.Context(), *body.Temperature))
}

func (p Plugin) handleSetFan(w http.ResponseWriter, r *http.Request) {
	device, ok := p.lookupDevice(w, r)
	if !ok {
		return
	}

	var body struct {
		FanMode string `json:"fan_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeCommandResult(w, NewClimate(device).SetFanMode(r.Context(), body.FanMode))
}

// lookupDevice resolves the {mac} path value, writing the error
// response itself when the plugin is unconfigured or the unit is
// unknown.
func (p Plugin) lookupDevice(w http.ResponseWriter, r *http.Request) (*Device, bool) {
	if p.client == nil {
		server.WriteError(w, http.StatusServiceUnavailable, "dkn plugin not configured")
		return nil, false
	}

	if _, err := p.client.Devices(r.Context()); err != nil {
		server.WriteError(w, http.StatusBadGateway, err.Error())
		return nil, false
	}

	mac := r.PathValue("mac")
	device, ok := p.client.Device(mac)
	if !ok {
		server.WriteError(w, http.StatusNotFound, "unknown device: "+mac)
		return nil, false
	}
	return device, true
}

func writeCommandResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		server.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, ErrUnknownMode), errors.Is(err, ErrUnknownFanMode):
		server.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoSetpoint):
		server.WriteError(w, http.StatusConflict, err.Error())
	default:
		server.WriteError(w, http.StatusBadGateway, err.Error())
	}
}

func deviceSummary(device *Device) DeviceSummary {
	climate := NewClimate(device)
	state := device.State()

	summary := DeviceSummary{
		Mac:                state.Mac,
		Name:               state.Name,
		Model:              state.Brand,
		Firmware:           state.Firmware,
		HVACAction:         climate.HVACAction(),
		CurrentTemperature: climate.CurrentTemperature(),
		TemperatureUnit:    climate.TemperatureUnit(),
		Available:          climate.Available(),
	}
	if mode, ok := climate.HVACMode(); ok {
		summary.HVACMode = mode
	}
	if target, ok := climate.TargetTemperature(); ok {
		summary.TargetTemperature = &target
	}
	if fan, ok := climate.FanMode(); ok {
		summary.FanMode = fan
	}
	return summary
}
