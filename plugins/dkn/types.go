package dkn

import "encoding/json"

// loginResponse is the body returned by the login endpoint.
type loginResponse struct {
	Token string `json:"token"`
}

// installation groups the units registered to one account site.
type installation struct {
	ID      string       `json:"_id"`
	Name    string       `json:"name"`
	Devices []DeviceData `json:"devices"`
}

// DeviceData is the wire state of one unit. The same shape arrives
// from the installations endpoint and, field by field, in socket
// update frames.
type DeviceData struct {
	Mac      string `json:"mac"`
	Name     string `json:"name"`
	Firmware string `json:"firmware"`
	Brand    string `json:"brand"`

	Power    bool `json:"power"`
	Mode     int  `json:"mode"`
	RealMode int  `json:"real_mode"`

	WorkTemp         float64 `json:"work_temp"`
	SetpointAirCool  float64 `json:"setpoint_air_cool"`
	SetpointAirHeat  float64 `json:"setpoint_air_heat"`
	SetpointAirAuto  float64 `json:"setpoint_air_auto"`
	SpeedState       int     `json:"speed_state"`
	Units            int     `json:"units"`
	MinLimitCold     float64 `json:"min_limit_cold"`
	MaxLimitCold     float64 `json:"max_limit_cold"`
	MinLimitHeat     float64 `json:"min_limit_heat"`
	MaxLimitHeat     float64 `json:"max_limit_heat"`

	Connected    bool `json:"isConnected"`
	MachineReady bool `json:"machineready"`

	RSSI int    `json:"stat_rssi"`
	SSID string `json:"stat_ssid"`
}

// deviceEvent is one frame from the push socket.
type deviceEvent struct {
	Event string          `json:"event"`
	Mac   string          `json:"mac"`
	Data  json.RawMessage `json:"data"`
}
