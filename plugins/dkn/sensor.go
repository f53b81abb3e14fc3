package dkn

import "strconv"

// SensorKind identifies a diagnostic sensor exposed per unit.
type SensorKind string

const (
	SensorRSSI SensorKind = "rssi"
	SensorSSID SensorKind = "ssid"
)

// SensorMeta carries the discovery attributes for a sensor.
type SensorMeta struct {
	Name           string
	Unit           string
	DeviceClass    string
	StateClass     string
	Icon           string
	EntityCategory string
}

// Sensor reads one diagnostic value from a device.
type Sensor struct {
	device *Device
	kind   SensorKind
}

// Sensors returns the diagnostic sensors for a unit.
func Sensors(device *Device) []*Sensor {
	return []*Sensor{
		{device: device, kind: SensorRSSI},
		{device: device, kind: SensorSSID},
	}
}

func (s *Sensor) Kind() SensorKind {
	return s.kind
}

// Value renders the current reading as a state payload.
func (s *Sensor) Value() string {
	state := s.device.State()
	switch s.kind {
	case SensorRSSI:
		return strconv.Itoa(state.RSSI)
	case SensorSSID:
		return state.SSID
	default:
		return ""
	}
}

func (s *Sensor) Meta() SensorMeta {
	switch s.kind {
	case SensorRSSI:
		return SensorMeta{
			Name:           "WiFi signal",
			Unit:           "dBm",
			DeviceClass:    "signal_strength",
			StateClass:     "measurement",
			Icon:           "mdi:access-point",
			EntityCategory: "diagnostic",
		}
	case SensorSSID:
		return SensorMeta{
			Name:           "WiFi SSID",
			Icon:           "mdi:access-point-network",
			EntityCategory: "diagnostic",
		}
	default:
		return SensorMeta{}
	}
}
