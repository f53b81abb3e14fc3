package dkn

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownMode    = errors.New("unknown hvac mode")
	ErrUnknownFanMode = errors.New("unknown fan mode")
	ErrNoSetpoint     = errors.New("current mode has no setpoint")
)

// Climate adapts a device to thermostat semantics: mode, action,
// temperatures, and fan speed in Home Assistant vocabulary.
type Climate struct {
	device *Device
}

func NewClimate(device *Device) *Climate {
	return &Climate{device: device}
}

func (c *Climate) Device() *Device {
	return c.device
}

// HVACMode returns the current mode. Not ok means the unit reports a
// mode code outside the known table while powered on.
func (c *Climate) HVACMode() (string, bool) {
	state := c.device.State()
	return HVACMode(state.Mode, state.Power)
}

// HVACAction returns what the unit is actually doing right now.
func (c *Climate) HVACAction() string {
	state := c.device.State()
	return HVACAction(state.RealMode, state.Power)
}

// CurrentTemperature returns the measured room temperature.
func (c *Climate) CurrentTemperature() float64 {
	return c.device.State().WorkTemp
}

// TargetTemperature returns the setpoint for the active mode. Fan and
// dry modes hold no setpoint, nor does a powered off unit.
func (c *Climate) TargetTemperature() (float64, bool) {
	state := c.device.State()
	mode, ok := HVACMode(state.Mode, state.Power)
	if !ok {
		return 0, false
	}
	switch mode {
	case ModeCool:
		return state.SetpointAirCool, true
	case ModeHeat:
		return state.SetpointAirHeat, true
	case ModeHeatCool:
		return state.SetpointAirAuto, true
	default:
		return 0, false
	}
}

// FanMode returns the current fan speed name.
func (c *Climate) FanMode() (string, bool) {
	return FanMode(c.device.State().SpeedState)
}

// Available reports whether the unit is reachable and ready to accept
// commands.
func (c *Climate) Available() bool {
	state := c.device.State()
	return state.Connected && state.MachineReady
}

// TemperatureUnit returns "C" or "F" as configured on the unit.
func (c *Climate) TemperatureUnit() string {
	if c.device.State().Units == 1 {
		return "F"
	}
	return "C"
}

// TemperatureLimits returns the widest setpoint range across the heat
// and cool limits. Not ok when the unit reports no limits at all.
func (c *Climate) TemperatureLimits() (low, high float64, ok bool) {
	state := c.device.State()

	mins := make([]float64, 0, 2)
	maxs := make([]float64, 0, 2)
	if state.MinLimitCold != 0 || state.MaxLimitCold != 0 {
		mins = append(mins, state.MinLimitCold)
		maxs = append(maxs, state.MaxLimitCold)
	}
	if state.MinLimitHeat != 0 || state.MaxLimitHeat != 0 {
		mins = append(mins, state.MinLimitHeat)
		maxs = append(maxs, state.MaxLimitHeat)
	}
	if len(mins) == 0 {
		return 0, 0, false
	}

	low, high = mins[0], maxs[0]
	for _, v := range mins[1:] {
		if v < low {
			low = v
		}
	}
	for _, v := range maxs[1:] {
		if v > high {
			high = v
		}
	}
	return low, high, true
}

// SetHVACMode changes the operating mode. Any mode except "off" powers
// the unit on; "off" only cuts power and leaves the mode untouched, so
// the unit resumes where it left off. No events are sent when the
// requested power state already holds and no mode change is needed.
func (c *Climate) SetHVACMode(ctx context.Context, mode string) error {
	powerOn := mode != ModeOff

	if powerOn {
		code, ok := VendorModeCode(mode)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
		}
		if err := c.device.SetModeCode(ctx, code); err != nil {
			return err
		}
	}

	if powerOn != c.device.State().Power {
		return c.device.SetPower(ctx, powerOn)
	}
	return nil
}

// SetFanMode changes the fan speed.
func (c *Climate) SetFanMode(ctx context.Context, mode string) error {
	code, ok := VendorFanCode(mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFanMode, mode)
	}
	return c.device.SetFanCode(ctx, code)
}

// SetTemperature updates the setpoint belonging to the active mode.
func (c *Climate) SetTemperature(ctx context.Context, value float64) error {
	mode, ok := c.HVACMode()
	if !ok {
		return fmt.Errorf("%w: unit reports unknown mode", ErrNoSetpoint)
	}
	switch mode {
	case ModeCool:
		return c.device.SetSetpoint(ctx, "setpoint_air_cool", value)
	case ModeHeat:
		return c.device.SetSetpoint(ctx, "setpoint_air_heat", value)
	case ModeHeatCool:
		return c.device.SetSetpoint(ctx, "setpoint_air_auto", value)
	default:
		return fmt.Errorf("%w: %s", ErrNoSetpoint, mode)
	}
}
