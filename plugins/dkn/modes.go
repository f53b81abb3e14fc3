package dkn

// HVAC modes and actions use the Home Assistant climate vocabulary so
// payloads can be published to MQTT state topics unchanged.
const (
	ModeOff      = "off"
	ModeHeatCool = "heat_cool"
	ModeCool     = "cool"
	ModeHeat     = "heat"
	ModeFanOnly  = "fan_only"
	ModeDry      = "dry"

	ActionOff     = "off"
	ActionIdle    = "idle"
	ActionHeating = "heating"
	ActionCooling = "cooling"
	ActionDrying  = "drying"
	ActionFan     = "fan"

	FanAuto   = "auto"
	FanLow    = "low"
	FanMedium = "medium"
	FanHigh   = "high"
)

// Vendor mode codes as reported in the mode and real_mode fields.
const (
	vendorModeAuto = 1
	vendorModeCool = 2
	vendorModeHeat = 3
	vendorModeFan  = 4
	vendorModeDry  = 5
)

var vendorModeToHVAC = map[int]string{
	vendorModeAuto: ModeHeatCool,
	vendorModeCool: ModeCool,
	vendorModeHeat: ModeHeat,
	vendorModeFan:  ModeFanOnly,
	vendorModeDry:  ModeDry,
}

var hvacToVendorMode = map[string]int{
	ModeHeatCool: vendorModeAuto,
	ModeCool:     vendorModeCool,
	ModeHeat:     vendorModeHeat,
	ModeFanOnly:  vendorModeFan,
	ModeDry:      vendorModeDry,
}

var vendorFanToHVAC = map[int]string{
	0: FanAuto,
	2: FanLow,
	4: FanMedium,
	6: FanHigh,
}

var hvacToVendorFan = map[string]int{
	FanAuto:   0,
	FanLow:    2,
	FanMedium: 4,
	FanHigh:   6,
}

// HVACMode maps a vendor mode code to the HVAC mode name. A powered
// off unit is always "off" regardless of the reported code.
func HVACMode(code int, powerOn bool) (string, bool) {
	if !powerOn {
		return ModeOff, true
	}
	mode, ok := vendorModeToHVAC[code]
	return mode, ok
}

// VendorModeCode maps an HVAC mode name back to the vendor code. "off"
// has no code; power is a separate command.
func VendorModeCode(mode string) (int, bool) {
	code, ok := hvacToVendorMode[mode]
	return code, ok
}

// FanMode maps a vendor fan speed code to the fan mode name.
func FanMode(code int) (string, bool) {
	mode, ok := vendorFanToHVAC[code]
	return mode, ok
}

// VendorFanCode maps a fan mode name back to the vendor speed code.
func VendorFanCode(mode string) (int, bool) {
	code, ok := hvacToVendorFan[mode]
	return code, ok
}

// HVACAction derives what the unit is doing right now from real_mode.
// Units report real_mode 1 while deciding between heating and cooling,
// which reads as idle.
func HVACAction(realMode int, powerOn bool) string {
	if !powerOn {
		return ActionOff
	}
	switch realMode {
	case vendorModeCool:
		return ActionCooling
	case vendorModeHeat:
		return ActionHeating
	case vendorModeFan:
		return ActionFan
	case vendorModeDry:
		return ActionDrying
	default:
		return ActionIdle
	}
}

// HVACModes lists the selectable modes in display order.
func HVACModes() []string {
	return []string{ModeOff, ModeHeatCool, ModeCool, ModeHeat, ModeFanOnly, ModeDry}
}

// FanModes lists the selectable fan speeds in display order.
func FanModes() []string {
	return []string{FanAuto, FanLow, FanMedium, FanHigh}
}
