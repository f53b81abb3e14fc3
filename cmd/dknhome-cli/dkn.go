package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joshp123/dknhome/plugins/dkn"
)

func devicesCmd(api *apiClient, args []string, jsonOutput bool) {
	out := outputMode{json: jsonOutput}
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		devices, err := listDevices(api)
		if err != nil {
			fatal("devices list", err)
		}
		if out.json {
			out.printJSON(devices)
			return
		}
		rows := [][]string{{"NAME", "MAC", "MODE", "ACTION", "CURRENT", "TARGET", "FAN", "AVAILABLE"}}
		for _, device := range devices {
			rows = append(rows, []string{
				device.Name,
				device.Mac,
				device.HVACMode,
				device.HVACAction,
				formatTemp(device.CurrentTemperature, device.TemperatureUnit),
				formatTarget(device.TargetTemperature, device.TemperatureUnit),
				device.FanMode,
				strconv.FormatBool(device.Available),
			})
		}
		out.table(rows)
	case "show":
		if len(args) < 2 {
			fatal("devices show", fmt.Errorf("usage: dknhome-cli devices show <name|mac>"))
		}
		device, err := resolveDevice(api, args[1])
		if err != nil {
			fatal("devices show", err)
		}
		if out.json {
			out.printJSON(device)
			return
		}
		fmt.Printf("name: %s\n", device.Name)
		fmt.Printf("mac: %s\n", device.Mac)
		if device.Model != "" {
			fmt.Printf("model: %s\n", device.Model)
		}
		if device.Firmware != "" {
			fmt.Printf("firmware: %s\n", device.Firmware)
		}
		fmt.Printf("mode: %s\n", device.HVACMode)
		fmt.Printf("action: %s\n", device.HVACAction)
		fmt.Printf("current: %s\n", formatTemp(device.CurrentTemperature, device.TemperatureUnit))
		fmt.Printf("target: %s\n", formatTarget(device.TargetTemperature, device.TemperatureUnit))
		if device.FanMode != "" {
			fmt.Printf("fan: %s\n", device.FanMode)
		}
		fmt.Printf("available: %t\n", device.Available)
	default:
		devicesUsage()
		os.Exit(2)
	}
}

func devicesUsage() {
	fmt.Println("dknhome-cli devices <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list")
	fmt.Println("  show <name|mac>")
}

func setCmd(api *apiClient, args []string, jsonOutput bool) {
	out := outputMode{json: jsonOutput}
	if len(args) < 3 {
		setUsage()
		os.Exit(2)
	}

	device, err := resolveDevice(api, args[1])
	if err != nil {
		fatal("set", err)
	}
	devicePath := "/api/v1/dkn/devices/" + url.PathEscape(device.Mac)

	switch args[0] {
	case "mode":
		mode := strings.ToLower(args[2])
		if err := api.postJSON(devicePath+"/mode", map[string]string{"mode": mode}, nil); err != nil {
			fatal("set mode", err)
		}
		if out.json {
			out.printJSON(map[string]any{"device": device.Name, "mode": mode, "status": "ok"})
			return
		}
		fmt.Printf("ok: %s -> %s\n", strings.ToLower(device.Name), mode)
	case "temp", "temperature":
		temp, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			fatal("set temp", fmt.Errorf("invalid temperature %q", args[2]))
		}
		if err := api.postJSON(devicePath+"/temperature", map[string]float64{"temperature": temp}, nil); err != nil {
			fatal("set temp", err)
		}
		if out.json {
			out.printJSON(map[string]any{"device": device.Name, "temperature": temp, "status": "ok"})
			return
		}
		fmt.Printf("ok: %s -> %.1f°%s\n", strings.ToLower(device.Name), temp, device.TemperatureUnit)
	case "fan":
		fan := strings.ToLower(args[2])
		if err := api.postJSON(devicePath+"/fan", map[string]string{"fan_mode": fan}, nil); err != nil {
			fatal("set fan", err)
		}
		if out.json {
			out.printJSON(map[string]any{"device": device.Name, "fan_mode": fan, "status": "ok"})
			return
		}
		fmt.Printf("ok: %s -> fan %s\n", strings.ToLower(device.Name), fan)
	default:
		setUsage()
		os.Exit(2)
	}
}

func setUsage() {
	fmt.Println("dknhome-cli set <command> <name|mac> <value>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  mode <name|mac> <off|heat_cool|cool|heat|fan_only|dry>")
	fmt.Println("  temp <name|mac> <degrees>")
	fmt.Println("  fan <name|mac> <auto|low|medium|high>")
}

func listDevices(api *apiClient) ([]dkn.DeviceSummary, error) {
	var resp struct {
		Devices []dkn.DeviceSummary `json:"devices"`
	}
	if err := api.getJSON("/api/v1/dkn/devices", &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// resolveDevice accepts a MAC verbatim or matches on the unit name.
func resolveDevice(api *apiClient, input string) (dkn.DeviceSummary, error) {
	devices, err := listDevices(api)
	if err != nil {
		return dkn.DeviceSummary{}, err
	}

	for _, device := range devices {
		if strings.EqualFold(device.Mac, input) {
			return device, nil
		}
	}

	options := make(map[string]string, len(devices))
	for _, device := range devices {
		options[device.Name] = device.Mac
	}
	mac, err := resolveNamedID("device", input, options)
	if err != nil {
		return dkn.DeviceSummary{}, err
	}
	for _, device := range devices {
		if device.Mac == mac {
			return device, nil
		}
	}
	return dkn.DeviceSummary{}, fmt.Errorf("device %q not found", input)
}

func formatTemp(value float64, unit string) string {
	return fmt.Sprintf("%.1f°%s", value, unit)
}

func formatTarget(value *float64, unit string) string {
	if value == nil {
		return "-"
	}
	return formatTemp(*value, unit)
}
