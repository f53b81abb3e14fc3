package main

import (
	"fmt"
	"os"

	"github.com/joshp123/dknhome/internal/core"
)

func pluginsCmd(api *apiClient, args []string, jsonOutput bool) {
	out := outputMode{json: jsonOutput}
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		var resp struct {
			Plugins []core.PluginSummary `json:"plugins"`
		}
		if err := api.getJSON("/api/v1/plugins", &resp); err != nil {
			fatal("plugins list", err)
		}
		if out.json {
			out.printJSON(resp.Plugins)
			return
		}
		rows := [][]string{{"ID", "NAME", "VERSION", "STATUS"}}
		for _, plugin := range resp.Plugins {
			rows = append(rows, []string{plugin.PluginID, plugin.DisplayName, plugin.Version, plugin.Status})
		}
		out.table(rows)
	case "describe":
		if len(args) < 2 {
			fatal("plugins describe", fmt.Errorf("missing plugin id"))
		}
		var resp struct {
			Plugin core.PluginDescriptor `json:"plugin"`
		}
		if err := api.getJSON("/api/v1/plugins/"+args[1], &resp); err != nil {
			fatal("plugins describe", err)
		}
		if out.json {
			out.printJSON(resp.Plugin)
			return
		}
		plugin := resp.Plugin
		fmt.Printf("id: %s\n", plugin.PluginID)
		fmt.Printf("name: %s\n", plugin.DisplayName)
		fmt.Printf("version: %s\n", plugin.Version)
		fmt.Printf("status: %s\n", plugin.Status)
		if plugin.HealthMessage != "" {
			fmt.Printf("health: %s\n", plugin.HealthMessage)
		}
		fmt.Println("services:")
		for _, svc := range plugin.Services {
			fmt.Printf("  - %s\n", svc)
		}
		fmt.Println("dashboards:")
		for _, dash := range plugin.Dashboards {
			fmt.Printf("  - %s (%s)\n", dash.Name, dash.Path)
		}
	default:
		pluginsUsage()
		os.Exit(2)
	}
}

func pluginsUsage() {
	fmt.Println("dknhome-cli plugins <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list")
	fmt.Println("  describe <plugin_id>")
}
