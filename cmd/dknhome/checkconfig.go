package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joshp123/dknhome/internal/config"
)

var checkConfigCmd = &cobra.Command{
	Use:   "checkconfig",
	Short: "Validate the config file and report enabled plugins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		enabled := make([]string, 0)
		for id := range config.EnabledPlugins(cfg) {
			enabled = append(enabled, id)
		}
		sort.Strings(enabled)

		fmt.Printf("%s: OK\n", configPath)
		fmt.Printf("http_addr: %s\n", cfg.HTTPAddr)
		fmt.Printf("mqtt broker: %s\n", cfg.MQTT.BrokerURL)
		if len(enabled) == 0 {
			fmt.Println("plugins: none enabled")
			return nil
		}
		for _, id := range enabled {
			fmt.Printf("plugins: %s enabled\n", id)
		}
		return nil
	},
}
