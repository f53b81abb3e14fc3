package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshp123/dknhome/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dknhome",
	Short: "DKN Cloud NA to Home Assistant MQTT bridge",
	Args:  cobra.NoArgs,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to config.yaml")
	rootCmd.AddCommand(serveCmd, versionCmd, checkConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
