package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshp123/dknhome/internal/config"
)

func main() {
	jsonOutput := false
	args := make([]string, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		if arg == "--json" {
			jsonOutput = true
			continue
		}
		args = append(args, arg)
	}

	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	api := newAPIClient(resolveBaseURL())

	switch args[0] {
	case "plugins":
		pluginsCmd(api, args[1:], jsonOutput)
	case "devices":
		devicesCmd(api, args[1:], jsonOutput)
	case "set":
		setCmd(api, args[1:], jsonOutput)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("dknhome-cli [--json] <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  plugins list")
	fmt.Println("  plugins describe <plugin_id>")
	fmt.Println("  devices list")
	fmt.Println("  devices show <name|mac>")
	fmt.Println("  set mode <name|mac> <off|heat_cool|cool|heat|fan_only|dry>")
	fmt.Println("  set temp <name|mac> <degrees>")
	fmt.Println("  set fan <name|mac> <auto|low|medium|high>")
}

func resolveBaseURL() string {
	if value := os.Getenv("DKNHOME_HTTP_ADDR"); value != "" {
		return normalizeBaseURL(value)
	}
	for _, path := range configSearchPaths() {
		cfg, err := config.Load(path)
		if err != nil || cfg.HTTPAddr == "" {
			continue
		}
		return normalizeBaseURL(cfg.HTTPAddr)
	}
	return "http://127.0.0.1:8080"
}

func configSearchPaths() []string {
	paths := []string{config.DefaultPath}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "dknhome", "config.yaml"))
	}
	return paths
}

func normalizeBaseURL(addr string) string {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	// The daemon binds 0.0.0.0, which is not a dialable host.
	return strings.Replace(addr, "0.0.0.0", "127.0.0.1", 1)
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	os.Exit(1)
}
