package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SchemaVersion          = 1
	DefaultPath            = "/etc/dknhome/config.yaml"
	DefaultHTTPAddr        = "0.0.0.0:8080"
	DefaultDashboardDir    = "/var/lib/dknhome/dashboards"
	DefaultBrokerURL       = "tcp://127.0.0.1:1883"
	DefaultTopicPrefix     = "dknhome"
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultBaseURL         = "https://dkncloudna.com"
	DefaultPollInterval    = 5 * time.Minute
	EnvPrefix              = "DKNHOME"
)

// Config is the daemon configuration tree.
type Config struct {
	SchemaVersion int    `mapstructure:"schema_version"`
	HTTPAddr      string `mapstructure:"http_addr"`
	DashboardDir  string `mapstructure:"dashboard_dir"`

	Log  LogConfig  `mapstructure:"log"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
	DKN  *DKNConfig `mapstructure:"dkn"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MQTTConfig struct {
	BrokerURL       string `mapstructure:"broker_url"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	TopicPrefix     string `mapstructure:"topic_prefix"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
}

// DKNConfig configures the DKN Cloud NA account. Presence of the
// section enables the plugin.
type DKNConfig struct {
	Email        string        `mapstructure:"email"`
	Password     string        `mapstructure:"password"`
	PasswordFile string        `mapstructure:"password_file"`
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Load parses the YAML config file, applies env overrides and defaults,
// and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", DefaultHTTPAddr)
	v.SetDefault("dashboard_dir", DefaultDashboardDir)
	v.SetDefault("log.level", "info")
	v.SetDefault("mqtt.broker_url", DefaultBrokerURL)
	v.SetDefault("mqtt.topic_prefix", DefaultTopicPrefix)
	v.SetDefault("mqtt.discovery_prefix", DefaultDiscoveryPrefix)

	// Credentials usually arrive through the environment. Keys absent
	// from the file must be bound explicitly for Unmarshal to see them.
	for _, key := range []string{
		"dkn.email", "dkn.password", "dkn.password_file",
		"dkn.base_url", "dkn.poll_interval",
		"mqtt.username", "mqtt.password",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DKN == nil {
		return
	}
	if cfg.DKN.BaseURL == "" {
		cfg.DKN.BaseURL = DefaultBaseURL
	}
	if cfg.DKN.PollInterval == 0 {
		cfg.DKN.PollInterval = DefaultPollInterval
	}
}

// Validate enforces required invariants beyond YAML typing.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.SchemaVersion != SchemaVersion {
		return fmt.Errorf("schema_version must be %d", SchemaVersion)
	}
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if cfg.DashboardDir == "" {
		return fmt.Errorf("dashboard_dir is required")
	}

	if cfg.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt.broker_url is required")
	}
	if cfg.MQTT.TopicPrefix == "" {
		return fmt.Errorf("mqtt.topic_prefix is required")
	}
	if cfg.MQTT.DiscoveryPrefix == "" {
		return fmt.Errorf("mqtt.discovery_prefix is required")
	}

	if cfg.DKN != nil {
		if cfg.DKN.Email == "" {
			return fmt.Errorf("dkn.email is required")
		}
		if cfg.DKN.Password == "" && cfg.DKN.PasswordFile == "" {
			return fmt.Errorf("dkn.password or dkn.password_file is required")
		}
		if cfg.DKN.PollInterval <= 0 {
			return fmt.Errorf("dkn.poll_interval must be positive")
		}
	}

	return nil
}

// EnabledPlugins maps enabled plugin IDs based on config presence.
func EnabledPlugins(cfg *Config) map[string]bool {
	enabled := make(map[string]bool)
	if cfg == nil {
		return enabled
	}
	if cfg.DKN != nil {
		enabled["dkn"] = true
	}
	return enabled
}

// ResolvePassword returns the account password, reading password_file
// when the config keeps the secret out of line.
func ResolvePassword(cfg *DKNConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("dkn config is required")
	}
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	if cfg.PasswordFile == "" {
		return "", fmt.Errorf("dkn.password or dkn.password_file is required")
	}
	data, err := os.ReadFile(cfg.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}
	password := strings.TrimSpace(string(data))
	if password == "" {
		return "", fmt.Errorf("password file %s is empty", cfg.PasswordFile)
	}
	return password, nil
}
