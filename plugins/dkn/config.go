package dkn

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshp123/dknhome/internal/config"
)

const defaultBaseURL = "https://dkncloudna.com"

// Config defines runtime configuration for the DKN client.
type Config struct {
	BaseURL      string
	Email        string
	Password     string
	PollInterval time.Duration
}

// FromAppConfig resolves the client config from the dkn config
// section, reading the password file when one is set.
func FromAppConfig(section *config.DKNConfig) (Config, error) {
	if section == nil {
		return Config{}, fmt.Errorf("dkn config is required")
	}

	password, err := config.ResolvePassword(section)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BaseURL:      strings.TrimSpace(section.BaseURL),
		Email:        strings.TrimSpace(section.Email),
		Password:     password,
		PollInterval: section.PollInterval,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.DefaultPollInterval
	}
	if cfg.Email == "" {
		return Config{}, fmt.Errorf("dkn.email is required")
	}

	return cfg, nil
}
