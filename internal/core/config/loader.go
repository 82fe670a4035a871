package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.base_url is required")
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8087
	}
	if cfg.Backend.RPCTimeout == 0 {
		cfg.Backend.RPCTimeout = 30 * time.Second
	}
	if cfg.Backend.RESTTimeout == 0 {
		cfg.Backend.RESTTimeout = 10 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Telemetry.DeniedWindow == 0 {
		cfg.Telemetry.DeniedWindow = 10 * time.Second
	}
	if cfg.Telemetry.AppErrorWindow == 0 {
		cfg.Telemetry.AppErrorWindow = 10 * time.Second
	}
	if cfg.Flush.Interval == 0 {
		cfg.Flush.Interval = 30 * time.Second
	}

	return &cfg, nil
}
