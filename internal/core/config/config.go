package config

import (
	"time"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/storage/postgres"
	redisstore "github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/storage/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig      `yaml:"server"`
	Backend   BackendConfig     `yaml:"backend"`
	Storage   StorageConfig     `yaml:"storage"`
	Redis     redisstore.Config `yaml:"redis"`
	Database  postgres.Config   `yaml:"database"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
	Flush     FlushConfig       `yaml:"flush"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds the gateway HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// BackendConfig holds backend connection settings.
type BackendConfig struct {
	BaseURL     string        `yaml:"base_url"`
	TenantID    string        `yaml:"tenant_id"` // empty = anonymous, no header injected
	RPCTimeout  time.Duration `yaml:"rpc_timeout"`
	RESTTimeout time.Duration `yaml:"rest_timeout"`
}

// StorageConfig selects the durable store for the write queue.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, redis, postgres
}

// TelemetryConfig holds the dedupe windows for the two report channels.
type TelemetryConfig struct {
	DeniedWindow   time.Duration `yaml:"denied_window"`
	AppErrorWindow time.Duration `yaml:"app_error_window"`
}

// FlushConfig controls the opportunistic queue drain.
type FlushConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
