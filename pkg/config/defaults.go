package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills in zero-valued fields with sensible defaults after
// a config file (or none) has been loaded.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
	applyTapeDefaults(&cfg.Tape)
	applyCatalogDefaults(&cfg.Catalog)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":10000"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyTapeDefaults(cfg *TapeConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "local"
	}
	if cfg.RecordSize == 0 {
		cfg.RecordSize = 64 * 1024 // NDMP's conventional default tape record size
	}
	if cfg.Backend == "local" && cfg.Local.Path == "" {
		cfg.Local.Path = "/var/lib/ndmpd/tapes/%s.img"
	}
	if cfg.Backend == "s3" && cfg.S3.Prefix == "" {
		cfg.S3.Prefix = "tapes/"
	}
}

func applyCatalogDefaults(cfg *CatalogConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "badger"
	}
	if cfg.Backend == "badger" && cfg.BadgerDir == "" {
		cfg.BadgerDir = "/var/lib/ndmpd/catalog"
	}
	cfg.Postgres.ApplyDefaults()
}

// GetDefaultConfig returns a Config with every field defaulted, for a
// freshly installed server with no config file present.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
