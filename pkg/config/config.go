// Package config loads ndmpd's static configuration: listen address, tape
// backend selection, catalog backend selection, logging and telemetry.
// Viper handles file/env merging, mapstructure decode hooks parse
// duration/bytesize fields, and go-playground/validator runs post-load
// validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/araujobsd/ndmpd/internal/bytesize"
	"github.com/araujobsd/ndmpd/internal/catalog/postgres"
)

// Config is ndmpd's complete static configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (NDMPD_*), for keys the configuration file sets
//  2. Configuration file (YAML)
//  3. Default values
//
// When no configuration file is found, Load returns the defaults and does
// not read the environment.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing and
	// Pyroscope continuous profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server controls the NDMP control-connection listener.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Tape selects and configures the virtual tape backend MOVER reads
	// from and writes to.
	Tape TapeConfig `mapstructure:"tape" yaml:"tape"`

	// Catalog selects and configures the file-history store.
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
}

// ServerConfig controls the NDMP control-connection listener.
type ServerConfig struct {
	// Addr is the TCP address to listen on. NDMP's conventional port is
	// 10000.
	Addr string `mapstructure:"addr" validate:"required" yaml:"addr"`

	// MaxConnections limits concurrent DMA sessions. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"gte=0" yaml:"max_connections"`

	// ShutdownTimeout bounds how long the server waits for in-flight
	// sessions before force-closing their connections.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// TapeConfig selects the virtual tape backend MOVER streams records to.
type TapeConfig struct {
	// Backend selects the tape implementation: "local" (a plain file or
	// block device) or "s3" (one object per tape image, via multipart
	// upload).
	Backend string `mapstructure:"backend" validate:"required,oneof=local s3" yaml:"backend"`

	// RecordSize is the fixed record length MOVER reads/writes, in
	// bytes. NDMP DMAs negotiate this via mover_set_record_size.
	RecordSize int `mapstructure:"record_size" validate:"required,gt=0" yaml:"record_size"`

	// Local configures the "local" backend.
	Local LocalTapeConfig `mapstructure:"local" yaml:"local"`

	// S3 configures the "s3" backend.
	S3 S3TapeConfig `mapstructure:"s3" yaml:"s3"`
}

// LocalTapeConfig configures tape.Device's local file/block-device
// backend.
type LocalTapeConfig struct {
	// Path is the tape image file or block device path, e.g.
	// /dev/nst0 or /var/lib/ndmpd/tapes/%s.img (a single %s is replaced
	// with the DMA-supplied tape device name).
	Path string `mapstructure:"path" yaml:"path"`
}

// S3TapeConfig configures the S3-backed tape.Device.
type S3TapeConfig struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Region string `mapstructure:"region" yaml:"region,omitempty"`
}

// CatalogConfig selects and configures the file-history store backend.
type CatalogConfig struct {
	// Backend selects the catalog implementation: "badger" (embedded,
	// single-node) or "postgres" (networked, HA-capable).
	Backend string `mapstructure:"backend" validate:"required,oneof=badger postgres" yaml:"backend"`

	// BadgerDir is the BadgerDB data directory, used when Backend is
	// "badger".
	BadgerDir string `mapstructure:"badger_dir" yaml:"badger_dir,omitempty"`

	// Postgres configures the connection, used when Backend is
	// "postgres". Validated separately from the struct-tag pass below,
	// since its fields are only required when selected.
	Postgres postgres.Config `mapstructure:"postgres" validate:"-" yaml:"postgres,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a
	// file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use a non-TLS connection to the
	// collector.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML form.
func SaveConfig(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate runs struct-tag validation over cfg, plus the catalog
// backend's own conditional checks (postgres fields are required only
// when selected).
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	if cfg.Catalog.Backend == "postgres" {
		if err := cfg.Catalog.Postgres.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("NDMPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook lets bytesize.ByteSize fields accept human-readable
// sizes ("64Ki", "1MB") as well as plain integers. Tape.RecordSize is a
// plain int and does not go through it.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ndmpd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ndmpd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
