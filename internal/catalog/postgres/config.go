// Package postgres implements catalog.Store over PostgreSQL via GORM,
// with schema migrations applied through golang-migrate.
package postgres

import (
	"fmt"
	"time"
)

// Config holds PostgreSQL connection parameters for the catalog store.
type Config struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Database string `mapstructure:"database" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	SSLMode  string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`

	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// ApplyDefaults fills unset fields with conservative defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 3
	}
	if c.ConnTimeout == 0 {
		c.ConnTimeout = 5 * time.Second
	}
}

// Validate checks the configuration is complete.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("catalog/postgres: host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("catalog/postgres: database is required")
	}
	if c.User == "" {
		return fmt.Errorf("catalog/postgres: user is required")
	}
	return nil
}

// DSN builds the libpq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode, int(c.ConnTimeout.Seconds()),
	)
}
