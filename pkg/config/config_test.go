package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, ":10000", cfg.Server.Addr)
	assert.Equal(t, "local", cfg.Tape.Backend)
	assert.Equal(t, 64*1024, cfg.Tape.RecordSize)
	assert.Equal(t, "badger", cfg.Catalog.Backend)

	require.NoError(t, Validate(cfg))
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Addr = ":10001"
	cfg.Tape.Backend = "s3"
	cfg.Tape.S3.Bucket = "ndmp-tapes"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":10001", loaded.Server.Addr)
	assert.Equal(t, "s3", loaded.Tape.Backend)
	assert.Equal(t, "ndmp-tapes", loaded.Tape.S3.Bucket)
}

func TestValidateRejectsUnknownTapeBackend(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Tape.Backend = "8mm"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.ShutdownTimeout = 0
	assert.Error(t, Validate(cfg))
}
