package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"colony-counter/internal/domain/entity"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, DriverMemory, cfg.Storage.Driver)
	require.False(t, cfg.Redis.Enabled)
	require.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	require.Equal(t, BackendNative, cfg.Detector.Backend)
	require.Equal(t, 1, cfg.Detector.Workers)
	require.Equal(t, entity.DefaultParameters(), cfg.Detector.Parameters)
	require.Equal(t, entity.SupportedExtensions, cfg.Upload.AllowedExt)
	require.True(t, cfg.Events.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: ":9090"
  read_timeout: 5s
redis:
  enabled: true
  addr: "cache:6379"
detector:
  workers: 4
  parameters:
    min_area: 100
    max_area: 900
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("COLONY_SERVER_MODE", "release")
	t.Setenv("COLONY_DETECTOR_WORKERS", "8")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("TELEGRAM_TOKEN", "token-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Server.Port)
	require.Equal(t, "release", cfg.Server.Mode)
	require.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "cache:6379", cfg.Redis.Addr)
	require.Equal(t, 8, cfg.Detector.Workers)
	require.Equal(t, DriverSQLite, cfg.Storage.Driver)
	require.Equal(t, "token-from-env", cfg.Telegram.Token)

	require.Equal(t, 100.0, cfg.Detector.Parameters.MinArea)
	require.Equal(t, 900.0, cfg.Detector.Parameters.MaxArea)
	require.Equal(t, entity.DefaultParameters().GlobalThresh, cfg.Detector.Parameters.GlobalThresh)
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	t.Setenv("COLONY_STORAGE_DRIVER", "postgres")
	_, err := Load("")
	require.ErrorContains(t, err, "storage driver")
}

func TestLoad_RejectsInvalidParameters(t *testing.T) {
	t.Setenv("COLONY_DETECTOR_PARAMETERS_MAX_AREA", "10")
	_, err := Load("")
	require.ErrorIs(t, err, entity.ErrInvalidParameters)
}
