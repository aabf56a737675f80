package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"colony-counter/config"
	"colony-counter/internal/domain/entity"
	"colony-counter/internal/infrastructure/vision"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Storage: config.StorageConfig{
			Driver:     config.DriverMemory,
			DataDir:    filepath.Join(dir, "images"),
			SQLitePath: filepath.Join(dir, "db", "colonies.db"),
		},
		Detector: config.DetectorConfig{
			Backend:      config.BackendNative,
			OverlayColor: "#ff0000",
			Workers:      2,
			Parameters:   entity.DefaultParameters(),
		},
		Events: config.EventsConfig{Enabled: true},
	}
}

func TestNew_MemoryCleansLeftovers(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Storage.DataDir, 0o755))
	leftover := filepath.Join(cfg.Storage.DataDir, "old.png")
	require.NoError(t, os.WriteFile(leftover, []byte("x"), 0o644))

	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.CountingService)
	require.NotNil(t, c.BatchService)
	require.NotNil(t, c.OperatorService)
	require.NotNil(t, c.Hub)

	_, err = os.Stat(leftover)
	require.True(t, os.IsNotExist(err))
}

func TestNew_SQLiteKeepsFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Events.Enabled = false
	require.NoError(t, os.MkdirAll(cfg.Storage.DataDir, 0o755))
	kept := filepath.Join(cfg.Storage.DataDir, "kept.png")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

	c, err := New(cfg, nil)
	require.NoError(t, err)
	require.Nil(t, c.Hub)
	require.NoError(t, c.Close())

	_, err = os.Stat(kept)
	require.NoError(t, err)
	_, err = os.Stat(cfg.Storage.SQLitePath)
	require.NoError(t, err)
}

func TestNewDetector(t *testing.T) {
	d, err := NewDetector(config.DetectorConfig{Backend: config.BackendNative})
	require.NoError(t, err)
	require.IsType(t, &vision.NativeDetector{}, d)

	native := d.(*vision.NativeDetector)
	require.Equal(t, vision.DefaultOverlayColor, native.OverlayColor)

	_, err = NewDetector(config.DetectorConfig{Backend: "tensorflow"})
	require.Error(t, err)

	_, err = NewDetector(config.DetectorConfig{Backend: config.BackendNative, OverlayColor: "nope"})
	require.Error(t, err)
}
