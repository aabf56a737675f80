package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"colony-counter/config"
	app "colony-counter/internal/application"
	"colony-counter/internal/domain/port"
	"colony-counter/internal/infrastructure/cache"
	"colony-counter/internal/infrastructure/events"
	"colony-counter/internal/infrastructure/storage"
	"colony-counter/internal/infrastructure/vision"
)

type Container struct {
	Config *config.Config
	Logger *zap.Logger

	OperatorService *app.OperatorService
	CountingService *app.CountingService
	BatchService    *app.BatchService

	// Hub nil, если события отключены
	Hub *events.Hub

	closers []func() error
}

// New собирает хранилище, детектор, кэш и сервисы приложения по конфигурации
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger}

	store, err := c.newStore()
	if err != nil {
		c.Close()
		return nil, err
	}

	detector, err := NewDetector(cfg.Detector)
	if err != nil {
		c.Close()
		return nil, err
	}
	codec := vision.Codec{}

	var detections port.DetectionCache = cache.NoopCache{}
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedisCache(cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, logger)
		if err := redisCache.Ping(context.Background()); err != nil {
			logger.Warn("redis is unreachable, cache lookups will miss", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		c.closers = append(c.closers, redisCache.Close)
		detections = redisCache
	}

	var publisher port.EventPublisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		c.Hub = events.NewHub(logger)
		publisher = c.Hub
	}

	c.OperatorService = app.NewOperatorService(storage.NewMemoryOperatorRepository())
	c.CountingService = app.NewCountingService(store, detector, codec, detections, publisher, logger)
	c.BatchService = app.NewBatchService(detector, codec, cfg.Detector.Workers, logger)

	return c, nil
}

// NewDetector выбирает реализацию детектора
func NewDetector(cfg config.DetectorConfig) (port.ColonyDetector, error) {
	overlay := vision.DefaultOverlayColor
	if cfg.OverlayColor != "" {
		parsed, err := vision.ParseOverlayColor(cfg.OverlayColor)
		if err != nil {
			return nil, err
		}
		overlay = parsed
	}

	switch cfg.Backend {
	case config.BackendGoCV:
		return vision.NewGoCVDetector(overlay), nil
	case config.BackendNative, "":
		return vision.NewNativeDetector(overlay), nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

func (c *Container) newStore() (*storage.Store, error) {
	blobs, err := storage.NewFileBlobStore(c.Config.Storage.DataDir, c.Logger)
	if err != nil {
		return nil, err
	}

	switch c.Config.Storage.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(c.Config.Storage.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		table, err := storage.NewSQLiteRecordTable(c.Config.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, table.Close)
		c.Logger.Info("using sqlite record table", zap.String("path", c.Config.Storage.SQLitePath))
		return storage.NewStore(table, blobs), nil

	default:
		// записи живут только в памяти, файлы прошлого запуска не нужны
		blobs.Cleanup()
		return storage.NewStore(storage.NewMemoryRecordTable(), blobs), nil
	}
}

// Close освобождает соединения в обратном порядке
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
