package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

const keyPrefix = "colonies:"

// Options параметры подключения к redis
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache кэш детекций в redis. Ошибки redis логируются
// и превращаются в промах, запрос из-за них не падает.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache создаёт клиента redis
func NewRedisCache(opts Options, logger *zap.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisCache{
		client: client,
		ttl:    opts.TTL,
		logger: logger,
	}
}

// Ping проверяет соединение
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get возвращает nil, nil при промахе или недоступном redis
func (c *RedisCache) Get(ctx context.Context, imageData []byte, params entity.Parameters) (*port.CachedDetection, error) {
	key := Key(imageData, params)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("detection cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, nil
	}

	var cached port.CachedDetection
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("failed to unmarshal cached detection", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return &cached, nil
}

// Set сохраняет результат с TTL из конфигурации
func (c *RedisCache) Set(ctx context.Context, imageData []byte, params entity.Parameters, value *port.CachedDetection) error {
	key := Key(imageData, params)
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("detection cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Close закрывает соединение
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache кэш, который ничего не хранит
type NoopCache struct{}

// Get всегда промах
func (NoopCache) Get(context.Context, []byte, entity.Parameters) (*port.CachedDetection, error) {
	return nil, nil
}

// Set ничего не делает
func (NoopCache) Set(context.Context, []byte, entity.Parameters, *port.CachedDetection) error {
	return nil
}

// Key строит ключ по содержимому изображения и набору параметров
func Key(data []byte, params entity.Parameters) string {
	imageSum := sha256.Sum256(data)

	h := sha256.New()
	for _, f := range params.Fields() {
		h.Write([]byte(f.Name))
		h.Write([]byte{'='})
		h.Write([]byte(f.Value))
		h.Write([]byte{';'})
	}

	return keyPrefix + hex.EncodeToString(imageSum[:]) + ":" + hex.EncodeToString(h.Sum(nil))
}

var (
	_ port.DetectionCache = (*RedisCache)(nil)
	_ port.DetectionCache = NoopCache{}
)
