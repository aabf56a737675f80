package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"colony-counter/internal/domain/entity"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Detector DetectorConfig `mapstructure:"detector"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Events   EventsConfig   `mapstructure:"events"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	Driver     string `mapstructure:"driver"` // memory | sqlite
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize    int64    `mapstructure:"max_size"`
	AllowedExt []string `mapstructure:"allowed_ext"`
}

type DetectorConfig struct {
	Backend      string            `mapstructure:"backend"` // native | gocv
	OverlayColor string            `mapstructure:"overlay_color"`
	Workers      int               `mapstructure:"workers"`
	Parameters   entity.Parameters `mapstructure:"parameters"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type EventsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"

	BackendNative = "native"
	BackendGoCV   = "gocv"
)

// Load читает .env, затем необязательный YAML-файл и переменные окружения
// с префиксом COLONY_ (server.port -> COLONY_SERVER_PORT)
func Load(configPath string) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COLONY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("storage.driver", "COLONY_STORAGE_DRIVER", "STORE_DRIVER")
	_ = v.BindEnv("telegram.token", "COLONY_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Detector.Backend {
	case BackendNative, BackendGoCV:
	default:
		return fmt.Errorf("unknown detector backend %q", c.Detector.Backend)
	}
	if _, err := entity.NewParameters(c.Detector.Parameters); err != nil {
		return fmt.Errorf("detector parameters: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.data_dir", "./data/images")
	v.SetDefault("storage.sqlite_path", "./data/colonies.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 32*1024*1024)
	v.SetDefault("upload.allowed_ext", entity.SupportedExtensions)

	v.SetDefault("detector.backend", BackendNative)
	v.SetDefault("detector.overlay_color", "#00ff00")
	v.SetDefault("detector.workers", 1)
	p := entity.DefaultParameters()
	for _, kv := range []struct {
		key   string
		value any
	}{
		{"global_thresh", p.GlobalThresh},
		{"adaptive_block_size", p.AdaptiveBlockSize},
		{"adaptive_c", p.AdaptiveC},
		{"morph_kernel_size", p.MorphKernelSize},
		{"opening_iterations", p.OpeningIterations},
		{"dilation_iterations", p.DilationIterations},
		{"closing_iterations", p.ClosingIterations},
		{"min_area", p.MinArea},
		{"max_area", p.MaxArea},
		{"clahe_clip_limit", p.ClaheClipLimit},
		{"clahe_tile_grid_size", p.ClaheTileGridSize},
	} {
		v.SetDefault("detector.parameters."+kv.key, kv.value)
	}

	v.SetDefault("telegram.token", "")
	v.SetDefault("events.enabled", true)
}
