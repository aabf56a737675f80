package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"colony-counter/config"
	"colony-counter/internal/api/rest"
	"colony-counter/internal/api/telegram"
	"colony-counter/internal/container"
	"colony-counter/internal/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := os.Getenv("COLONY_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	log.Info("starting colony counter",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("detector", cfg.Detector.Backend))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		logger.Sync(log)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	c, err := container.New(cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.Hub != nil {
		go c.Hub.Run(ctx)
	}

	// Бот запускается, только если задан токен
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token, c.OperatorService, c.CountingService, cfg.Detector.Parameters, log)
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}
		go func() {
			if err := bot.Run(ctx); err != nil {
				log.Error("bot stopped", zap.Error(err))
			}
		}()
		log.Info("telegram bot is running")
	}

	gin.SetMode(cfg.Server.Mode)
	handler := rest.NewHandler(c.CountingService, rest.UploadLimits{
		MaxSize:    cfg.Upload.MaxSize,
		AllowedExt: cfg.Upload.AllowedExt,
	}, log)
	router := rest.NewRouter(handler, c.Hub, rest.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}, log)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
