package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ecoquest/internal/cache"
	"ecoquest/internal/config"
	"ecoquest/internal/database"
	"ecoquest/internal/repositories"
	"ecoquest/internal/response"
	"ecoquest/internal/router"
	"ecoquest/internal/services"
	"ecoquest/internal/storage"
	"ecoquest/internal/validation"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("🚀 Starting eco-quest server",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	if err := database.InitDB(&cfg.Database, logger); err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer database.Close()

	store, err := storage.NewService(cfg.Cloudinary, cfg.Upload, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	cacheProvider, err := initCache(cfg, logger)
	if err != nil {
		return fmt.Errorf("cache initialization failed: %w", err)
	}
	defer cacheProvider.Close()

	manager := database.GetManager()
	challengeRepo := repositories.NewChallengeRepository(manager, logger)
	badgeRepo := repositories.NewBadgeRepository(manager, logger)

	serviceConfig := services.DefaultChallengeServiceConfig()
	serviceConfig.PhotoFolder = cfg.Cloudinary.BaseFolder
	serviceConfig.CacheTTL = cfg.Cache.TTL
	if len(cfg.Upload.AllowedFormats) > 0 {
		serviceConfig.AllowedFormats = cfg.Upload.AllowedFormats
	}
	serviceConfig.Compression.MaxWidth = cfg.Upload.MaxWidth
	serviceConfig.Compression.MaxHeight = cfg.Upload.MaxHeight
	serviceConfig.Compression.Quality = cfg.Upload.Quality

	collection := services.NewServiceCollection(
		challengeRepo,
		badgeRepo,
		store,
		cacheProvider,
		serviceConfig,
		logger,
	)

	responseConfig := response.DefaultConfig()
	responseConfig.PrettyJSON = cfg.IsDevelopment()
	responseConfig.MaskInternalErrors = !cfg.IsDevelopment()
	builder := response.NewBuilder(responseConfig, logger)

	handler := router.New(&router.Dependencies{
		Services:  collection,
		Builder:   builder,
		Validator: validation.New(),
		Config:    cfg,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("✅ Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("Server stopped cleanly")
	return nil
}

// initLogger builds a zap logger per environment config
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Logging.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}

// initCache picks the configured cache provider
func initCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisURL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to memory cache", zap.Error(err))
			return cache.NewMemoryCache(), nil
		}
		return redisCache, nil
	}

	logger.Info("Using in-memory cache")
	return cache.NewMemoryCache(), nil
}
