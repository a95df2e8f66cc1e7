package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"OCRService/internal/config"
	"OCRService/pkg/log"
	"OCRService/pkg/modelcache"
	"OCRService/pkg/ocr"
	"OCRService/pkg/redis"
	"OCRService/pkg/utils"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Error loading configuration: %v", err)
	}

	logger := log.NewLogger(log.Config{
		Level:  cfg.LogLevel,
		Dir:    cfg.LogDir,
		AppEnv: cfg.AppEnv,
	})

	u := utils.New(cfg.MaxFileSize)
	fiberApp := config.NewFiber(cfg, logger, u)
	validator := config.NewValidator()

	runtime, err := ocr.NewRuntime(ocr.RuntimeConfig{
		Engine: cfg.OCREngine,
		Options: ocr.Options{
			Device:                cfg.Device,
			ModelVariant:          cfg.ModelVariant,
			EnableDocOrientation:  cfg.EnableDocOrientation,
			EnableDocUnwarping:    cfg.EnableDocUnwarping,
			EnableTextOrientation: cfg.EnableTextOrientation,
		},
		PaddleURL:     cfg.PaddleServingURL,
		PaddleTimeout: cfg.PaddleTimeout(),
		PollInterval:  cfg.PollInterval(),
		Workers:       cfg.OCRWorkers,
		Timeout:       cfg.EngineTimeout(),
	}, modelcache.New(cfg.ModelCacheDir, logger), logger)
	if err != nil {
		logger.Fatalf("Error creating OCR runtime: %v", err)
	}

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithConfig(cfg),
		config.WithValidator(validator),
		config.WithUtils(u),
		config.WithMiddleware(),
		config.WithImagePipeline(),
		config.WithRuntime(runtime),
	}
	if cfg.OCRCacheEnabled {
		options = append(options, config.WithRedisServer(redis.New(redis.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(ctx); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	<-sigChan
	logger.Info("Shutting down server...")
	cancel()

	if err := server.Shutdown(shutdownTimeout); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
