// Command fetch-models populates MODEL_CACHE_DIR from the model bucket. It is
// meant to run as an init container or a one-off job before the service
// starts; the service waits for the manifest it writes.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"OCRService/internal/config"
	"OCRService/pkg/log"
	"OCRService/pkg/modelcache"
	"OCRService/pkg/s3"

	"github.com/sirupsen/logrus"
)

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

	store, err := s3.New(s3.Config{
		Bucket:          cfg.ModelBucket,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Endpoint:        cfg.S3Endpoint,
	}, logger)
	if err != nil {
		logger.Fatalf("Error creating S3 client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := modelcache.New(cfg.ModelCacheDir, logger).Populate(ctx, store, modelcache.PopulateRequest{
		Variant:   cfg.ModelVariant,
		Engine:    cfg.OCREngine,
		Prefix:    cfg.ModelPrefix,
		Languages: languages(cfg.TesseractLanguages),
	})
	if err != nil {
		logger.Fatalf("Error populating model cache: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"variant": m.Variant,
		"engine":  m.Engine,
		"files":   len(m.Files),
		"dir":     m.Dir,
	}).Info("Model cache ready")
}

func languages(raw string) []string {
	var out []string
	for _, lang := range strings.FieldsFunc(raw, func(r rune) bool { return r == '+' || r == ',' }) {
		if lang = strings.TrimSpace(lang); lang != "" {
			out = append(out, lang)
		}
	}
	return out
}
