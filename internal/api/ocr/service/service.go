package ocrService

import (
	"context"
	"time"

	"OCRService/internal/entity"
	"OCRService/pkg/imageinput"
	"OCRService/pkg/ocr"
	"OCRService/pkg/redis"

	"github.com/sirupsen/logrus"
)

type IOCRService interface {
	Process(ctx context.Context, req entity.ImageRequest) (*entity.OCRResult, error)
}

type Config struct {
	Engine   string
	Options  ocr.Options
	CacheTTL time.Duration
	// Thresholds apply when a request does not set its own.
	Thresholds entity.Thresholds
}

type ocrService struct {
	log      *logrus.Logger
	resolver imageinput.IResolver
	runtime  ocr.IRuntime
	cache    redis.IRedis
	cfg      Config
}

// NewOCRService wires the request pipeline. cache may be nil.
func NewOCRService(
	log *logrus.Logger,
	resolver imageinput.IResolver,
	runtime ocr.IRuntime,
	cache redis.IRedis,
	cfg Config,
) IOCRService {
	return &ocrService{
		log:      log,
		resolver: resolver,
		runtime:  runtime,
		cache:    cache,
		cfg:      cfg,
	}
}
