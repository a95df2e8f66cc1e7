package ocrService

import (
	"context"
	"time"

	"OCRService/internal/entity"
	"OCRService/pkg/log"
	"OCRService/pkg/redis"
)

// Process resolves the input, then runs OCR on it. processing_time_ms spans
// the whole pipeline including any download.
func (s *ocrService) Process(ctx context.Context, req entity.ImageRequest) (*entity.OCRResult, error) {
	start := time.Now()
	logger := log.WithRequestID(ctx)

	img, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"content_type": img.ContentType,
		"bytes":        img.ByteLength,
		"width":        img.Width,
		"height":       img.Height,
	}).Debug("Image resolved")

	th := s.thresholds(req)

	var key string
	if s.cache != nil {
		opts := s.cfg.Options
		key = redis.ResultKey(s.cfg.Engine, opts.ModelVariant, opts.EnableDocOrientation, opts.EnableDocUnwarping, opts.EnableTextOrientation, th, img.Data)

		detections, hit, err := s.cache.GetResult(ctx, key)
		if err != nil {
			logger.WithField("error", err.Error()).Warn("Result cache lookup failed")
		}
		if hit {
			result := entity.NewOCRResult(detections, elapsedMs(start))
			logger.WithField("detections", result.NumDetections).Info("Served OCR result from cache")
			return result, nil
		}
	}

	detections, err := s.runtime.Recognize(ctx, img, th)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetResult(ctx, key, detections, s.cfg.CacheTTL); err != nil {
			logger.WithField("error", err.Error()).Warn("Failed to cache OCR result")
		}
	}

	result := entity.NewOCRResult(detections, elapsedMs(start))
	logger.WithFields(log.Fields{
		"detections":         result.NumDetections,
		"processing_time_ms": result.ProcessingTimeMs,
	}).Info("OCR processing completed")

	return result, nil
}

func (s *ocrService) thresholds(req entity.ImageRequest) entity.Thresholds {
	th := s.cfg.Thresholds
	if req.DetThresh != nil {
		th.Detection = *req.DetThresh
	}
	if req.RecThresh != nil {
		th.Recognition = *req.RecThresh
	}
	return th
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
