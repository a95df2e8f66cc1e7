package redis

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"OCRService/internal/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

const keyPrefix = "ocr:result:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IRedis caches recognised detections keyed by image content and engine
// settings.
type IRedis interface {
	GetResult(ctx context.Context, key string) ([]entity.OCRDetection, bool, error)
	SetResult(ctx context.Context, key string, detections []entity.OCRDetection, expiration time.Duration) error
	Close() error
}

type Config struct {
	Address  string
	Password string
	DB       int
}

type redisClient struct {
	client redis.UniversalClient
	log    *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) IRedis {
	log.Info(fmt.Sprintf("Connecting to Redis at %s...", cfg.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client, log: log}
}

// ResultKey derives a cache key from the image bytes and every setting that
// changes what the engine returns.
func ResultKey(engine, variant string, docOrientation, docUnwarping, textOrientation bool, th entity.Thresholds, data []byte) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s|%s|%t|%t|%t|%g|%g|", engine, variant, docOrientation, docUnwarping, textOrientation, th.Detection, th.Recognition)
	h.Write(data)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (r *redisClient) GetResult(ctx context.Context, key string) ([]entity.OCRDetection, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.log.Debug(fmt.Sprintf("Cache miss for key %s", key))
		return nil, false, nil
	} else if err != nil {
		r.log.Error(fmt.Sprintf("Error getting cached result for key %s: %v", key, err))
		return nil, false, err
	}

	var detections []entity.OCRDetection
	if err := json.Unmarshal(raw, &detections); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}

	r.log.Debug(fmt.Sprintf("Cache hit for key %s", key))
	return detections, true, nil
}

func (r *redisClient) SetResult(ctx context.Context, key string, detections []entity.OCRDetection, expiration time.Duration) error {
	if detections == nil {
		detections = []entity.OCRDetection{}
	}

	raw, err := json.Marshal(detections)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, key, raw, expiration).Err(); err != nil {
		r.log.Error(fmt.Sprintf("Error caching result for key %s: %v", key, err))
		return err
	}

	r.log.Debug(fmt.Sprintf("Cached result for key %s with expiration %v", key, expiration))
	return nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
