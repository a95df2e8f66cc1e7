package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"OCRService/internal/entity"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	AppName = "OCR Service"
	Version = "1.0.0"
)

// App is the process configuration. It is read once at startup and passed
// by value afterwards.
type App struct {
	AppEnv   string `mapstructure:"APP_ENV" validate:"required"`
	Host     string `mapstructure:"HOST" validate:"required"`
	Port     int    `mapstructure:"PORT" validate:"min=1,max=65535"`
	Workers  int    `mapstructure:"WORKERS" validate:"min=1,max=64"`
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=trace debug info warn warning error"`
	LogDir   string `mapstructure:"LOG_DIR"`

	CORSAllowOrigins string `mapstructure:"CORS_ALLOW_ORIGINS" validate:"required"`

	Device                string `mapstructure:"DEVICE" validate:"device"`
	ModelVariant          string `mapstructure:"MODEL_VARIANT" validate:"oneof=server mobile"`
	EnableDocOrientation  bool   `mapstructure:"ENABLE_DOC_ORIENTATION"`
	EnableDocUnwarping    bool   `mapstructure:"ENABLE_DOC_UNWARPING"`
	EnableTextOrientation bool   `mapstructure:"ENABLE_TEXT_ORIENTATION"`

	MaxFileSize          int64 `mapstructure:"MAX_FILE_SIZE" validate:"min=1"`
	ImageDownloadTimeout int   `mapstructure:"IMAGE_DOWNLOAD_TIMEOUT" validate:"min=1"`
	MaxImageDimension    int   `mapstructure:"MAX_IMAGE_DIMENSION" validate:"min=16"`
	DNSTimeout           int   `mapstructure:"DNS_TIMEOUT" validate:"min=1"`

	OCREngine            string `mapstructure:"OCR_ENGINE" validate:"oneof=paddle tesseract"`
	PaddleServingURL     string `mapstructure:"PADDLE_SERVING_URL" validate:"omitempty,url"`
	PaddleRequestTimeout int    `mapstructure:"PADDLE_REQUEST_TIMEOUT" validate:"min=1"`
	OCRWorkers           int    `mapstructure:"OCR_WORKERS" validate:"min=1"`
	OCRTimeout           int    `mapstructure:"OCR_TIMEOUT" validate:"min=0"`

	OCRDetectionThreshold   float64 `mapstructure:"OCR_DETECTION_THRESHOLD" validate:"min=0,max=1"`
	OCRRecognitionThreshold float64 `mapstructure:"OCR_RECOGNITION_THRESHOLD" validate:"min=0,max=1"`

	ModelCacheDir          string `mapstructure:"MODEL_CACHE_DIR" validate:"required"`
	ModelCachePollInterval int    `mapstructure:"MODEL_CACHE_POLL_INTERVAL" validate:"min=1"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"min=1"`

	OCRCacheEnabled bool   `mapstructure:"OCR_CACHE_ENABLED"`
	OCRCacheTTL     int    `mapstructure:"OCR_CACHE_TTL" validate:"min=1"`
	RedisAddress    string `mapstructure:"REDIS_ADDRESS" validate:"required_if=OCRCacheEnabled true"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB" validate:"min=0"`

	ModelBucket        string `mapstructure:"MODEL_BUCKET"`
	ModelPrefix        string `mapstructure:"MODEL_PREFIX"`
	AWSRegion          string `mapstructure:"AWS_REGION"`
	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	S3Endpoint         string `mapstructure:"S3_ENDPOINT"`
	TesseractLanguages string `mapstructure:"TESSERACT_LANGUAGES"`
}

var defaults = map[string]any{
	"APP_ENV":                   "production",
	"HOST":                      "0.0.0.0",
	"PORT":                      8000,
	"WORKERS":                   1,
	"LOG_LEVEL":                 "info",
	"LOG_DIR":                   "./storage/logs",
	"CORS_ALLOW_ORIGINS":        "*",
	"DEVICE":                    "cpu",
	"MODEL_VARIANT":             "server",
	"ENABLE_DOC_ORIENTATION":    false,
	"ENABLE_DOC_UNWARPING":      false,
	"ENABLE_TEXT_ORIENTATION":   true,
	"MAX_FILE_SIZE":             10 * 1024 * 1024,
	"IMAGE_DOWNLOAD_TIMEOUT":    30,
	"MAX_IMAGE_DIMENSION":       4096,
	"DNS_TIMEOUT":               5,
	"OCR_ENGINE":                "paddle",
	"PADDLE_SERVING_URL":        "http://127.0.0.1:8080",
	"PADDLE_REQUEST_TIMEOUT":    300,
	"OCR_WORKERS":               2,
	"OCR_TIMEOUT":               0,
	"OCR_DETECTION_THRESHOLD":   0.3,
	"OCR_RECOGNITION_THRESHOLD": 0.7,
	"MODEL_CACHE_DIR":           "./models",
	"MODEL_CACHE_POLL_INTERVAL": 2,
	"RATE_LIMIT_RPS":            50,
	"RATE_LIMIT_BURST":          100,
	"OCR_CACHE_ENABLED":         false,
	"OCR_CACHE_TTL":             3600,
	"REDIS_ADDRESS":             "",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"MODEL_BUCKET":              "",
	"MODEL_PREFIX":              "",
	"AWS_REGION":                "",
	"AWS_ACCESS_KEY_ID":         "",
	"AWS_SECRET_ACCESS_KEY":     "",
	"S3_ENDPOINT":               "",
	"TESSERACT_LANGUAGES":       "eng",
}

var devicePattern = regexp.MustCompile(`^(cpu|gpu|cuda:\d+)$`)

// Load reads .env when present, then the environment. Malformed or invalid
// values are returned as an error.
func Load() (App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return App{}, fmt.Errorf("load .env: %w", err)
	}

	return FromEnv()
}

// FromEnv decodes and validates the process environment without touching
// .env files.
func FromEnv() (App, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return App{}, err
		}
	}

	var cfg App
	if err := v.Unmarshal(&cfg); err != nil {
		return App{}, fmt.Errorf("decode configuration: %w", err)
	}

	if err := NewValidator().Struct(cfg); err != nil {
		return App{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("device", func(fl validator.FieldLevel) bool {
		return devicePattern.MatchString(fl.Field().String())
	})
	return v
}

func (a App) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

func (a App) DownloadTimeout() time.Duration {
	return time.Duration(a.ImageDownloadTimeout) * time.Second
}

func (a App) DNSLookupTimeout() time.Duration {
	return time.Duration(a.DNSTimeout) * time.Second
}

// EngineTimeout is zero when OCR calls are unbounded.
func (a App) EngineTimeout() time.Duration {
	return time.Duration(a.OCRTimeout) * time.Second
}

func (a App) PaddleTimeout() time.Duration {
	return time.Duration(a.PaddleRequestTimeout) * time.Second
}

func (a App) Thresholds() entity.Thresholds {
	return entity.Thresholds{
		Detection:   a.OCRDetectionThreshold,
		Recognition: a.OCRRecognitionThreshold,
	}
}

func (a App) PollInterval() time.Duration {
	return time.Duration(a.ModelCachePollInterval) * time.Second
}

func (a App) CacheTTL() time.Duration {
	return time.Duration(a.OCRCacheTTL) * time.Second
}
