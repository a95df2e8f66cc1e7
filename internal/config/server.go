package config

import (
	"context"
	"fmt"
	"time"

	healthHandler "OCRService/internal/api/health/handler"
	ocrHandler "OCRService/internal/api/ocr/handler"
	ocrService "OCRService/internal/api/ocr/service"
	"OCRService/internal/middleware"
	"OCRService/pkg/fetcher"
	"OCRService/pkg/imageinput"
	"OCRService/pkg/ocr"
	"OCRService/pkg/redis"
	"OCRService/pkg/ssrf"
	"OCRService/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

// Runtime is the engine lifecycle the server drives.
type Runtime interface {
	ocr.IRuntime
	Start(ctx context.Context)
	Close() error
}

type Server struct {
	engine      *fiber.App
	cfg         App
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	guard       ssrf.IGuard
	fetcher     fetcher.IFetcher
	resolver    imageinput.IResolver
	runtime     Runtime
	redisServer redis.IRedis
	handlers    []handler
	rootHandler handler
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.runtime == nil {
		return nil, fmt.Errorf("OCR runtime is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithConfig(cfg App) ServerOption {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithUtils(u utils.IUtils) ServerOption {
	return func(s *Server) error {
		s.utils = u
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.utils == nil {
			return fmt.Errorf("utils must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, s.utils, middleware.Config{
			RateLimitRPS:   s.cfg.RateLimitRPS,
			RateLimitBurst: s.cfg.RateLimitBurst,
		})
		return nil
	}
}

// WithImagePipeline builds the SSRF guard, the fetcher and the input
// resolver from the configuration.
func WithImagePipeline() ServerOption {
	return func(s *Server) error {
		if s.log == nil || s.utils == nil {
			return fmt.Errorf("logger and utils must be initialized before the image pipeline")
		}
		s.guard = ssrf.New(ssrf.WithDNSTimeout(s.cfg.DNSLookupTimeout()))
		s.fetcher = fetcher.New(s.guard, s.cfg.DownloadTimeout(), s.cfg.MaxFileSize, s.log)
		s.resolver = imageinput.New(s.fetcher, s.utils, s.cfg.MaxFileSize, s.cfg.MaxImageDimension, s.log)
		return nil
	}
}

func WithResolver(resolver imageinput.IResolver) ServerOption {
	return func(s *Server) error {
		s.resolver = resolver
		return nil
	}
}

func WithRuntime(runtime Runtime) ServerOption {
	return func(s *Server) error {
		s.runtime = runtime
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Health and service info
	s.rootHandler = healthHandler.New(s.log, s.runtime, healthHandler.Info{
		Service:      AppName,
		Version:      Version,
		Engine:       s.cfg.OCREngine,
		ModelVariant: s.cfg.ModelVariant,
		Device:       s.cfg.Device,
	})

	// OCR
	ocrServices := ocrService.NewOCRService(s.log, s.resolver, s.runtime, s.redisServer, ocrService.Config{
		Engine: s.cfg.OCREngine,
		Options: ocr.Options{
			Device:                s.cfg.Device,
			ModelVariant:          s.cfg.ModelVariant,
			EnableDocOrientation:  s.cfg.EnableDocOrientation,
			EnableDocUnwarping:    s.cfg.EnableDocUnwarping,
			EnableTextOrientation: s.cfg.EnableTextOrientation,
		},
		CacheTTL:   s.cfg.CacheTTL(),
		Thresholds: s.cfg.Thresholds(),
	})
	ocrHandlers := ocrHandler.New(s.log, s.validator, s.middleware, ocrServices, s.utils, s.cfg.MaxFileSize)

	s.handlers = append(s.handlers, ocrHandlers)
}

// Mount installs middleware and routes. Run calls it; tests call it directly.
// CORS runs first so preflight requests are answered before rate limiting.
func (s *Server) Mount() {
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:  s.cfg.CORSAllowOrigins,
		AllowMethods:  "GET,POST,OPTIONS",
		ExposeHeaders: fiber.HeaderXRequestID,
	}))
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	s.engine.Use(s.middleware.NewRateLimiter)

	s.rootHandler.Start(s.engine)

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

// Run serves until the listener fails or Shutdown is called. With prefork the
// parent process only supervises children, so it does not load an engine.
func (s *Server) Run(ctx context.Context) error {
	s.Mount()

	if !s.engine.Config().Prefork || fiber.IsChild() {
		s.runtime.Start(ctx)
	}

	s.log.WithFields(logrus.Fields{
		"address": s.cfg.Address(),
		"engine":  s.cfg.OCREngine,
		"variant": s.cfg.ModelVariant,
		"device":  s.cfg.Device,
		"workers": s.cfg.Workers,
	}).Info("Starting HTTP server")

	return s.engine.Listen(s.cfg.Address())
}

func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.engine.ShutdownWithTimeout(timeout)

	if cerr := s.runtime.Close(); cerr != nil {
		s.log.WithField("error", cerr.Error()).Error("Failed to close OCR engine")
	}
	if s.redisServer != nil {
		if cerr := s.redisServer.Close(); cerr != nil {
			s.log.WithField("error", cerr.Error()).Error("Failed to close Redis client")
		}
	}

	return err
}

// App exposes the Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.engine
}
