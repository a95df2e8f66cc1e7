package middleware

import (
	"OCRService/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Middleware interface {
	NewRateLimiter(ctx *fiber.Ctx) error
	NewRequestIDMiddleware() fiber.Handler
	NewLoggingMiddleware() fiber.Handler
	GetRequestID(ctx *fiber.Ctx) string
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

type middleware struct {
	rateLimitter        *rateLimiter
	requestIDMiddleware fiber.Handler
	utils               utils.IUtils
	log                 *logrus.Logger
}

func New(logger *logrus.Logger, u utils.IUtils, cfg Config) Middleware {
	return &middleware{
		rateLimitter:        newRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		requestIDMiddleware: NewRequestIDMiddleware(u),
		utils:               u,
		log:                 logger,
	}
}

// GetRequestID returns the id assigned by the request id middleware. Requests
// that never passed through it get a fresh one.
func (m *middleware) GetRequestID(ctx *fiber.Ctx) string {
	requestID, ok := ctx.Locals(RequestIDKey).(string)
	if !ok || requestID == "" {
		requestID = m.utils.NewRequestID()
		ctx.Locals(RequestIDKey, requestID)
		ctx.Set(RequestIDKey, requestID)
	}
	return requestID
}

func (m *middleware) NewRequestIDMiddleware() fiber.Handler {
	return m.requestIDMiddleware
}

func (m *middleware) NewLoggingMiddleware() fiber.Handler {
	return LoggerConfig()
}
