package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

const RequestIDKey = "request_id"

// LocalsRequestIDKey is where the request id middleware stores the id on the
// Fiber context.
const LocalsRequestIDKey = "X-Request-ID"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// FromFiberCtx derives a context carrying the request id. It starts from the
// user context so values set by earlier middleware are kept.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	requestID, ok := c.Locals(LocalsRequestIDKey).(string)
	if !ok || requestID == "" {
		requestID = "unknown"
	}

	return WithRequestID(c.UserContext(), requestID)
}
