package middleware

import (
	contextPkg "OCRService/pkg/context"
	"OCRService/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

const RequestIDKey = contextPkg.LocalsRequestIDKey

// NewRequestIDMiddleware assigns every request a fresh id. A client supplied
// X-Request-ID is ignored so ids stay unique.
func NewRequestIDMiddleware(u utils.IUtils) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := u.NewRequestID()

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)

		return c.Next()
	}
}
