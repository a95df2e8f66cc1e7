package handlerUtil

import (
	"errors"

	ocrApi "OCRService/internal/api/ocr"
	"OCRService/pkg/log"
	"OCRService/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Handle writes the failure body for err. Client errors are logged as
// warnings; server errors are logged with a trace id.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	status := response.StatusOf(err)
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"code":       response.CodeOf(err),
		"status":     status,
		"path":       path,
		"operation":  operation,
	}

	var respErr *response.Error
	switch {
	case status >= fiber.StatusInternalServerError:
		log.ErrorWithTraceID(fields, "Operation failed")
	case errors.As(err, &respErr):
		h.logger.WithFields(fields).Warn("Operation failed with error response")
	default:
		h.logger.WithFields(fields).Warn("Operation failed")
	}

	c.Set(fiber.HeaderXRequestID, requestID)
	return c.Status(status).JSON(ocrApi.Failure(err, requestID))
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return h.Handle(c, requestID, response.Validation("validation failed: %v", err), path, "validate_request")
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, requestID string, statusCode int, data interface{}) error {
	c.Set(fiber.HeaderXRequestID, requestID)
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}

// HandleText writes a plain text body.
func (h *ErrorHandler) HandleText(c *fiber.Ctx, requestID string, body string) error {
	c.Set(fiber.HeaderXRequestID, requestID)
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(fiber.StatusOK).SendString(body)
}

// FiberError converts errors raised by Fiber itself (unknown route, body over
// the limit, bad method) into a typed error.
func FiberError(err error) error {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return err
	}

	switch {
	case fe.Code == fiber.StatusRequestEntityTooLarge:
		return response.FileTooLarge("%s", fe.Message)
	case fe.Code == fiber.StatusTooManyRequests:
		return response.NewError(response.CodeRateLimited, fe.Code, fe.Message)
	case fe.Code >= fiber.StatusInternalServerError:
		return response.NewError(response.CodeInternal, fe.Code, fe.Message)
	default:
		return response.NewError(response.CodeValidation, fe.Code, fe.Message)
	}
}
