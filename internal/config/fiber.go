package config

import (
	"OCRService/internal/middleware"
	"OCRService/pkg/handlerUtil"
	"OCRService/pkg/utils"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// multipartOverhead leaves room for multipart boundaries and form fields on
// top of the largest accepted image.
const multipartOverhead = 64 * 1024

func NewFiber(cfg App, logger *logrus.Logger, u utils.IUtils) *fiber.App {
	errHandler := handlerUtil.New(logger)

	app := fiber.New(
		fiber.Config{
			AppName:               AppName,
			BodyLimit:             int(cfg.MaxFileSize) + multipartOverhead,
			Prefork:               cfg.Workers > 1,
			DisableKeepalive:      false,
			DisableStartupMessage: cfg.AppEnv == "test",
			StrictRouting:         true,
			CaseSensitive:         true,
			EnablePrintRoutes:     cfg.LogLevel == "debug",
			JSONEncoder:           jsoniter.Marshal,
			JSONDecoder:           jsoniter.Unmarshal,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				requestID, ok := c.Locals(middleware.RequestIDKey).(string)
				if !ok || requestID == "" {
					requestID = u.NewRequestID()
				}
				return errHandler.Handle(c, requestID, handlerUtil.FiberError(err), c.Path(), "fiber")
			},
		})

	return app
}
