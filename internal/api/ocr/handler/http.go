package ocrHandler

import (
	ocrService "OCRService/internal/api/ocr/service"
	"OCRService/internal/middleware"
	"OCRService/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type OCRHandler struct {
	log         *logrus.Logger
	validator   *validator.Validate
	middleware  middleware.Middleware
	ocrService  ocrService.IOCRService
	utils       utils.IUtils
	maxFileSize int64
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	os ocrService.IOCRService,
	utils utils.IUtils,
	maxFileSize int64,
) *OCRHandler {
	return &OCRHandler{
		ocrService:  os,
		log:         log,
		validator:   validator,
		middleware:  middleware,
		utils:       utils,
		maxFileSize: maxFileSize,
	}
}

func (h *OCRHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	ocr := srv.Group("/ocr")
	ocr.Post("/upload", h.Upload)
	ocr.Post("/url", h.FromURL)

	ocr.Use("/ws", wsMiddleware)
	ocr.Get("/ws", websocket.New(h.handleWebSocket))
}
