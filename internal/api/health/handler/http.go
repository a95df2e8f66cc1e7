package healthHandler

import (
	"OCRService/pkg/ocr"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type Info struct {
	Service      string
	Version      string
	Engine       string
	ModelVariant string
	Device       string
}

type HealthHandler struct {
	log     *logrus.Logger
	runtime ocr.IRuntime
	info    Info
}

func New(log *logrus.Logger, runtime ocr.IRuntime, info Info) *HealthHandler {
	return &HealthHandler{
		log:     log,
		runtime: runtime,
		info:    info,
	}
}

func (h *HealthHandler) Start(srv fiber.Router) {
	srv.Get("/", h.ServiceInfo)
	srv.Get("/health", h.Health)
	srv.Get("/health/ready", h.Ready)
}
