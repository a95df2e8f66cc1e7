package healthHandler

import (
	"OCRService/internal/api/health"

	"github.com/gofiber/fiber/v2"
)

func (h *HealthHandler) ServiceInfo(ctx *fiber.Ctx) error {
	return ctx.JSON(health.ServiceInfoResponse{
		Service:      h.info.Service,
		Version:      h.info.Version,
		Status:       "running",
		OCREngine:    h.info.Engine,
		ModelVariant: h.info.ModelVariant,
		Device:       h.info.Device,
	})
}

// Health is liveness only. It never touches the engine.
func (h *HealthHandler) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(health.HealthResponse{
		Status:  "healthy",
		Version: h.info.Version,
	})
}

// Ready reports 200 once the model cache is populated and the engine loaded,
// 503 until then.
func (h *HealthHandler) Ready(ctx *fiber.Ctx) error {
	st := h.runtime.Status()
	ready := h.runtime.Ready()

	body := health.ReadinessResponse{
		Status:          "ready",
		OCRInitialized:  st.EngineLoaded,
		ModelCacheReady: st.ModelCacheReady,
		GPUAvailable:    st.GPUAvailable,
		Device:          st.Device,
		ModelVariant:    st.ModelVariant,
		Version:         h.info.Version,
	}
	if !ready {
		body.Status = "not_ready"
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(body)
	}

	return ctx.JSON(body)
}
