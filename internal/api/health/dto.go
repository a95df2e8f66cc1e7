package health

type ServiceInfoResponse struct {
	Service      string `json:"service"`
	Version      string `json:"version"`
	Status       string `json:"status"`
	OCREngine    string `json:"ocr_engine"`
	ModelVariant string `json:"model_variant"`
	Device       string `json:"device"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ReadinessResponse struct {
	Status          string `json:"status"`
	OCRInitialized  bool   `json:"ocr_initialized"`
	ModelCacheReady bool   `json:"model_cache_ready"`
	GPUAvailable    bool   `json:"gpu_available"`
	Device          string `json:"device"`
	ModelVariant    string `json:"model_variant"`
	Version         string `json:"version"`
}
