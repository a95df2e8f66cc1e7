package ocr

import "OCRService/internal/entity"

type URLRequest struct {
	FileURL   string   `json:"file_url" validate:"required,url"`
	DetThresh *float64 `json:"det_thresh" validate:"omitempty,min=0,max=1"`
	RecThresh *float64 `json:"rec_thresh" validate:"omitempty,min=0,max=1"`
}

// UploadForm holds the non-file fields of a multipart upload.
type UploadForm struct {
	Output    string   `form:"output"`
	DetThresh *float64 `form:"det_thresh" validate:"omitempty,min=0,max=1"`
	RecThresh *float64 `form:"rec_thresh" validate:"omitempty,min=0,max=1"`
}

type ErrorDetail struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

type SuccessResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Data      *entity.OCRResult `json:"data"`
	RequestID string            `json:"request_id"`
}

type FailureResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id"`
}
