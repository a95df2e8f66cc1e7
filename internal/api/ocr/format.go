package ocr

import (
	"strings"

	"OCRService/internal/entity"
	"OCRService/pkg/response"
)

const (
	OutputJSON = "json"
	OutputText = "text"
)

const successMessage = "OCR processing completed successfully"

var failureMessages = map[string]string{
	response.CodeValidation:             "Invalid request",
	response.CodeSSRFBlocked:            "URL is not allowed",
	response.CodeFetchTimeout:           "Image download timed out",
	response.CodeFetchFailed:            "Failed to download image",
	response.CodeFileTooLarge:           "Image file too large",
	response.CodeUnsupportedContentType: "Unsupported image type",
	response.CodeOCREngine:              "OCR processing failed",
	response.CodeRateLimited:            "Too many requests",
	response.CodeInternal:               "Internal server error",
}

// ParseOutput normalises the output parameter. Empty means json.
func ParseOutput(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", OutputJSON:
		return OutputJSON, nil
	case OutputText:
		return OutputText, nil
	default:
		return "", ErrInvalidOutput
	}
}

func Success(result *entity.OCRResult, requestID string) SuccessResponse {
	return SuccessResponse{
		Success:   true,
		Message:   successMessage,
		Data:      result,
		RequestID: requestID,
	}
}

// Failure shapes err into the failure body. Unclassified errors get a generic
// detail so internals do not leak to clients.
func Failure(err error, requestID string) FailureResponse {
	code := response.CodeOf(err)

	detail := "An unexpected error occurred"
	if code != response.CodeInternal {
		detail = err.Error()
	}

	return FailureResponse{
		Success: false,
		Message: failureMessages[code],
		Error: ErrorDetail{
			Code:   code,
			Detail: detail,
		},
		RequestID: requestID,
	}
}

// Text is the plain text rendering: detection texts joined by newlines, in
// detection order.
func Text(result *entity.OCRResult) string {
	return entity.JoinDetectionText(result.Detections)
}
