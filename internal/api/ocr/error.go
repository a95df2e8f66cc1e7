package ocr

import (
	"net/http"

	"OCRService/pkg/response"
)

var (
	ErrNoFile        = response.NewError(response.CodeValidation, http.StatusBadRequest, "multipart field \"file\" is required")
	ErrInvalidBody   = response.NewError(response.CodeValidation, http.StatusBadRequest, "request body must be a JSON object with a file_url field")
	ErrInvalidForm   = response.NewError(response.CodeValidation, http.StatusBadRequest, "det_thresh and rec_thresh must be numbers")
	ErrInvalidOutput = response.NewError(response.CodeValidation, http.StatusBadRequest, "output must be json or text")
	ErrTextFrame     = response.NewError(response.CodeValidation, http.StatusBadRequest, "send images as binary frames")
)
