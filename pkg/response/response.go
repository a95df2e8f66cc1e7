package response

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeSSRFBlocked            = "SSRF_BLOCKED"
	CodeFetchTimeout           = "FETCH_TIMEOUT"
	CodeFetchFailed            = "FETCH_FAILED"
	CodeFileTooLarge           = "FILE_TOO_LARGE"
	CodeUnsupportedContentType = "UNSUPPORTED_CONTENT_TYPE"
	CodeOCREngine              = "OCR_ENGINE_ERROR"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL_ERROR"
)

// Error is an error that knows which response it should produce.
type Error struct {
	Code   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on the machine code only, so sentinel values can be compared
// against errors carrying a request specific detail.
func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewError(code string, status int, err string) error {
	return &Error{Code: code, Status: status, Err: errors.New(err)}
}

// Wrap attaches a code and status to err, keeping err in the chain.
func Wrap(code string, status int, err error) error {
	return &Error{Code: code, Status: status, Err: err}
}

func Validation(format string, args ...any) error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Err: fmt.Errorf(format, args...)}
}

func SSRFBlocked(format string, args ...any) error {
	return &Error{Code: CodeSSRFBlocked, Status: http.StatusForbidden, Err: fmt.Errorf(format, args...)}
}

func FetchTimeout(format string, args ...any) error {
	return &Error{Code: CodeFetchTimeout, Status: http.StatusRequestTimeout, Err: fmt.Errorf(format, args...)}
}

func FetchFailed(format string, args ...any) error {
	return &Error{Code: CodeFetchFailed, Status: http.StatusBadRequest, Err: fmt.Errorf(format, args...)}
}

func FileTooLarge(format string, args ...any) error {
	return &Error{Code: CodeFileTooLarge, Status: http.StatusRequestEntityTooLarge, Err: fmt.Errorf(format, args...)}
}

func UnsupportedContentType(format string, args ...any) error {
	return &Error{Code: CodeUnsupportedContentType, Status: http.StatusUnsupportedMediaType, Err: fmt.Errorf(format, args...)}
}

func OCREngine(format string, args ...any) error {
	return &Error{Code: CodeOCREngine, Status: http.StatusInternalServerError, Err: fmt.Errorf(format, args...)}
}

// OCRNotReady is an engine error reported while the model cache or the engine
// is still loading.
func OCRNotReady(format string, args ...any) error {
	return &Error{Code: CodeOCREngine, Status: http.StatusServiceUnavailable, Err: fmt.Errorf(format, args...)}
}

// CodeOf returns the machine code carried by err, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}
