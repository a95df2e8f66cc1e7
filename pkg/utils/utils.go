package utils

import (
	"bytes"
	"errors"
	"image"
	"io"
	"mime/multipart"

	"OCRService/pkg/response"

	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewRequestID() string
	ValidateImageFile(file *multipart.FileHeader) error
	ReadFile(file *multipart.FileHeader) ([]byte, error)
	OptimizeImageForOCR(img image.Image, format string, maxDimension int) ([]byte, string, error)
}

type utils struct {
	maxFileSize int64
}

func New(maxFileSize int64) IUtils {
	return &utils{
		maxFileSize: maxFileSize,
	}
}

// NewRequestID returns a ULID. ulid.Make draws from a process-wide monotonic
// entropy source guarded by a mutex, so concurrent callers never collide.
func (u *utils) NewRequestID() string {
	return ulid.Make().String()
}

// ValidateImageFile checks the multipart header before any bytes are read.
func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return response.Validation("no file uploaded")
	}

	if file.Size == 0 {
		return response.Validation("uploaded file is empty")
	}

	if file.Size > u.maxFileSize {
		return response.FileTooLarge("file size %d bytes exceeds maximum allowed size %d bytes", file.Size, u.maxFileSize)
	}

	return nil
}

func (u *utils) ReadFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, response.FileTooLarge("file exceeds maximum allowed size %d bytes", u.maxFileSize)
	}

	return data, nil
}

// OptimizeImageForOCR downscales img so its longer side is at most
// maxDimension and re-encodes it. JPEG stays JPEG; everything else becomes
// PNG. It returns the encoded bytes and their content type.
func (u *utils) OptimizeImageForOCR(img image.Image, format string, maxDimension int) ([]byte, string, error) {
	if maxDimension <= 0 {
		return nil, "", errors.New("max dimension must be positive")
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", err
		}
		if int64(buf.Len()) <= u.maxFileSize {
			return buf.Bytes(), "image/png", nil
		}
		buf.Reset()
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}
