package imageinput

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"strings"

	"OCRService/internal/entity"
	"OCRService/pkg/fetcher"
	"OCRService/pkg/response"
	"OCRService/pkg/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxPixels caps width*height before a full decode.
const MaxPixels = 89_478_485

type IResolver interface {
	Resolve(ctx context.Context, req entity.ImageRequest) (*entity.ResolvedImage, error)
}

type resolver struct {
	fetcher      fetcher.IFetcher
	utils        utils.IUtils
	maxBytes     int64
	maxDimension int
	log          *logrus.Logger
}

func New(
	f fetcher.IFetcher,
	u utils.IUtils,
	maxBytes int64,
	maxDimension int,
	log *logrus.Logger,
) IResolver {
	return &resolver{
		fetcher:      f,
		utils:        u,
		maxBytes:     maxBytes,
		maxDimension: maxDimension,
		log:          log,
	}
}

func (r *resolver) Resolve(ctx context.Context, req entity.ImageRequest) (*entity.ResolvedImage, error) {
	hasURL := strings.TrimSpace(req.URL) != ""
	if req.IsUpload() == hasURL {
		return nil, response.Validation("exactly one of file or file_url must be provided")
	}

	if hasURL {
		fetched, err := r.fetcher.Fetch(ctx, strings.TrimSpace(req.URL))
		if err != nil {
			return nil, err
		}
		return r.validate(fetched.Data)
	}

	if len(req.Data) == 0 {
		return nil, response.Validation("uploaded file is empty")
	}
	if int64(len(req.Data)) > r.maxBytes {
		return nil, response.FileTooLarge("file size %d bytes exceeds maximum allowed size %d bytes", len(req.Data), r.maxBytes)
	}
	if err := checkDeclaredType(req.DeclaredContentType); err != nil {
		return nil, err
	}

	return r.validate(req.Data)
}

// validate sniffs, decodes and, when needed, downscales data.
func (r *resolver) validate(data []byte) (*entity.ResolvedImage, error) {
	if len(data) == 0 {
		return nil, response.Validation("image is empty")
	}

	sniffed := baseType(mimetype.Detect(data).String())
	if !fetcher.AllowedContentTypes[sniffed] {
		return nil, response.UnsupportedContentType("unsupported image format %s: allowed formats are JPEG, PNG, BMP, WEBP", sniffed)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, response.Validation("invalid or corrupted image: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, response.Validation("image has no pixels")
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, response.Validation("image of %dx%d pixels exceeds the %d pixel limit", cfg.Width, cfg.Height, MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, response.Validation("invalid or corrupted image: %v", err)
	}

	resolved := &entity.ResolvedImage{
		Data:        data,
		ByteLength:  len(data),
		ContentType: sniffed,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}

	if cfg.Width <= r.maxDimension && cfg.Height <= r.maxDimension {
		return resolved, nil
	}

	optimized, contentType, err := r.utils.OptimizeImageForOCR(img, format, r.maxDimension)
	if err != nil {
		return nil, response.Validation("failed to downscale image: %v", err)
	}
	if int64(len(optimized)) > r.maxBytes {
		return nil, response.FileTooLarge("downscaled image of %d bytes exceeds maximum allowed size %d bytes", len(optimized), r.maxBytes)
	}

	scaled, _, err := image.DecodeConfig(bytes.NewReader(optimized))
	if err != nil {
		return nil, response.Validation("failed to re-read downscaled image: %v", err)
	}

	r.log.WithFields(logrus.Fields{
		"from": [2]int{cfg.Width, cfg.Height},
		"to":   [2]int{scaled.Width, scaled.Height},
	}).Info("Downscaled large image")

	return &entity.ResolvedImage{
		Data:        optimized,
		ByteLength:  len(optimized),
		ContentType: contentType,
		Width:       scaled.Width,
		Height:      scaled.Height,
	}, nil
}

func checkDeclaredType(declared string) error {
	if strings.TrimSpace(declared) == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return response.UnsupportedContentType("invalid content type %q", declared)
	}
	if mediaType == "application/octet-stream" || mediaType == "image/jpg" {
		return nil
	}
	if !fetcher.AllowedContentTypes[mediaType] {
		return response.UnsupportedContentType("content type %s is not allowed", mediaType)
	}
	return nil
}

func baseType(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.TrimSpace(strings.ToLower(mediaType))
}
