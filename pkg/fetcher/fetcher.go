package fetcher

import (
	"context"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"time"

	"OCRService/internal/entity"
	"OCRService/pkg/response"
	"OCRService/pkg/ssrf"

	"github.com/sirupsen/logrus"
)

const maxRedirects = 5

// AllowedContentTypes are the image types accepted from remote servers.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/bmp":  true,
	"image/webp": true,
}

type IFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*entity.ResolvedImage, error)
}

type fetcher struct {
	guard    ssrf.IGuard
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	log      *logrus.Logger
}

func New(guard ssrf.IGuard, timeout time.Duration, maxBytes int64, log *logrus.Logger) IFetcher {
	f := &fetcher{
		guard:    guard,
		timeout:  timeout,
		maxBytes: maxBytes,
		log:      log,
	}

	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           guard.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	f.client = &http.Client{
		Transport:     transport,
		CheckRedirect: f.checkRedirect,
	}

	return f
}

// Fetch downloads rawURL. The guard runs before the first byte is sent and
// again on every redirect hop; the body is never buffered beyond maxBytes.
// The returned image carries the raw bytes and the declared content type; it
// has not been decoded yet.
func (f *fetcher) Fetch(ctx context.Context, rawURL string) (*entity.ResolvedImage, error) {
	if err := f.guard.Check(ctx, rawURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, response.Validation("invalid URL: %v", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/bmp, image/webp")
	req.Header.Set("User-Agent", "ocr-service/1.0")

	f.log.WithFields(logrus.Fields{
		"url": rawURL,
	}).Debug("Downloading image")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classify(ctx, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, response.FetchFailed("failed to download image: HTTP %d", resp.StatusCode)
	}

	contentType, err := normalizeContentType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > f.maxBytes {
			return nil, response.FileTooLarge("content length %d bytes exceeds maximum allowed size %d bytes", n, f.maxBytes)
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, f.classify(ctx, rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, response.FileTooLarge("downloaded content exceeds maximum size of %d bytes", f.maxBytes)
	}

	f.log.WithFields(logrus.Fields{
		"url":          rawURL,
		"bytes":        len(data),
		"content_type": contentType,
	}).Info("Downloaded image")

	return &entity.ResolvedImage{
		Data:        data,
		ByteLength:  len(data),
		ContentType: contentType,
	}, nil
}

func (f *fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return response.FetchFailed("stopped after %d redirects", maxRedirects)
	}
	if err := f.guard.CheckURL(req.Context(), req.URL); err != nil {
		f.log.WithFields(logrus.Fields{
			"from":  via[len(via)-1].URL.String(),
			"to":    req.URL.String(),
			"error": err.Error(),
		}).Warn("Redirect rejected")
		return err
	}
	return nil
}

func (f *fetcher) classify(ctx context.Context, rawURL string, err error) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		return respErr
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return response.FetchTimeout("download of %s timed out after %s", rawURL, f.timeout)
	}
	if errors.Is(err, context.Canceled) {
		return response.FetchFailed("download of %s cancelled", rawURL)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return response.FetchTimeout("download of %s timed out: %v", rawURL, err)
	}

	return response.FetchFailed("failed to download image: %v", err)
}

func normalizeContentType(header string) (string, error) {
	if header == "" {
		return "", response.UnsupportedContentType("missing content type")
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return "", response.UnsupportedContentType("invalid content type %q", header)
	}
	if !AllowedContentTypes[mediaType] {
		return "", response.UnsupportedContentType("content type %s is not allowed", mediaType)
	}
	return mediaType, nil
}
