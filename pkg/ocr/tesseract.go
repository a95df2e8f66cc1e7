//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"OCRService/internal/entity"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
)

const EngineTesseract = "tesseract"

func init() {
	Register(EngineTesseract, NewTesseract)
}

type tesseractEngine struct {
	clientFactory func() *gosseract.Client
	tessdata      string
	languages     []string
	opts          Options
	log           *logrus.Logger
}

// NewTesseract builds an engine that reads traineddata from the variant's
// model cache directory. A fresh client is created per call since
// gosseract clients are not safe for concurrent use.
func NewTesseract(cfg EngineConfig) (Engine, error) {
	if cfg.Manifest == nil {
		return nil, fmt.Errorf("tesseract needs a populated model cache")
	}

	languages := cfg.Manifest.Languages
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	for _, lang := range languages {
		if _, err := os.Stat(filepath.Join(cfg.Manifest.Dir, lang+".traineddata")); err != nil {
			return nil, fmt.Errorf("tessdata for %q missing: %w", lang, err)
		}
	}

	cfg.Log.WithFields(logrus.Fields{
		"tessdata":  cfg.Manifest.Dir,
		"languages": strings.Join(languages, "+"),
		"version":   gosseract.Version(),
	}).Info("Tesseract engine loaded")

	return &tesseractEngine{
		clientFactory: gosseract.NewClient,
		tessdata:      cfg.Manifest.Dir,
		languages:     languages,
		opts:          cfg.Options,
		log:           cfg.Log,
	}, nil
}

func (e *tesseractEngine) Name() string { return EngineTesseract }

// Recognize drops text lines whose confidence is below th.Recognition.
// Tesseract has no separate detection score, so th.Detection is not used.
func (e *tesseractEngine) Recognize(ctx context.Context, img *entity.ResolvedImage, th entity.Thresholds) ([]entity.OCRDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetTessdataPrefix(e.tessdata); err != nil {
		return nil, fmt.Errorf("set tessdata: %w", err)
	}
	if err := c.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if e.opts.EnableTextOrientation {
		if err := c.SetPageSegMode(gosseract.PSM_AUTO_OSD); err != nil {
			return nil, fmt.Errorf("set page segmentation: %w", err)
		}
	}
	if err := c.SetImageFromBytes(img.Data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	detections := make([]entity.OCRDetection, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		confidence := ClampConfidence(b.Confidence / 100.0)
		if text == "" || confidence < th.Recognition {
			continue
		}
		detections = append(detections, entity.OCRDetection{
			Text:       text,
			Confidence: confidence,
			Box:        RectToBox(b.Box),
		})
	}

	return detections, nil
}

func (e *tesseractEngine) Close() error { return nil }
