package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"OCRService/internal/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const EnginePaddle = "paddle"

// defaultPaddleRequestTimeout stops a hung sidecar from holding a pool slot
// forever when no OCR timeout is configured.
const defaultPaddleRequestTimeout = 5 * time.Minute

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	Register(EnginePaddle, NewPaddle)
}

type paddleRequest struct {
	File                      string  `json:"file"`
	FileType                  int     `json:"fileType"`
	UseDocOrientationClassify bool    `json:"useDocOrientationClassify"`
	UseDocUnwarping           bool    `json:"useDocUnwarping"`
	UseTextlineOrientation    bool    `json:"useTextlineOrientation"`
	TextDetThresh             float64 `json:"textDetThresh"`
	TextRecScoreThresh        float64 `json:"textRecScoreThresh"`
	Visualize                 bool    `json:"visualize"`
}

type paddleResponse struct {
	LogID     string `json:"logId"`
	ErrorCode int    `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
	Result    struct {
		OCRResults []struct {
			PrunedResult struct {
				RecTexts  []string      `json:"rec_texts"`
				RecScores []float64     `json:"rec_scores"`
				RecPolys  [][][]float64 `json:"rec_polys"`
			} `json:"prunedResult"`
		} `json:"ocrResults"`
	} `json:"result"`
}

// paddleEngine talks to a PaddleX serving sidecar. Inference happens in that
// process, so a native crash there surfaces here as a transport error.
type paddleEngine struct {
	baseURL string
	client  *http.Client
	opts    Options
	log     *logrus.Logger
}

func NewPaddle(cfg EngineConfig) (Engine, error) {
	if cfg.PaddleURL == "" {
		return nil, fmt.Errorf("paddle serving URL is not configured")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultPaddleRequestTimeout
	}

	e := &paddleEngine{
		baseURL: strings.TrimRight(cfg.PaddleURL, "/"),
		client:  &http.Client{Timeout: timeout},
		opts:    cfg.Options,
		log:     cfg.Log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.ping(ctx); err != nil {
		return nil, fmt.Errorf("paddle serving at %s is not healthy: %w", e.baseURL, err)
	}

	if cfg.Manifest != nil {
		e.log.WithFields(logrus.Fields{
			"url":         e.baseURL,
			"detection":   cfg.Manifest.DetectionModel,
			"recognition": cfg.Manifest.RecognitionModel,
			"device":      cfg.Options.Device,
		}).Info("Paddle engine connected")
	}

	return e, nil
}

func (e *paddleEngine) Name() string {
	return EnginePaddle
}

// GPUAvailable reports the configured device. The sidecar owns the hardware
// and fails its health check when the requested device is missing.
func (e *paddleEngine) GPUAvailable() bool {
	return IsGPUDevice(e.opts.Device)
}

func (e *paddleEngine) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func (e *paddleEngine) Recognize(ctx context.Context, img *entity.ResolvedImage, th entity.Thresholds) ([]entity.OCRDetection, error) {
	body, err := json.Marshal(paddleRequest{
		File:                      base64.StdEncoding.EncodeToString(img.Data),
		FileType:                  1,
		UseDocOrientationClassify: e.opts.EnableDocOrientation,
		UseDocUnwarping:           e.opts.EnableDocUnwarping,
		UseTextlineOrientation:    e.opts.EnableTextOrientation,
		TextDetThresh:             th.Detection,
		TextRecScoreThresh:        th.Recognition,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paddle serving request failed: %w", err)
	}
	defer resp.Body.Close()

	var out paddleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("paddle serving returned %d with unreadable body: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.ErrorCode != 0 {
		return nil, fmt.Errorf("paddle serving error %d: %s", out.ErrorCode, out.ErrorMsg)
	}

	var detections []entity.OCRDetection
	for _, page := range out.Result.OCRResults {
		pr := page.PrunedResult
		for i, text := range pr.RecTexts {
			if strings.TrimSpace(text) == "" {
				continue
			}
			if i >= len(pr.RecPolys) {
				return nil, fmt.Errorf("paddle serving returned %d texts but %d polygons", len(pr.RecTexts), len(pr.RecPolys))
			}
			box, ok := PolygonToBox(pr.RecPolys[i])
			if !ok {
				return nil, fmt.Errorf("paddle serving returned malformed polygon for line %d", i)
			}

			var score float64
			if i < len(pr.RecScores) {
				score = ClampConfidence(pr.RecScores[i])
			}
			// Older serving builds ignore textRecScoreThresh.
			if score < th.Recognition {
				continue
			}

			detections = append(detections, entity.OCRDetection{
				Text:       text,
				Confidence: score,
				Box:        box,
			})
		}
	}

	return detections, nil
}

func (e *paddleEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
