package entity

import "strings"

// Point is an (x, y) pixel coordinate, encoded as a two element array.
type Point [2]int

type OCRDetection struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Box        [4]Point `json:"box"`
}

// Thresholds are the detection box score and the minimum recognition
// confidence a line needs to be returned. Both lie in [0, 1].
type Thresholds struct {
	Detection   float64
	Recognition float64
}

type OCRResult struct {
	Text             string         `json:"text"`
	Detections       []OCRDetection `json:"detections"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
	NumDetections    int            `json:"num_detections"`
}

// NewOCRResult builds a result whose Text and NumDetections are derived from
// detections, keeping detection order.
func NewOCRResult(detections []OCRDetection, processingTimeMs float64) *OCRResult {
	if detections == nil {
		detections = []OCRDetection{}
	}
	return &OCRResult{
		Text:             JoinDetectionText(detections),
		Detections:       detections,
		ProcessingTimeMs: processingTimeMs,
		NumDetections:    len(detections),
	}
}

func JoinDetectionText(detections []OCRDetection) string {
	texts := make([]string, len(detections))
	for i, d := range detections {
		texts[i] = d.Text
	}
	return strings.Join(texts, "\n")
}
