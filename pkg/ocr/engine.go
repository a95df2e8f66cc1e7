package ocr

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"
	"sync"
	"time"

	"OCRService/internal/entity"
	"OCRService/pkg/modelcache"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Device                string
	ModelVariant          string
	EnableDocOrientation  bool
	EnableDocUnwarping    bool
	EnableTextOrientation bool
}

// Engine recognises text in one image. Implementations must be safe for
// concurrent use; the pool bounds how many calls run at once. Lines scoring
// below th.Recognition are not returned.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img *entity.ResolvedImage, th entity.Thresholds) ([]entity.OCRDetection, error)
	Close() error
}

type EngineConfig struct {
	Options   Options
	Manifest  *modelcache.Manifest
	PaddleURL string
	// RequestTimeout bounds one call to a remote engine. Zero selects the
	// engine's default.
	RequestTimeout time.Duration
	Log            *logrus.Logger
}

type Factory func(cfg EngineConfig) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an engine available under name. Engines register from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("OCR engine %q is not available in this build (have %v)", name, engineNames())
	}
	return f, nil
}

func engineNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RectToBox turns an axis-aligned rectangle into a clockwise quadrilateral
// starting at the top-left corner.
func RectToBox(r image.Rectangle) [4]entity.Point {
	return [4]entity.Point{
		{r.Min.X, r.Min.Y},
		{r.Max.X, r.Min.Y},
		{r.Max.X, r.Max.Y},
		{r.Min.X, r.Max.Y},
	}
}

// PolygonToBox rounds a polygon to integer pixels. Four-point polygons keep
// their corners; anything else collapses to its bounding rectangle.
func PolygonToBox(poly [][]float64) ([4]entity.Point, bool) {
	if len(poly) == 0 {
		return [4]entity.Point{}, false
	}
	for _, p := range poly {
		if len(p) < 2 {
			return [4]entity.Point{}, false
		}
	}

	if len(poly) == 4 {
		var box [4]entity.Point
		for i, p := range poly {
			box[i] = entity.Point{round(p[0]), round(p[1])}
		}
		return box, true
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	return RectToBox(image.Rect(round(minX), round(minY), round(maxX), round(maxY))), true
}

// ClampConfidence keeps a score inside [0, 1].
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

func round(f float64) int {
	return int(math.Round(f))
}
