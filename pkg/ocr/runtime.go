package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"OCRService/internal/entity"
	"OCRService/pkg/modelcache"
	"OCRService/pkg/response"

	"github.com/sirupsen/logrus"
)

type IRuntime interface {
	Ready() bool
	Status() Status
	Recognize(ctx context.Context, img *entity.ResolvedImage, th entity.Thresholds) ([]entity.OCRDetection, error)
}

type Status struct {
	Engine          string
	ModelVariant    string
	Device          string
	ModelCacheReady bool
	EngineLoaded    bool
	GPUAvailable    bool
}

type RuntimeConfig struct {
	Engine    string
	Options   Options
	PaddleURL string
	// PaddleTimeout bounds a single sidecar call.
	PaddleTimeout time.Duration
	PollInterval  time.Duration
	Workers       int
	Timeout       time.Duration
}

// gpuReporter is implemented by engines that can run on a GPU.
type gpuReporter interface {
	GPUAvailable() bool
}

type engineHolder struct {
	Engine
}

// Runtime owns the engine for the life of the process. The engine is loaded
// once the model cache for the configured variant is complete.
type Runtime struct {
	cfg        RuntimeConfig
	cache      *modelcache.Cache
	factory    Factory
	pool       *Pool
	engine     atomic.Pointer[engineHolder]
	cacheReady atomic.Bool
	log        *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRuntime(cfg RuntimeConfig, cache *modelcache.Cache, log *logrus.Logger) (*Runtime, error) {
	factory, err := Lookup(cfg.Engine)
	if err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	return &Runtime{
		cfg:     cfg,
		cache:   cache,
		factory: factory,
		pool:    NewPool(cfg.Workers, cfg.Timeout, log),
		log:     log,
	}, nil
}

// Start watches the model cache in the background and loads the engine when
// it becomes ready.
func (r *Runtime) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := r.cache.Watch(ctx, r.cfg.Options.ModelVariant, r.cfg.PollInterval, r.load)
		if err != nil && ctx.Err() == nil {
			r.log.WithField("error", err.Error()).Error("Model cache watcher stopped")
		}
	}()
}

func (r *Runtime) load(m *modelcache.Manifest) error {
	r.cacheReady.Store(true)

	if m.Engine != "" && m.Engine != r.cfg.Engine {
		return fmt.Errorf("model cache holds %s models but engine is %s", m.Engine, r.cfg.Engine)
	}

	eng, err := r.factory(EngineConfig{
		Options:        r.cfg.Options,
		Manifest:       m,
		PaddleURL:      r.cfg.PaddleURL,
		RequestTimeout: r.cfg.PaddleTimeout,
		Log:            r.log,
	})
	if err != nil {
		return fmt.Errorf("load %s engine: %w", r.cfg.Engine, err)
	}

	r.engine.Store(&engineHolder{eng})
	r.log.WithFields(logrus.Fields{
		"engine":  eng.Name(),
		"variant": m.Variant,
		"workers": r.pool.Size(),
	}).Info("OCR engine initialized")
	return nil
}

func (r *Runtime) Ready() bool {
	return r.cacheReady.Load() && r.engine.Load() != nil
}

func (r *Runtime) Status() Status {
	s := Status{
		Engine:          r.cfg.Engine,
		ModelVariant:    r.cfg.Options.ModelVariant,
		Device:          r.cfg.Options.Device,
		ModelCacheReady: r.cacheReady.Load(),
	}
	if h := r.engine.Load(); h != nil {
		s.EngineLoaded = true
		if g, ok := h.Engine.(gpuReporter); ok {
			s.GPUAvailable = g.GPUAvailable()
		}
	}
	return s
}

func (r *Runtime) Recognize(ctx context.Context, img *entity.ResolvedImage, th entity.Thresholds) ([]entity.OCRDetection, error) {
	h := r.engine.Load()
	if h == nil || !r.cacheReady.Load() {
		return nil, response.OCRNotReady("OCR engine is not ready: model cache for variant %q is still loading", r.cfg.Options.ModelVariant)
	}

	return r.pool.Do(ctx, func(ctx context.Context) ([]entity.OCRDetection, error) {
		return h.Recognize(ctx, img, th)
	})
}

// Close stops the watcher and releases the engine.
func (r *Runtime) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()

	if h := r.engine.Swap(nil); h != nil {
		return h.Close()
	}
	return nil
}

// IsGPUDevice reports whether device names a GPU.
func IsGPUDevice(device string) bool {
	return device == "gpu" || strings.HasPrefix(device, "cuda:")
}
