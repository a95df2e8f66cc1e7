package ocr

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"OCRService/internal/entity"
	"OCRService/pkg/modelcache"
	"OCRService/pkg/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	calls  atomic.Int32
	closed atomic.Bool
	seen   atomic.Pointer[entity.Thresholds]
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, img *entity.ResolvedImage, th entity.Thresholds) ([]entity.OCRDetection, error) {
	f.calls.Add(1)
	f.seen.Store(&th)
	return []entity.OCRDetection{{Text: string(img.Data), Confidence: 0.9}}, nil
}

func (f *fakeEngine) Close() error {
	f.closed.Store(true)
	return nil
}

func populate(t *testing.T, cache *modelcache.Cache, variant, engine string) {
	t.Helper()
	dir := cache.VariantDir(variant)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.bin"), []byte("weights"), 0o644))
	require.NoError(t, cache.WriteManifest(&modelcache.Manifest{Variant: variant, Engine: engine, Files: []string{"model.bin"}}))
}

func TestRuntimeNotReadyUntilCachePopulated(t *testing.T) {
	eng := &fakeEngine{}
	Register("fake", func(EngineConfig) (Engine, error) { return eng, nil })

	cache := modelcache.New(t.TempDir(), quietLogger())
	rt, err := NewRuntime(RuntimeConfig{
		Engine:       "fake",
		Options:      Options{Device: "cpu", ModelVariant: "mobile"},
		PollInterval: 5 * time.Millisecond,
		Workers:      1,
	}, cache, quietLogger())
	require.NoError(t, err)

	rt.Start(context.Background())
	defer rt.Close()

	assert.False(t, rt.Ready())
	_, err = rt.Recognize(context.Background(), &entity.ResolvedImage{Data: []byte("x")}, entity.Thresholds{})
	assert.Equal(t, response.CodeOCREngine, response.CodeOf(err))
	assert.Equal(t, 503, response.StatusOf(err))
	assert.Zero(t, eng.calls.Load())

	populate(t, cache, "mobile", "fake")
	require.Eventually(t, rt.Ready, time.Second, 5*time.Millisecond)

	th := entity.Thresholds{Detection: 0.4, Recognition: 0.6}
	dets, err := rt.Recognize(context.Background(), &entity.ResolvedImage{Data: []byte("hello")}, th)
	require.NoError(t, err)
	assert.Equal(t, "hello", dets[0].Text)
	assert.Equal(t, th, *eng.seen.Load())

	status := rt.Status()
	assert.True(t, status.ModelCacheReady)
	assert.True(t, status.EngineLoaded)
	assert.False(t, status.GPUAvailable)
	assert.Equal(t, "mobile", status.ModelVariant)

	require.NoError(t, rt.Close())
	assert.True(t, eng.closed.Load())
	assert.False(t, rt.Ready())
}

func TestRuntimeRejectsMismatchedManifest(t *testing.T) {
	Register("fake-mismatch", func(EngineConfig) (Engine, error) { return &fakeEngine{}, nil })

	cache := modelcache.New(t.TempDir(), quietLogger())
	populate(t, cache, "server", "paddle")

	rt, err := NewRuntime(RuntimeConfig{
		Engine:       "fake-mismatch",
		Options:      Options{ModelVariant: "server"},
		PollInterval: 5 * time.Millisecond,
	}, cache, quietLogger())
	require.NoError(t, err)

	rt.Start(context.Background())
	defer rt.Close()

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rt.Status().ModelCacheReady)
	assert.False(t, rt.Ready())
}

func TestNewRuntimeUnknownEngine(t *testing.T) {
	_, err := NewRuntime(RuntimeConfig{Engine: "nope"}, modelcache.New(t.TempDir(), quietLogger()), quietLogger())
	assert.Error(t, err)
}

func TestIsGPUDevice(t *testing.T) {
	assert.True(t, IsGPUDevice("gpu"))
	assert.True(t, IsGPUDevice("cuda:0"))
	assert.False(t, IsGPUDevice("cpu"))
}
