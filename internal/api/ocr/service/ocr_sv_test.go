package ocrService

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"OCRService/internal/entity"
	"OCRService/pkg/ocr"
	"OCRService/pkg/response"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	img *entity.ResolvedImage
	err error
}

func (f *fakeResolver) Resolve(context.Context, entity.ImageRequest) (*entity.ResolvedImage, error) {
	return f.img, f.err
}

type fakeRuntime struct {
	calls int
	seen  entity.Thresholds
	dets  []entity.OCRDetection
	err   error
}

func (f *fakeRuntime) Ready() bool        { return true }
func (f *fakeRuntime) Status() ocr.Status { return ocr.Status{} }

func (f *fakeRuntime) Recognize(_ context.Context, _ *entity.ResolvedImage, th entity.Thresholds) ([]entity.OCRDetection, error) {
	f.calls++
	f.seen = th
	return f.dets, f.err
}

type fakeCache struct {
	store   map[string][]entity.OCRDetection
	getErr  error
	setKeys []string
}

func (f *fakeCache) GetResult(_ context.Context, key string) ([]entity.OCRDetection, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	d, ok := f.store[key]
	return d, ok, nil
}

func (f *fakeCache) SetResult(_ context.Context, key string, d []entity.OCRDetection, _ time.Duration) error {
	f.store[key] = d
	f.setKeys = append(f.setKeys, key)
	return nil
}

func (f *fakeCache) Close() error { return nil }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var testImage = &entity.ResolvedImage{Data: []byte("png"), ByteLength: 3, ContentType: "image/png"}

func TestProcess(t *testing.T) {
	rt := &fakeRuntime{dets: []entity.OCRDetection{{Text: "a"}, {Text: "b"}}}
	s := NewOCRService(quietLogger(), &fakeResolver{img: testImage}, rt, nil, Config{Engine: "paddle"})

	result, err := s.Process(context.Background(), entity.ImageRequest{Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "a\nb", result.Text)
	assert.Equal(t, 2, result.NumDetections)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, 0.0)
	assert.Equal(t, 1, rt.calls)
}

func TestProcessResolveFailureSkipsEngine(t *testing.T) {
	rt := &fakeRuntime{}
	want := response.FileTooLarge("too big")
	s := NewOCRService(quietLogger(), &fakeResolver{err: want}, rt, nil, Config{})

	_, err := s.Process(context.Background(), entity.ImageRequest{Data: []byte("x")})
	assert.Same(t, want, err)
	assert.Zero(t, rt.calls)
}

func TestProcessEngineErrorSurfaced(t *testing.T) {
	rt := &fakeRuntime{err: response.OCREngine("engine crashed")}
	s := NewOCRService(quietLogger(), &fakeResolver{img: testImage}, rt, nil, Config{})

	_, err := s.Process(context.Background(), entity.ImageRequest{Data: []byte("x")})
	assert.Equal(t, response.CodeOCREngine, response.CodeOf(err))
}

func TestProcessCacheHitSkipsEngine(t *testing.T) {
	rt := &fakeRuntime{dets: []entity.OCRDetection{{Text: "fresh"}}}
	cache := &fakeCache{store: map[string][]entity.OCRDetection{}}
	s := NewOCRService(quietLogger(), &fakeResolver{img: testImage}, rt, cache, Config{Engine: "paddle", Options: ocr.Options{ModelVariant: "server"}})

	first, err := s.Process(context.Background(), entity.ImageRequest{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "fresh", first.Text)
	require.Len(t, cache.setKeys, 1)

	second, err := s.Process(context.Background(), entity.ImageRequest{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.Text)
	assert.Equal(t, 1, rt.calls)
}

func TestProcessCacheErrorFallsBackToEngine(t *testing.T) {
	rt := &fakeRuntime{dets: []entity.OCRDetection{{Text: "ok"}}}
	cache := &fakeCache{store: map[string][]entity.OCRDetection{}, getErr: errors.New("redis down")}
	s := NewOCRService(quietLogger(), &fakeResolver{img: testImage}, rt, cache, Config{})

	result, err := s.Process(context.Background(), entity.ImageRequest{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, 1, rt.calls)
}

func TestProcessThresholds(t *testing.T) {
	defaults := entity.Thresholds{Detection: 0.3, Recognition: 0.7}
	det, rec := 0.5, 0.0

	tests := []struct {
		name string
		req  entity.ImageRequest
		want entity.Thresholds
	}{
		{"configured defaults", entity.ImageRequest{Data: []byte("x")}, defaults},
		{"detection override", entity.ImageRequest{Data: []byte("x"), DetThresh: &det}, entity.Thresholds{Detection: 0.5, Recognition: 0.7}},
		{"zero recognition override", entity.ImageRequest{Data: []byte("x"), RecThresh: &rec}, entity.Thresholds{Detection: 0.3, Recognition: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &fakeRuntime{}
			s := NewOCRService(quietLogger(), &fakeResolver{img: testImage}, rt, nil, Config{Thresholds: defaults})

			_, err := s.Process(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rt.seen)
		})
	}
}

func TestProcessCacheKeyDependsOnThresholds(t *testing.T) {
	rt := &fakeRuntime{dets: []entity.OCRDetection{{Text: "x"}}}
	cache := &fakeCache{store: map[string][]entity.OCRDetection{}}
	s := NewOCRService(quietLogger(), &fakeResolver{img: testImage}, rt, cache, Config{Thresholds: entity.Thresholds{Recognition: 0.7}})

	strict := 0.95
	_, err := s.Process(context.Background(), entity.ImageRequest{Data: []byte("x")})
	require.NoError(t, err)
	_, err = s.Process(context.Background(), entity.ImageRequest{Data: []byte("x"), RecThresh: &strict})
	require.NoError(t, err)

	assert.Equal(t, 2, rt.calls)
	require.Len(t, cache.setKeys, 2)
	assert.NotEqual(t, cache.setKeys[0], cache.setKeys[1])
}
