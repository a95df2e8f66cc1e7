package modelcache

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type memStore struct {
	objects map[string][]byte
	fail    string
}

func (s *memStore) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range s.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *memStore) Download(_ context.Context, key, dest string) error {
	if key == s.fail {
		return errors.New("boom")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, s.objects[key], 0o644)
}

func TestLoadMissingManifest(t *testing.T) {
	c := New(t.TempDir(), quietLogger())

	_, err := c.Load("server")
	assert.ErrorIs(t, err, ErrNotPopulated)
}

func TestPopulateThenLoad(t *testing.T) {
	c := New(t.TempDir(), quietLogger())
	store := &memStore{objects: map[string][]byte{
		"models/server/det/inference.json":      []byte("{}"),
		"models/server/rec/inference.pdiparams": []byte("weights"),
		"models/mobile/det/inference.json":      []byte("{}"),
	}}

	m, err := c.Populate(context.Background(), store, PopulateRequest{Variant: "server", Engine: "paddle", Prefix: "/models/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"det/inference.json", "rec/inference.pdiparams"}, m.Files)
	assert.Equal(t, "PP-OCRv5_server_det", m.DetectionModel)

	loaded, err := c.Load("server")
	require.NoError(t, err)
	assert.Equal(t, m.Files, loaded.Files)
	assert.Equal(t, "paddle", loaded.Engine)
	assert.FileExists(t, loaded.Path("rec/inference.pdiparams"))
}

func TestPopulateFailureLeavesCacheNotReady(t *testing.T) {
	c := New(t.TempDir(), quietLogger())
	store := &memStore{
		objects: map[string][]byte{
			"server/a.bin": []byte("a"),
			"server/b.bin": []byte("b"),
		},
		fail: "server/b.bin",
	}

	_, err := c.Populate(context.Background(), store, PopulateRequest{Variant: "server", Engine: "paddle"})
	require.Error(t, err)

	_, err = c.Load("server")
	assert.ErrorIs(t, err, ErrNotPopulated)
}

func TestPopulateUnknownVariant(t *testing.T) {
	c := New(t.TempDir(), quietLogger())

	_, err := c.Populate(context.Background(), &memStore{}, PopulateRequest{Variant: "huge"})
	assert.Error(t, err)
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	c := New(t.TempDir(), quietLogger())
	require.NoError(t, c.WriteManifest(&Manifest{Variant: "mobile", Engine: "tesseract", Files: []string{"eng.traineddata"}}))
	require.NoError(t, os.WriteFile(filepath.Join(c.VariantDir("mobile"), "eng.traineddata"), nil, 0o644))

	_, err := c.Load("mobile")
	assert.ErrorIs(t, err, ErrNotPopulated)
}

func TestLoadRejectsEscapingPath(t *testing.T) {
	c := New(t.TempDir(), quietLogger())
	require.NoError(t, c.WriteManifest(&Manifest{Variant: "server", Files: []string{"../outside"}}))

	_, err := c.Load("server")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotPopulated)
}

func TestWatchWaitsForPopulation(t *testing.T) {
	c := New(t.TempDir(), quietLogger())
	var calls atomic.Int32

	go func() {
		time.Sleep(30 * time.Millisecond)
		dir := c.VariantDir("server")
		_ = os.MkdirAll(dir, 0o755)
		_ = os.WriteFile(filepath.Join(dir, "model.bin"), []byte("x"), 0o644)
		_ = c.WriteManifest(&Manifest{Variant: "server", Engine: "paddle", Files: []string{"model.bin"}})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Watch(ctx, "server", 10*time.Millisecond, func(m *Manifest) error {
		calls.Add(1)
		assert.Equal(t, "paddle", m.Engine)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatchRetriesRejectedManifest(t *testing.T) {
	c := New(t.TempDir(), quietLogger())
	dir := c.VariantDir("server")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.bin"), []byte("x"), 0o644))
	require.NoError(t, c.WriteManifest(&Manifest{Variant: "server", Files: []string{"model.bin"}}))

	var calls atomic.Int32
	err := c.Watch(context.Background(), "server", time.Millisecond, func(*Manifest) error {
		if calls.Add(1) < 3 {
			return errors.New("engine not reachable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWatchStopsOnCancel(t *testing.T) {
	c := New(t.TempDir(), quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Watch(ctx, "server", 5*time.Millisecond, func(*Manifest) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
