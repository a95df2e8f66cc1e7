package utils

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"sync"
	"testing"

	"OCRService/pkg/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(size int64) *multipart.FileHeader {
	return &multipart.FileHeader{Filename: "scan.png", Size: size}
}

func TestNewRequestIDUniqueUnderConcurrency(t *testing.T) {
	u := New(1 << 20)

	const workers, perWorker = 16, 200
	ids := make(chan string, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- u.NewRequestID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, workers*perWorker)
	for id := range ids {
		assert.Len(t, id, 26)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestValidateImageFile(t *testing.T) {
	u := New(100)

	err := u.ValidateImageFile(nil)
	assert.Equal(t, response.CodeValidation, response.CodeOf(err))

	err = u.ValidateImageFile(fileHeader(0))
	assert.Equal(t, response.CodeValidation, response.CodeOf(err))

	err = u.ValidateImageFile(fileHeader(101))
	assert.Equal(t, response.CodeFileTooLarge, response.CodeOf(err))

	assert.NoError(t, u.ValidateImageFile(fileHeader(100)))
}

func TestOptimizeImageForOCR(t *testing.T) {
	u := New(1 << 20)
	src := image.NewRGBA(image.Rect(0, 0, 300, 100))

	out, contentType, err := u.OptimizeImageForOCR(src, "png", 150)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	_, contentType, err = u.OptimizeImageForOCR(src, "jpeg", 150)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)

	_, _, err = u.OptimizeImageForOCR(src, "png", 0)
	assert.Error(t, err)
}
