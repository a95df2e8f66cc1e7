package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"OCRService/internal/entity"
	"OCRService/pkg/response"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type RecognizeFunc func(ctx context.Context) ([]entity.OCRDetection, error)

// Pool bounds how many engine calls run at once. A slot is held until the
// engine call returns, even when the caller stopped waiting for it.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	timeout  time.Duration
	inFlight atomic.Int64
	log      *logrus.Logger
}

func NewPool(size int, timeout time.Duration, log *logrus.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(size)),
		size:    size,
		timeout: timeout,
		log:     log,
	}
}

func (p *Pool) Size() int {
	return p.size
}

// InFlight reports engine calls currently holding a slot.
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

type outcome struct {
	detections []entity.OCRDetection
	err        error
}

// Do waits for a slot and runs fn in it. Waiting is cancelled by ctx; once fn
// starts, only the pool timeout stops the caller from waiting on it.
func (p *Pool) Do(ctx context.Context, fn RecognizeFunc) ([]entity.OCRDetection, error) {
	var deadline <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	acquireCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, response.OCREngine("no OCR worker became free within %s", p.timeout)
	}

	done := make(chan outcome, 1)
	go func() {
		p.inFlight.Add(1)
		defer func() {
			p.inFlight.Add(-1)
			p.sem.Release(1)
		}()
		defer func() {
			if r := recover(); r != nil {
				p.log.WithFields(logrus.Fields{
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				}).Error("OCR engine panicked")
				done <- outcome{err: response.OCREngine("OCR engine crashed: %v", r)}
			}
		}()

		dets, err := fn(context.WithoutCancel(ctx))
		done <- outcome{detections: dets, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, engineError(out.err)
		}
		return out.detections, nil
	case <-deadline:
		return nil, response.OCREngine("OCR timed out after %s", p.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func engineError(err error) error {
	var re *response.Error
	if errors.As(err, &re) {
		return err
	}
	return response.Wrap(response.CodeOCREngine, http.StatusInternalServerError, fmt.Errorf("OCR processing failed: %w", err))
}
