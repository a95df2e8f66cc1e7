package ocrHandler

import (
	"context"
	"io"
	"time"

	ocrApi "OCRService/internal/api/ocr"
	"OCRService/internal/entity"
	contextPkg "OCRService/pkg/context"

	"github.com/gofiber/websocket/v2"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
)

type wsFrame struct {
	messageType int
	data        []byte
}

// handleWebSocket runs OCR on every binary frame and replies with one JSON
// body per frame. Each frame gets its own request id. Frames are read on a
// separate goroutine so a client that goes away cancels the frame in flight.
func (h *OCRHandler) handleWebSocket(c *websocket.Conn) {
	h.log.Info("OCR WebSocket client connected")
	defer h.log.Info("OCR WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan wsFrame)

	// The connection is released when this handler returns, so the reader
	// must have stopped by then.
	defer func() {
		cancel()
		_ = c.SetReadDeadline(time.Now())
		for range frames {
		}
	}()

	if err := c.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
		h.log.Errorf("Error setting read deadline: %v", err)
		close(frames)
		return
	}
	go h.readFrames(c, frames, cancel)

	for frame := range frames {
		// The idle timeout does not run while a frame is being processed.
		if err := c.SetReadDeadline(time.Time{}); err != nil {
			h.log.Errorf("Error clearing read deadline: %v", err)
			return
		}

		requestID := h.utils.NewRequestID()
		reply := h.processFrame(ctx, requestID, frame)

		if ctx.Err() != nil {
			h.log.WithField("request_id", requestID).Info("OCR WebSocket client left before the reply was sent")
			return
		}

		if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			return
		}
		if err := c.WriteJSON(reply); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			return
		}

		if err := c.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			return
		}
	}
}

// readFrames reads at most maxFileSize+1 bytes of each frame and discards the
// rest, so an oversized frame still gets a FILE_TOO_LARGE reply instead of
// closing the socket. It cancels the connection context when reading fails.
func (h *OCRHandler) readFrames(c *websocket.Conn, frames chan<- wsFrame, cancel context.CancelFunc) {
	defer close(frames)
	defer cancel()

	for {
		messageType, r, err := c.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Errorf("OCR WebSocket error: %v", err)
			} else {
				h.log.Info("OCR WebSocket connection closed")
			}
			return
		}

		data, err := io.ReadAll(io.LimitReader(r, h.maxFileSize+1))
		if err == nil {
			_, err = io.Copy(io.Discard, r)
		}
		if err != nil {
			h.log.Errorf("Error reading OCR WebSocket frame: %v", err)
			return
		}

		frames <- wsFrame{messageType: messageType, data: data}
	}
}

func (h *OCRHandler) processFrame(ctx context.Context, requestID string, frame wsFrame) interface{} {
	if frame.messageType != websocket.BinaryMessage {
		h.log.Warnf("Received unexpected message type: %d", frame.messageType)
		return ocrApi.Failure(ocrApi.ErrTextFrame, requestID)
	}

	result, err := h.ocrService.Process(contextPkg.WithRequestID(ctx, requestID), entity.ImageRequest{Data: frame.data})
	if err != nil {
		h.log.WithField("request_id", requestID).Warnf("Error processing frame: %v", err)
		return ocrApi.Failure(err, requestID)
	}
	return ocrApi.Success(result, requestID)
}
