package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/phrack/ShootOFF-sub002/internal/app"
)

// FrameSource provides the latest encoded frame of a camera.
type FrameSource interface {
	LatestJPEG(camera string) ([]byte, error)
}

// StreamHandler serves MJPEG frames from a camera's pipeline.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler streaming at about 15 FPS.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames, interval: 66 * time.Millisecond}
}

// ServeHTTP streams MJPEG frames of ?camera= to the client until it
// disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	camera := r.URL.Query().Get("camera")
	if _, err := h.frames.LatestJPEG(camera); errors.Is(err, app.ErrUnknownCamera) {
		http.Error(w, "Unknown camera", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		jpg, err := h.frames.LatestJPEG(camera)
		if errors.Is(err, app.ErrUnknownCamera) {
			return
		}
		// Skip until the camera has a frame, and skip repeats.
		if err != nil || sameFrame(jpg, last) {
			continue
		}
		last = jpg

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpg))
		if _, err := w.Write(jpg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// sameFrame reports whether a and b share a backing array. The pipeline
// allocates a new buffer per frame.
func sameFrame(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}
