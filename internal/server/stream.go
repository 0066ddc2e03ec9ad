package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/pinchview/internal/log"
)

// DefaultStreamInterval paces the MJPEG stream at about 15 FPS.
const DefaultStreamInterval = 66 * time.Millisecond

// SnapshotSource encodes the current canvas as a JPEG.
type SnapshotSource interface {
	Snapshot(mirror bool) ([]byte, error)
}

// StreamHandler serves the overlay canvas as MJPEG.
type StreamHandler struct {
	source   SnapshotSource
	mirror   func() bool
	interval time.Duration
	logger   log.Logger
}

// NewStreamHandler streams source, flipped whenever mirror reports true.
func NewStreamHandler(source SnapshotSource, mirror func() bool) *StreamHandler {
	if mirror == nil {
		mirror = func() bool { return false }
	}
	return &StreamHandler{
		source:   source,
		mirror:   mirror,
		interval: DefaultStreamInterval,
		logger:   log.NewNop(),
	}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		data, err := h.source.Snapshot(h.mirror())
		if err != nil {
			h.logger.Debugf("skip stream frame: %v", err)
		} else {
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
			if _, err := w.Write(data); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
