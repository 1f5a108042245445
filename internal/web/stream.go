package web

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log/slog"
	"net/http"
	"time"
)

const streamBoundary = "kinectcamframe"

// handleStream serves the multipart live stream. Each client runs its own
// clone/encode loop: the frame cell is read without holding any lock during
// encoding, and N clients cost N encodes per interval — bounded memory at
// the cost of CPU under many viewers.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")

	s.clientConnected()
	defer s.clientDisconnected()

	slog.Info("stream client connected", "remote", r.RemoteAddr, "clients", s.ClientCount())
	defer slog.Info("stream client disconnected", "remote", r.RemoteAddr)

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	var buf bytes.Buffer
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame := s.frames.Latest()
		if frame == nil {
			continue
		}

		buf.Reset()
		quality := s.settings.Get().JPEGQuality
		if err := jpeg.Encode(&buf, frame.Img, &jpeg.Options{Quality: quality}); err != nil {
			slog.Warn("stream encode failed", "error", err)
			continue
		}

		// client disconnects surface as write errors and are expected
		if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
			streamBoundary, buf.Len()); err != nil {
			return
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return
		}
		if _, err := fmt.Fprint(w, "\r\n"); err != nil {
			return
		}
		flusher.Flush()
	}
}

// handleStill returns exactly one image, or 503 before the first frame.
func (s *Server) handleStill(w http.ResponseWriter, r *http.Request) {
	frame := s.frames.Latest()
	if frame == nil {
		http.Error(w, "no frame available yet", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	quality := s.settings.Get().JPEGQuality
	if err := jpeg.Encode(&buf, frame.Img, &jpeg.Options{Quality: quality}); err != nil {
		slog.Warn("still encode failed", "error", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.Header().Set("Cache-Control", "no-cache, no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		// expected on client disconnect
		return
	}
}
