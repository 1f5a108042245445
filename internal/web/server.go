// Package web serves the live stream, capture media and the control surface
// over HTTP.
package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"github.com/AceArd86/kinect-ip-cam/internal/capture"
	"github.com/AceArd86/kinect-ip-cam/internal/device"
	"github.com/AceArd86/kinect-ip-cam/internal/framecell"
	"github.com/AceArd86/kinect-ip-cam/internal/motion"
	"github.com/AceArd86/kinect-ip-cam/internal/observability"
	"github.com/AceArd86/kinect-ip-cam/internal/settings"
)

// HealthFunc reports the service health document for /healthz.
type HealthFunc func() any

// Server exposes the HTTP surface. All handlers are safe for arbitrary
// concurrency; streaming clients each get their own encode loop.
type Server struct {
	frames   *framecell.FrameCell
	settings *settings.Settings
	capture  *capture.Manager
	tilt     *device.Tilt
	detector *motion.Detector
	metrics  *observability.Metrics
	health   HealthFunc

	fs       afero.Fs
	mediaDir string

	// streamInterval is the delay between multipart parts per client
	streamInterval time.Duration

	mu      sync.RWMutex
	clients int
}

// Config wires the server's collaborators.
type Config struct {
	Frames         *framecell.FrameCell
	Settings       *settings.Settings
	Capture        *capture.Manager
	Tilt           *device.Tilt
	Detector       *motion.Detector
	Metrics        *observability.Metrics
	Health         HealthFunc
	FS             afero.Fs
	MediaDir       string
	StreamInterval time.Duration
}

// NewServer creates the HTTP server component.
func NewServer(cfg Config) *Server {
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 100 * time.Millisecond
	}
	return &Server{
		frames:         cfg.Frames,
		settings:       cfg.Settings,
		capture:        cfg.Capture,
		tilt:           cfg.Tilt,
		detector:       cfg.Detector,
		metrics:        cfg.Metrics,
		health:         cfg.Health,
		fs:             cfg.FS,
		mediaDir:       cfg.MediaDir,
		streamInterval: cfg.StreamInterval,
	}
}

// Router builds the request router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/stream", s.metrics.WrapHandler("stream", http.HandlerFunc(s.handleStream))).Methods("GET")
	r.Handle("/still.jpg", s.metrics.WrapHandler("still", http.HandlerFunc(s.handleStill))).Methods("GET")
	r.Handle("/api/status", s.metrics.WrapHandler("status", http.HandlerFunc(s.handleStatus))).Methods("GET")
	r.Handle("/audio/last", s.metrics.WrapHandler("audio_last", http.HandlerFunc(s.handleLastAudio))).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler())

	media := http.FileServer(afero.NewHttpFs(s.fs).Dir(s.mediaDir))
	r.PathPrefix("/media/").Handler(http.StripPrefix("/media/", media))

	return r
}

// ClientCount reports the number of connected live-stream clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients
}

func (s *Server) clientConnected() {
	s.mu.Lock()
	s.clients++
	s.mu.Unlock()
	s.metrics.StreamClientConnected()
}

func (s *Server) clientDisconnected() {
	s.mu.Lock()
	s.clients--
	s.mu.Unlock()
	s.metrics.StreamClientDisconnected()
}
