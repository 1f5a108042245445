// Package observability exposes Prometheus metrics for the capture and
// streaming pipeline.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all registered collectors. A nil *Metrics is safe to use
// and records nothing.
type Metrics struct {
	framesIngested    *prometheus.CounterVec
	framesDropped     prometheus.Counter
	modeSwitches      prometheus.Counter
	motionEvents      prometheus.Counter
	snapshotsWritten  prometheus.Counter
	recordingsStarted prometheus.Counter
	streamClients     prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMetrics registers and returns the collector set.
func NewMetrics() *Metrics {
	m := &Metrics{
		framesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinectcam_frames_ingested_total",
			Help: "Total sensor frames ingested, by stream.",
		}, []string{"stream"}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kinectcam_frames_dropped_total",
			Help: "Total color frames dropped mid format switch.",
		}),
		modeSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kinectcam_mode_switches_total",
			Help: "Total day/night render mode switches.",
		}),
		motionEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kinectcam_motion_events_total",
			Help: "Total motion events fired by the depth detector.",
		}),
		snapshotsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kinectcam_snapshots_written_total",
			Help: "Total snapshot files written.",
		}),
		recordingsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kinectcam_recordings_started_total",
			Help: "Total audio recordings started.",
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kinectcam_stream_clients",
			Help: "Currently connected live-stream clients.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinectcam_http_requests_total",
			Help: "Total HTTP requests processed, by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kinectcam_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	prometheus.MustRegister(
		m.framesIngested,
		m.framesDropped,
		m.modeSwitches,
		m.motionEvents,
		m.snapshotsWritten,
		m.recordingsStarted,
		m.streamClients,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) FrameIngested(stream string) {
	if m == nil {
		return
	}
	m.framesIngested.WithLabelValues(stream).Inc()
}

func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.framesDropped.Inc()
}

func (m *Metrics) ModeSwitch() {
	if m == nil {
		return
	}
	m.modeSwitches.Inc()
}

func (m *Metrics) MotionEvent() {
	if m == nil {
		return
	}
	m.motionEvents.Inc()
}

func (m *Metrics) SnapshotWritten() {
	if m == nil {
		return
	}
	m.snapshotsWritten.Inc()
}

func (m *Metrics) RecordingStarted() {
	if m == nil {
		return
	}
	m.recordingsStarted.Inc()
}

func (m *Metrics) StreamClientConnected() {
	if m == nil {
		return
	}
	m.streamClients.Inc()
}

func (m *Metrics) StreamClientDisconnected() {
	if m == nil {
		return
	}
	m.streamClients.Dec()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming handlers working behind the wrapper.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// WrapHandler records request count and duration for a route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
