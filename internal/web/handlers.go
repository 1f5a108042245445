package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

// statusResponse is the JSON document served by /api/status.
type statusResponse struct {
	Mode           string `json:"mode"`
	AutoNight      bool   `json:"auto"`
	Tint           string `json:"tint"`
	Smoothing      bool   `json:"smooth"`
	JPEGQuality    int    `json:"jpeg"`
	NightThreshold int    `json:"night"`
	DayThreshold   int    `json:"day"`
	LastSnapshot   string `json:"lastSnapshot"`
	LastRecording  string `json:"lastRecording"`
	Recording      bool   `json:"recording"`
	TiltAngle      int    `json:"tilt"`
	LastMotion     string `json:"lastMotion,omitempty"`
}

// handleStatus applies any recognized command query parameters, then reports
// the resulting state. Malformed or out-of-range values are silently ignored
// so the control surface stays available: the previous setting simply wins.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.applyCommands(r)

	snap := s.settings.Get()
	tint := "gray"
	if snap.TintGreen {
		tint = "green"
	}

	resp := statusResponse{
		Mode:           snap.Mode.String(),
		AutoNight:      snap.AutoNight,
		Tint:           tint,
		Smoothing:      snap.Smoothing,
		JPEGQuality:    snap.JPEGQuality,
		NightThreshold: snap.NightThreshold,
		DayThreshold:   snap.DayThreshold,
		LastSnapshot:   s.capture.LastSnapshot(),
		LastRecording:  s.capture.LastRecording(),
		Recording:      s.capture.Recording(),
		TiltAngle:      s.tilt.Angle(),
	}
	if last := s.detector.LastMotion(); !last.IsZero() {
		resp.LastMotion = last.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Debug("status write failed", "error", err)
	}
}

func (s *Server) applyCommands(r *http.Request) {
	q := r.URL.Query()

	if v := q.Get("mode"); v != "" {
		switch v {
		case "rgb":
			s.settings.SetModeManual(types.FormatColor)
		case "ir":
			s.settings.SetModeManual(types.FormatInfrared)
		}
	}

	if v := q.Get("auto"); v != "" {
		switch v {
		case "toggle":
			s.settings.ToggleAutoNight()
		case "true":
			s.settings.SetAutoNight(true)
		case "false":
			s.settings.SetAutoNight(false)
		}
	}

	if v := q.Get("tint"); v != "" {
		switch v {
		case "toggle":
			s.settings.ToggleTintGreen()
		case "green":
			s.settings.SetTintGreen(true)
		case "gray":
			s.settings.SetTintGreen(false)
		}
	}

	if v := q.Get("smooth"); v != "" {
		switch v {
		case "toggle":
			s.settings.ToggleSmoothing()
		case "true":
			s.settings.SetSmoothing(true)
		case "false":
			s.settings.SetSmoothing(false)
		}
	}

	if v := q.Get("jpeg"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 10 && n <= 100 {
			s.settings.SetJPEGQuality(n)
		}
	}

	if v := q.Get("night"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 100 {
			s.settings.SetNightThreshold(n)
		}
	}

	if v := q.Get("day"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 100 {
			s.settings.SetDayThreshold(n)
		}
	}

	if q.Get("snap") == "1" {
		if _, err := s.capture.Snapshot(); err != nil {
			slog.Warn("manual snapshot failed", "error", err)
		}
	}

	if v := q.Get("record"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 30 {
			s.capture.StartRecording(time.Duration(n) * time.Second)
		}
	}

	if v := q.Get("tilt"); v != "" {
		s.tilt.Command(v)
	}

	if v := q.Get("tiltAbs"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.tilt.Absolute(n)
		}
	}
}

// handleLastAudio serves the most recent finished recording.
func (s *Server) handleLastAudio(w http.ResponseWriter, r *http.Request) {
	path := s.capture.LastRecording()
	if path == "" {
		http.Error(w, "no recording available", http.StatusNotFound)
		return
	}

	f, err := s.fs.Open(path)
	if err != nil {
		slog.Warn("failed to open recording", "path", path, "error", err)
		http.Error(w, "recording unavailable", http.StatusNotFound)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		http.Error(w, "recording unavailable", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, filepath.Base(path), fi.ModTime(), f)
}

// handleHealth serves the health document.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.health()); err != nil {
		slog.Debug("health write failed", "error", err)
	}
}
