// Package motion detects transient scene changes from raw depth frames
// against a slowly adapting per-pixel background model.
package motion

import (
	"math"
	"sync"
	"time"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

// Config contains detection tuning.
type Config struct {
	// DeltaMM is the per-pixel deviation that flags a pixel as changed
	DeltaMM int
	// ChangedPixels is the per-frame flagged-pixel count that fires an event
	ChangedPixels int
	// Alpha is the background EMA learning rate
	Alpha float64
	// MaxDepthMM discards readings beyond the sensor's reliable range
	MaxDepthMM int
}

// Event is emitted when a depth frame crosses the motion threshold.
type Event struct {
	Timestamp     time.Time
	ChangedPixels int
}

// Detector maintains the background depth model. Process is called from the
// depth ingestion goroutine only; LastMotion may be read from anywhere.
type Detector struct {
	cfg Config

	// background holds one EMA estimate per depth pixel; 0 = uninitialized.
	// Accessed only from the Process goroutine.
	background []float64
	width      int
	height     int

	mu         sync.RWMutex
	lastMotion time.Time
	events     uint64
	frames     uint64
}

// NewDetector creates a detector with the given tuning.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Process evaluates one depth frame. It returns a motion event and true when
// the count of changed pixels exceeds the configured threshold. The
// background model is updated for every valid pixel regardless of whether it
// was flagged, so long-lived changes are slowly absorbed.
func (d *Detector) Process(f types.DepthFrame) (Event, bool) {
	// a geometry change invalidates the model even when the pixel count
	// happens to match
	if f.Width != d.width || f.Height != d.height || d.background == nil {
		d.reset(f.Width, f.Height)
	}
	if len(f.Data) != d.width*d.height {
		return Event{}, false
	}

	changed := 0
	for i, raw := range f.Data {
		depth := types.DepthMM(raw)
		if depth == 0 || depth > d.cfg.MaxDepthMM {
			continue
		}

		bg := d.background[i]
		if bg == 0 {
			// seed from the first valid reading at this pixel
			d.background[i] = float64(depth)
			continue
		}

		if math.Abs(float64(depth)-bg) > float64(d.cfg.DeltaMM) {
			changed++
		}
		d.background[i] = bg + d.cfg.Alpha*(float64(depth)-bg)
	}

	d.mu.Lock()
	d.frames++
	fired := changed > d.cfg.ChangedPixels
	if fired {
		d.lastMotion = f.Timestamp
		d.events++
	}
	d.mu.Unlock()

	if !fired {
		return Event{}, false
	}
	return Event{Timestamp: f.Timestamp, ChangedPixels: changed}, true
}

// LastMotion returns the timestamp of the most recent motion event, or the
// zero time if none fired yet.
func (d *Detector) LastMotion() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastMotion
}

// Background returns the model estimate for a pixel, for inspection.
func (d *Detector) Background(x, y int) float64 {
	if d.background == nil || x < 0 || y < 0 || x >= d.width || y >= d.height {
		return 0
	}
	return d.background[y*d.width+x]
}

// Stats contains detector statistics
type Stats struct {
	FramesProcessed uint64
	EventsFired     uint64
	LastMotion      time.Time
}

// Stats returns a snapshot of detector statistics.
func (d *Detector) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		FramesProcessed: d.frames,
		EventsFired:     d.events,
		LastMotion:      d.lastMotion,
	}
}

func (d *Detector) reset(width, height int) {
	d.width = width
	d.height = height
	d.background = make([]float64, width*height)
}
