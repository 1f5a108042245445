// Package ingest drives the per-frame pipeline: day/night mode decisions,
// pixel conversion, overlay composition and publication of the latest
// rendered frame.
package ingest

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/AceArd86/kinect-ip-cam/internal/framecell"
	"github.com/AceArd86/kinect-ip-cam/internal/render"
	"github.com/AceArd86/kinect-ip-cam/internal/sensor"
	"github.com/AceArd86/kinect-ip-cam/internal/settings"
	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

// motionLabelWindow is how long after a motion event the overlay keeps the
// MOTION flag up.
const motionLabelWindow = 3 * time.Second

// Result describes what the pipeline did with a frame.
type Result int

const (
	// ResultPublished means the frame was rendered and published
	ResultPublished Result = iota
	// ResultSwitched means the frame triggered a format switch and was dropped
	ResultSwitched
	// ResultDropped means the frame arrived mid-switch and was dropped
	ResultDropped
)

// Pipeline processes color-stream frames. Process is called from the color
// ingestion goroutine only.
type Pipeline struct {
	sensor   sensor.Sensor
	settings *settings.Settings
	frames   *framecell.FrameCell
	skels    *framecell.SkeletonCell

	// LastMotion reports the most recent motion event for overlay labeling.
	lastMotion func() time.Time

	mu         sync.RWMutex
	processed  uint64
	switches   uint64
	dropped    uint64
	lastLuma   int
}

// New creates the pipeline. lastMotion may be nil when no motion detector is
// wired (the overlay then never shows the MOTION flag).
func New(s sensor.Sensor, st *settings.Settings, frames *framecell.FrameCell, skels *framecell.SkeletonCell, lastMotion func() time.Time) *Pipeline {
	if lastMotion == nil {
		lastMotion = func() time.Time { return time.Time{} }
	}
	return &Pipeline{
		sensor:     s,
		settings:   st,
		frames:     frames,
		skels:      skels,
		lastMotion: lastMotion,
	}
}

// Process runs one frame through mode decision, conversion, overlay and
// publication. A frame that triggers or straddles a format switch is dropped;
// no frame is ever processed twice.
func (p *Pipeline) Process(f types.ColorFrame) (Result, error) {
	snap := p.settings.Get()

	// A frame whose format disagrees with the requested mode either arrived
	// mid-switch or follows an explicit mode command; reconfigure the sensor
	// if needed and drop the frame either way.
	if f.Format != snap.Mode {
		if err := p.sensor.SetColorFormat(snap.Mode); err != nil {
			slog.Warn("stream format switch failed", "target", snap.Mode.String(), "error", err)
		}
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		return ResultDropped, nil
	}

	// reject truncated payloads before any pixel pass touches Data
	if err := validateFrame(f); err != nil {
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		return ResultDropped, err
	}

	luma := averageLuma(f)
	p.mu.Lock()
	p.lastLuma = luma
	p.mu.Unlock()

	if target, switching := p.modeDecision(snap, f.Format, luma); switching {
		if err := p.switchFormat(target, luma); err != nil {
			// transient hardware error: drop the command, keep running
			slog.Warn("stream format switch failed", "target", target.String(), "error", err)
			return ResultSwitched, err
		}
		return ResultSwitched, nil
	}

	img := p.convert(f, snap)
	p.compose(img, f, snap)

	p.frames.Publish(&types.RenderedFrame{
		Seq:       f.Seq,
		Timestamp: f.Timestamp,
		Img:       img,
		Format:    f.Format,
	})

	p.mu.Lock()
	p.processed++
	p.mu.Unlock()
	return ResultPublished, nil
}

// modeDecision applies the hysteresis band: switch to infrared below the
// night threshold, back to color above the strictly higher day threshold.
func (p *Pipeline) modeDecision(snap settings.Snapshot, current types.StreamFormat, luma int) (types.StreamFormat, bool) {
	if !snap.AutoNight {
		return current, false
	}
	switch current {
	case types.FormatColor:
		if luma < snap.NightThreshold {
			return types.FormatInfrared, true
		}
	case types.FormatInfrared:
		if luma > snap.DayThreshold {
			return types.FormatColor, true
		}
	}
	return current, false
}

// switchFormat reconfigures the sensor stream and records the new mode.
func (p *Pipeline) switchFormat(target types.StreamFormat, luma int) error {
	if err := p.sensor.SetColorFormat(target); err != nil {
		return fmt.Errorf("failed to switch stream format: %w", err)
	}
	p.settings.SetModeAuto(target)

	p.mu.Lock()
	p.switches++
	p.mu.Unlock()

	slog.Info("render mode switched", "mode", target.String(), "luma", luma)
	return nil
}

// validateFrame checks the payload length against the frame geometry for the
// frame's own format.
func validateFrame(f types.ColorFrame) error {
	switch f.Format {
	case types.FormatInfrared:
		if len(f.Data) < f.Width*f.Height*2 {
			return fmt.Errorf("short infrared frame: %d bytes", len(f.Data))
		}
	default:
		if len(f.Data) < f.Width*f.Height*4 {
			return fmt.Errorf("short color frame: %d bytes", len(f.Data))
		}
	}
	return nil
}

func (p *Pipeline) convert(f types.ColorFrame, snap settings.Snapshot) *image.RGBA {
	if f.Format == types.FormatInfrared {
		return render.InfraredToRGBA(f, snap.TintGreen, snap.Smoothing)
	}
	return render.ColorToRGBA(f)
}

// compose paints the label bar and, if enabled, the last known skeletons.
func (p *Pipeline) compose(img *image.RGBA, f types.ColorFrame, snap settings.Snapshot) {
	label := snap.Mode.String()
	if last := p.lastMotion(); !last.IsZero() && f.Timestamp.Sub(last) <= motionLabelWindow {
		label += " MOTION"
	}
	label += f.Timestamp.Format(" 2006-01-02 15:04:05")
	render.DrawLabel(img, label)

	if snap.ShowSkeletons {
		render.DrawSkeletons(img, p.skels.Latest(), p.sensor.MapSkeletonPoint)
	}
}

// Stats contains pipeline statistics
type Stats struct {
	FramesPublished uint64
	FormatSwitches  uint64
	FramesDropped   uint64
	LastLuma        int
}

// Stats returns a snapshot of pipeline statistics.
func (p *Pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Stats{
		FramesPublished: p.processed,
		FormatSwitches:  p.switches,
		FramesDropped:   p.dropped,
		LastLuma:        p.lastLuma,
	}
}
