// Package settings holds the process-wide camera configuration state.
// All mutation goes through validated entry points; readers take a
// consistent snapshot.
package settings

import (
	"sync"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

const (
	MinJPEGQuality = 10
	MaxJPEGQuality = 100

	minThreshold = 0
	maxThreshold = 100
)

// Settings is the mutable device configuration. Fields are updated from
// HTTP worker goroutines and read from the ingest pipeline; each mutator
// holds the lock only for the write itself.
type Settings struct {
	mu             sync.RWMutex
	mode           types.StreamFormat
	autoNight      bool
	nightThreshold int
	dayThreshold   int
	tintGreen      bool
	smoothing      bool
	showSkeletons  bool
	jpegQuality    int
}

// Snapshot is an immutable copy of the settings for readers.
type Snapshot struct {
	Mode           types.StreamFormat
	AutoNight      bool
	NightThreshold int
	DayThreshold   int
	TintGreen      bool
	Smoothing      bool
	ShowSkeletons  bool
	JPEGQuality    int
}

// Options are the initial values applied at startup.
type Options struct {
	AutoNight      bool
	NightThreshold int
	DayThreshold   int
	TintGreen      bool
	Smoothing      bool
	ShowSkeletons  bool
	JPEGQuality    int
}

// New creates settings initialized from opts, with out-of-range values
// clamped to defaults.
func New(opts Options) *Settings {
	s := &Settings{
		mode:          types.FormatColor,
		autoNight:     opts.AutoNight,
		tintGreen:     opts.TintGreen,
		smoothing:     opts.Smoothing,
		showSkeletons: opts.ShowSkeletons,
		jpegQuality:   clamp(opts.JPEGQuality, MinJPEGQuality, MaxJPEGQuality),
	}
	s.nightThreshold = clamp(opts.NightThreshold, minThreshold, maxThreshold)
	s.dayThreshold = clamp(opts.DayThreshold, minThreshold, maxThreshold)
	s.reclampThresholds()
	return s
}

// Get returns a consistent snapshot of the current settings.
func (s *Settings) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Mode:           s.mode,
		AutoNight:      s.autoNight,
		NightThreshold: s.nightThreshold,
		DayThreshold:   s.dayThreshold,
		TintGreen:      s.tintGreen,
		Smoothing:      s.smoothing,
		ShowSkeletons:  s.showSkeletons,
		JPEGQuality:    s.jpegQuality,
	}
}

// Mode returns the currently requested stream format.
func (s *Settings) Mode() types.StreamFormat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetModeManual applies an explicit mode command. Manual overrides are
// sticky: auto-night is disabled until explicitly re-enabled.
func (s *Settings) SetModeManual(f types.StreamFormat) {
	s.mu.Lock()
	s.mode = f
	s.autoNight = false
	s.mu.Unlock()
}

// SetModeAuto records a mode decision made by the auto-night state machine
// without touching the auto-night flag.
func (s *Settings) SetModeAuto(f types.StreamFormat) {
	s.mu.Lock()
	s.mode = f
	s.mu.Unlock()
}

// SetAutoNight enables or disables automatic day/night switching.
func (s *Settings) SetAutoNight(on bool) {
	s.mu.Lock()
	s.autoNight = on
	s.mu.Unlock()
}

// ToggleAutoNight flips the auto-night flag and returns the new value.
func (s *Settings) ToggleAutoNight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoNight = !s.autoNight
	return s.autoNight
}

// SetTintGreen selects green (true) or gray (false) infrared rendering.
func (s *Settings) SetTintGreen(on bool) {
	s.mu.Lock()
	s.tintGreen = on
	s.mu.Unlock()
}

// ToggleTintGreen flips the tint mode and returns the new value.
func (s *Settings) ToggleTintGreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tintGreen = !s.tintGreen
	return s.tintGreen
}

// SetSmoothing enables or disables the infrared blur pass.
func (s *Settings) SetSmoothing(on bool) {
	s.mu.Lock()
	s.smoothing = on
	s.mu.Unlock()
}

// ToggleSmoothing flips the smoothing flag and returns the new value.
func (s *Settings) ToggleSmoothing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.smoothing = !s.smoothing
	return s.smoothing
}

// SetJPEGQuality sets the encode quality, clamped to [10,100].
func (s *Settings) SetJPEGQuality(q int) {
	s.mu.Lock()
	s.jpegQuality = clamp(q, MinJPEGQuality, MaxJPEGQuality)
	s.mu.Unlock()
}

// SetNightThreshold sets the luma level below which auto-night switches to
// infrared. The day threshold is pushed up if needed so that the hysteresis
// ordering day > night always holds, whichever threshold was written last.
func (s *Settings) SetNightThreshold(v int) {
	s.mu.Lock()
	s.nightThreshold = clamp(v, minThreshold, maxThreshold)
	s.reclampThresholds()
	s.mu.Unlock()
}

// SetDayThreshold sets the luma level above which auto-night switches back
// to color. The night threshold is pulled down if needed to preserve the
// ordering.
func (s *Settings) SetDayThreshold(v int) {
	s.mu.Lock()
	s.dayThreshold = clamp(v, minThreshold, maxThreshold)
	if s.dayThreshold <= s.nightThreshold {
		s.nightThreshold = s.dayThreshold - 1
		if s.nightThreshold < minThreshold {
			s.nightThreshold = minThreshold
			s.dayThreshold = minThreshold + 1
		}
	}
	s.mu.Unlock()
}

// reclampThresholds enforces day > night after a night-threshold write.
// Callers must hold the lock.
func (s *Settings) reclampThresholds() {
	if s.dayThreshold <= s.nightThreshold {
		s.dayThreshold = s.nightThreshold + 1
		if s.dayThreshold > maxThreshold {
			s.dayThreshold = maxThreshold
			s.nightThreshold = maxThreshold - 1
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
