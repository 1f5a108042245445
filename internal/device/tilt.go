// Package device wraps the camera's tilt actuator with clamping and a
// cooldown that protects the motor from excessive wear.
package device

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/AceArd86/kinect-ip-cam/internal/ratelimit"
	"github.com/AceArd86/kinect-ip-cam/internal/sensor"
)

// tiltStep is the default relative movement for up/down keywords.
const tiltStep = 5

// Tilt issues rate-limited, clamped elevation commands.
type Tilt struct {
	sensor   sensor.Sensor
	cooldown *ratelimit.Cooldown

	mu       sync.RWMutex
	applied  uint64
	rejected uint64
}

// NewTilt creates the tilt controller.
func NewTilt(s sensor.Sensor, cooldown time.Duration) *Tilt {
	return &Tilt{
		sensor:   s,
		cooldown: ratelimit.New(cooldown),
	}
}

// Command resolves a relative command: "up", "down", or a signed step.
// Malformed input is ignored.
func (t *Tilt) Command(arg string) {
	var step int
	switch arg {
	case "up":
		step = tiltStep
	case "down":
		step = -tiltStep
	default:
		n, err := strconv.Atoi(arg)
		if err != nil {
			slog.Debug("ignoring malformed tilt command", "arg", arg)
			return
		}
		step = n
	}
	t.apply(t.sensor.Tilt() + step)
}

// Absolute moves to a target angle, clamped to the device range.
func (t *Tilt) Absolute(angle int) {
	t.apply(angle)
}

// Angle reports the current elevation.
func (t *Tilt) Angle() int {
	return t.sensor.Tilt()
}

// apply clamps the target and moves the motor if the cooldown has elapsed.
// Early commands are rejected and logged, never surfaced as errors.
func (t *Tilt) apply(target int) {
	min, max := t.sensor.TiltRange()
	if target < min {
		target = min
	}
	if target > max {
		target = max
	}

	if !t.cooldown.TryFire(time.Now()) {
		t.mu.Lock()
		t.rejected++
		t.mu.Unlock()
		slog.Debug("tilt command rejected by cooldown", "target", target)
		return
	}

	if err := t.sensor.SetTilt(target); err != nil {
		slog.Warn("tilt command failed", "target", target,
			"error", fmt.Errorf("set tilt: %w", err))
		return
	}

	t.mu.Lock()
	t.applied++
	t.mu.Unlock()
	slog.Info("tilt applied", "angle", target)
}

// Stats contains tilt controller statistics
type Stats struct {
	Applied  uint64
	Rejected uint64
	Angle    int
}

// Stats returns a snapshot of controller statistics.
func (t *Tilt) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{
		Applied:  t.applied,
		Rejected: t.rejected,
		Angle:    t.sensor.Tilt(),
	}
}
