// Package sensor defines the contract with the depth-sensing camera driver
// and provides a mock implementation for development and tests.
package sensor

import (
	"context"
	"io"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

// Sensor is the contract with the camera driver.
//
// Implementations must guarantee:
//   - Start() returns immediately; frames arrive asynchronously on the
//     returned channels until Stop()
//   - frame channels never close before Stop()
//   - delivery is drop-on-slow: an unconsumed frame is replaced, never queued
//   - Stop() is idempotent
//   - Stats() is safe to call from any goroutine
type Sensor interface {
	// Start begins frame delivery on all streams.
	Start(ctx context.Context) error

	// Stop shuts down frame delivery and releases the device.
	Stop() error

	// ColorFrames returns the color-stream channel. Payload format follows
	// the active stream format (BGRX or 16-bit infrared).
	ColorFrames() <-chan types.ColorFrame

	// DepthFrames returns the depth-stream channel.
	DepthFrames() <-chan types.DepthFrame

	// SkeletonFrames returns the skeleton-stream channel.
	SkeletonFrames() <-chan types.SkeletonFrame

	// SetColorFormat switches the color stream between color and infrared
	// capture. The stream is disabled and re-enabled in the target format;
	// a frame in flight during the switch may still carry the old format
	// and is the caller's responsibility to drop.
	SetColorFormat(f types.StreamFormat) error

	// MapSkeletonPoint projects a skeleton-space position onto image
	// coordinates for the active stream format. ok is false when the point
	// does not project into the frame.
	MapSkeletonPoint(j types.Joint, width, height int) (x, y int, ok bool)

	// TiltRange reports the device's supported elevation range in degrees.
	TiltRange() (min, max int)

	// Tilt reports the current elevation angle.
	Tilt() int

	// SetTilt moves the camera to the given elevation angle. The caller is
	// responsible for clamping and rate limiting.
	SetTilt(angle int) error

	// OpenAudio starts the microphone and returns a PCM byte stream
	// (16 kHz, mono, 16-bit little-endian). Closing the reader stops the
	// capture.
	OpenAudio() (io.ReadCloser, error)

	// Stats returns operational statistics.
	Stats() Stats
}

// Stats contains sensor statistics
type Stats struct {
	ColorFrames    uint64
	DepthFrames    uint64
	SkeletonFrames uint64
	FormatSwitches uint64
	Format         types.StreamFormat
	IsRunning      bool
}
