package types

import (
	"image"
	"time"
)

// StreamFormat identifies the active color-stream capture format.
type StreamFormat int

const (
	// FormatColor is the normal daylight BGRX video stream.
	FormatColor StreamFormat = iota
	// FormatInfrared is the 16-bit infrared intensity stream used at night.
	FormatInfrared
)

func (f StreamFormat) String() string {
	switch f {
	case FormatColor:
		return "rgb"
	case FormatInfrared:
		return "ir"
	default:
		return "unknown"
	}
}

// ColorFrame is a single frame from the sensor's color stream. Depending on
// Format the payload is either BGRX (4 bytes per pixel) or raw 16-bit
// little-endian infrared intensities (2 bytes per pixel).
//
// Frames are immutable once handed to the pipeline: Data MUST NOT be modified
// after delivery.
type ColorFrame struct {
	// Seq is the monotonic sequence number
	Seq uint64
	// Timestamp is when the frame was captured
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// BytesPerPixel is 4 for BGRX, 2 for infrared
	BytesPerPixel int
	// Format is the stream format this frame was captured in
	Format StreamFormat
	// Data contains the raw pixel payload
	Data []byte
	// TraceID is a unique identifier for tracing a frame through the pipeline
	TraceID string
}

// DepthFrame is a single frame from the sensor's depth stream. Each sample
// packs the depth in millimeters in the high 13 bits; the low 3 bits are
// reserved for player segmentation and must be shifted away before use.
type DepthFrame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	// Data contains one packed sample per pixel, row-major
	Data []uint16
}

// DepthShift is the number of reserved low bits in a packed depth sample.
const DepthShift = 3

// DepthMM extracts the depth magnitude in millimeters from a packed sample.
func DepthMM(raw uint16) int {
	return int(raw >> DepthShift)
}

// RenderedFrame is a fully composed, renderable frame as published to the
// latest-frame cell. It is immutable after publication; consumers encode
// from Img without copying.
type RenderedFrame struct {
	Seq       uint64
	Timestamp time.Time
	Img       *image.RGBA
	// Format records which stream format produced the frame
	Format StreamFormat
}
