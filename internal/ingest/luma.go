package ingest

import (
	"encoding/binary"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

// lumaStride is the fixed pixel subsampling step for brightness estimation.
// The estimate drives a coarse hysteresis decision; exactness is wasted.
const lumaStride = 16

// averageLuma estimates perceptual brightness in [0,255] over a sparse pixel
// sample. Color frames use the usual Rec.601 channel weights; infrared
// frames use the high byte of the raw intensity, which tracks ambient light
// well enough for the day-switch decision.
func averageLuma(f types.ColorFrame) int {
	n := f.Width * f.Height
	if n == 0 {
		return 0
	}

	var sum, count int
	switch f.Format {
	case types.FormatInfrared:
		for i := 0; i < n; i += lumaStride {
			raw := binary.LittleEndian.Uint16(f.Data[i*2:])
			sum += int(raw >> 8)
			count++
		}
	default:
		for i := 0; i < n; i += lumaStride {
			p := i * 4
			b := int(f.Data[p])
			g := int(f.Data[p+1])
			r := int(f.Data[p+2])
			// Rec.601 luma weights, scaled by 1000 to stay in integers
			sum += (299*r + 587*g + 114*b) / 1000
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / count
}
