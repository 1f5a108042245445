// Package render converts raw sensor pixel data into renderable frames and
// composes the live-view overlay.
package render

import (
	"encoding/binary"
	"image"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

// sampleStride is the fixed subsampling step used when scanning infrared
// frames for the normalization window. Exactness is not needed, speed is.
const sampleStride = 16

// infrared normalization fallback when a frame has no valid samples
const (
	defaultIRMin = 0
	defaultIRMax = 0x3fff
)

// ColorToRGBA converts a BGRX color frame into an RGBA image.
func ColorToRGBA(f types.ColorFrame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		src := i * 4
		dst := i * 4
		img.Pix[dst] = f.Data[src+2]   // R
		img.Pix[dst+1] = f.Data[src+1] // G
		img.Pix[dst+2] = f.Data[src]   // B
		img.Pix[dst+3] = 0xff
	}
	return img
}

// InfraredToRGBA tone-maps a 16-bit infrared frame into an RGBA image.
// Intensities are rescaled into [0,255] using a min/max window discovered
// over a sparse pixel sample; tintGreen selects green rendering over
// grayscale, and smooth applies a box blur pass over the interior.
func InfraredToRGBA(f types.ColorFrame, tintGreen, smooth bool) *image.RGBA {
	minI, maxI := irWindow(f)

	span := int(maxI) - int(minI)
	if span <= 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		raw := binary.LittleEndian.Uint16(f.Data[i*2:])
		v := (int(raw) - int(minI)) * 255 / span
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		dst := i * 4
		if tintGreen {
			img.Pix[dst+1] = uint8(v)
		} else {
			img.Pix[dst] = uint8(v)
			img.Pix[dst+1] = uint8(v)
			img.Pix[dst+2] = uint8(v)
		}
		img.Pix[dst+3] = 0xff
	}

	if smooth {
		boxBlur(img)
	}
	return img
}

// irWindow scans a sparse sample of pixels for the min/max non-zero
// intensity, falling back to a fixed default range when nothing valid is
// seen.
func irWindow(f types.ColorFrame) (uint16, uint16) {
	var (
		minI  uint16
		maxI  uint16
		found bool
	)
	n := f.Width * f.Height
	for i := 0; i < n; i += sampleStride {
		raw := binary.LittleEndian.Uint16(f.Data[i*2:])
		if raw == 0 {
			continue
		}
		if !found {
			minI, maxI = raw, raw
			found = true
			continue
		}
		if raw < minI {
			minI = raw
		}
		if raw > maxI {
			maxI = raw
		}
	}
	if !found {
		return defaultIRMin, defaultIRMax
	}
	return minI, maxI
}

// boxBlur applies a single 3x3 box blur pass over the interior pixels.
// Border pixels are left untouched. The pass reads from a copy of the
// pre-blur buffer so earlier writes never bleed into later reads.
func boxBlur(img *image.RGBA) {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	if w < 3 || h < 3 {
		return
	}

	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			for c := 0; c < 3; c++ {
				sum := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						sum += int(src[((y+dy)*w+(x+dx))*4+c])
					}
				}
				img.Pix[(y*w+x)*4+c] = uint8(sum / 9)
			}
		}
	}
}
