package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

var (
	labelBackground = color.RGBA{0, 0, 0, 200}
	labelForeground = color.RGBA{255, 255, 255, 255}
	boneTracked     = color.RGBA{0, 255, 0, 255}
	boneInferred    = color.RGBA{255, 255, 0, 255}
	jointMarker     = color.RGBA{255, 0, 0, 255}
)

// bones is the fixed anatomical bone graph drawn between joint pairs:
// head-neck-shoulders-arms-spine-hips-legs.
var bones = [][2]types.JointID{
	{types.JointHead, types.JointShoulderCenter},
	{types.JointShoulderCenter, types.JointShoulderLeft},
	{types.JointShoulderCenter, types.JointShoulderRight},
	{types.JointShoulderLeft, types.JointElbowLeft},
	{types.JointElbowLeft, types.JointWristLeft},
	{types.JointWristLeft, types.JointHandLeft},
	{types.JointShoulderRight, types.JointElbowRight},
	{types.JointElbowRight, types.JointWristRight},
	{types.JointWristRight, types.JointHandRight},
	{types.JointShoulderCenter, types.JointSpine},
	{types.JointSpine, types.JointHipCenter},
	{types.JointHipCenter, types.JointHipLeft},
	{types.JointHipLeft, types.JointKneeLeft},
	{types.JointKneeLeft, types.JointAnkleLeft},
	{types.JointAnkleLeft, types.JointFootLeft},
	{types.JointHipCenter, types.JointHipRight},
	{types.JointHipRight, types.JointKneeRight},
	{types.JointKneeRight, types.JointAnkleRight},
	{types.JointAnkleRight, types.JointFootRight},
}

// JointMapper projects a skeleton-space joint onto image coordinates.
// ok is false for points that fall outside the frame.
type JointMapper func(j types.Joint, width, height int) (x, y int, ok bool)

// DrawLabel paints the status bar into the top-left corner: a solid
// background rectangle sized to the rendered text.
func DrawLabel(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil()
	h := face.Metrics().Height.Ceil()

	bar := image.Rect(0, 0, w+8, h+6)
	draw.Draw(img, bar.Intersect(img.Rect), image.NewUniform(labelBackground), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelForeground),
		Face: face,
		Dot:  fixed.P(4, h+1),
	}
	d.DrawString(text)
}

// DrawSkeletons renders every tracked skeleton: bones with a heavier stroke
// when both endpoints are fully tracked, lighter when at least one is
// inferred, plus a small marker at every non-untracked joint.
func DrawSkeletons(img *image.RGBA, frame *types.SkeletonFrame, mapper JointMapper) {
	if frame == nil {
		return
	}
	w := img.Rect.Dx()
	h := img.Rect.Dy()

	for i := range frame.Skeletons {
		sk := &frame.Skeletons[i]
		if !sk.Tracked {
			continue
		}

		for _, bone := range bones {
			a := sk.Joints[bone[0]]
			b := sk.Joints[bone[1]]
			if a.State == types.JointNotTracked || b.State == types.JointNotTracked {
				continue
			}
			ax, ay, ok := mapper(a, w, h)
			if !ok {
				continue
			}
			bx, by, ok := mapper(b, w, h)
			if !ok {
				continue
			}
			if a.State == types.JointTracked && b.State == types.JointTracked {
				drawThickLine(img, ax, ay, bx, by, boneTracked)
			} else {
				drawLine(img, ax, ay, bx, by, boneInferred)
			}
		}

		for _, j := range sk.Joints {
			if j.State == types.JointNotTracked {
				continue
			}
			x, y, ok := mapper(j, w, h)
			if !ok {
				continue
			}
			fillRect(img, x-2, y-2, x+2, y+2, jointMarker)
		}
	}
}

// drawLine rasterizes a single-pixel line (Bresenham).
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		setPixel(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawThickLine gives fully tracked bones a heavier visual weight.
func drawThickLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	drawLine(img, x0, y0, x1, y1, c)
	drawLine(img, x0+1, y0, x1+1, y1, c)
	drawLine(img, x0, y0+1, x1, y1+1, c)
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			setPixel(img, x, y, c)
		}
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{x, y}).In(img.Rect) {
		return
	}
	img.SetRGBA(x, y, c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
