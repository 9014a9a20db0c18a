package comicrepack

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Compositor letterboxes pages onto a fixed viewport. It holds no mutable
// state and is safe for concurrent use.
type Compositor struct {
	width, height int
	scaler        draw.Scaler
}

// NewCompositor returns a compositor for a width×height viewport. Pages are
// resampled with Catmull-Rom, which stays free of aliasing on fine line art
// when downscaling.
func NewCompositor(width, height int) *Compositor {
	return &Compositor{width: width, height: height, scaler: draw.CatmullRom}
}

// Compose scales page uniformly to fit the viewport and centres it on a
// white canvas of exactly the viewport size.
func (c *Compositor) Compose(page *image.Gray) (*image.Gray, error) {
	if c.width <= 0 || c.height <= 0 {
		return nil, fmt.Errorf("comicrepack: viewport %dx%d: %w", c.width, c.height, ErrInvalidProfile)
	}
	if page == nil || page.Bounds().Empty() {
		return nil, fmt.Errorf("comicrepack: compose empty image: %w", ErrPageFailure)
	}

	src := page.Bounds()
	w, h := fitSize(src.Dx(), src.Dy(), c.width, c.height)

	canvas := image.NewGray(image.Rect(0, 0, c.width, c.height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Gray{Y: 0xff}), image.Point{}, draw.Src)

	off := image.Pt((c.width-w)/2, (c.height-h)/2)
	c.scaler.Scale(canvas, image.Rectangle{Min: off, Max: off.Add(image.Pt(w, h))}, page, src, draw.Src, nil)
	return canvas, nil
}

// Compose letterboxes page onto a width×height canvas.
func Compose(page *image.Gray, width, height int) (*image.Gray, error) {
	return NewCompositor(width, height).Compose(page)
}

// fitSize returns the dimensions of a srcW×srcH image scaled by the smaller
// of the per-axis factors so it fits inside dstW×dstH. Results are rounded
// and clamped to [1, dst] so the constraining axis fills the viewport exactly.
func fitSize(srcW, srcH, dstW, dstH int) (int, int) {
	scale := math.Min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	w := clampInt(int(math.Round(float64(srcW)*scale)), 1, dstW)
	h := clampInt(int(math.Round(float64(srcH)*scale)), 1, dstH)
	return w, h
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
