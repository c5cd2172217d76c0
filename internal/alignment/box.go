package alignment

import "math"

// MinBoxSize is the smallest width or height a normalized box may have.
const MinBoxSize = 0.02

// Box is an axis-aligned rectangle expressed as fractions of the frame size.
//
// (X, Y) is the top-left corner. A Box produced by NormalizeBox always
// satisfies X+Width <= 1, Y+Height <= 1 and Width, Height >= MinBoxSize.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center point of the box.
func (b Box) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Area returns Width*Height.
func (b Box) Area() float64 {
	return b.Width * b.Height
}

// NormalizeBox clamps a raw box into the frame.
//
// X and Y are clamped to [0,1]. A zero (missing) width or height becomes
// MinBoxSize, and both are clamped so the box never extends past the frame
// edge nor collapses below MinBoxSize. Non-finite coordinates are treated
// as missing.
//
// The second return value is false when box is nil or when the box starts so
// close to the right or bottom edge that no MinBoxSize extent fits.
func NormalizeBox(box *Box) (Box, bool) {
	if box == nil {
		return Box{}, false
	}

	x := clampFloat(finiteOr(box.X, 0), 0, 1)
	y := clampFloat(finiteOr(box.Y, 0), 0, 1)
	if 1-x < MinBoxSize || 1-y < MinBoxSize {
		return Box{}, false
	}

	width := finiteOr(box.Width, MinBoxSize)
	height := finiteOr(box.Height, MinBoxSize)

	return Box{
		X:      x,
		Y:      y,
		Width:  clampFloat(width, MinBoxSize, 1-x),
		Height: clampFloat(height, MinBoxSize, 1-y),
	}, true
}

// IoU returns the intersection-over-union of two boxes.
//
// The result is 0 when the boxes do not overlap or when either box has no
// positive area, and 1 for identical boxes.
func IoU(a, b Box) float64 {
	if a == b && a.Width > 0 && a.Height > 0 {
		return 1
	}

	left := math.Max(a.X, b.X)
	top := math.Max(a.Y, b.Y)
	right := math.Min(a.X+a.Width, b.X+b.Width)
	bottom := math.Min(a.Y+a.Height, b.Y+b.Height)

	if right <= left || bottom <= top {
		return 0
	}

	intersection := (right - left) * (bottom - top)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}

	return clampFloat(intersection/union, 0, 1)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// finiteOr returns fallback for NaN, infinities and zero.
func finiteOr(v, fallback float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
