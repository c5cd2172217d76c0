package detection

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/clone"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
)

// Default edge scan parameters.
const (
	DefaultMargin     = 0.03
	DefaultThreshold  = 36
	DefaultSampleStep = 2
)

const (
	minEdgePixels  = 120
	minEdgeDensity = 0.003
	minBoxPixels   = 12

	densityScale = 3.6
	minScore     = 0.45
	maxScore     = 0.95
)

// Frame is a packed, row-major RGBA pixel buffer with 4 bytes per pixel and
// no row padding.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
}

// FrameFromImage copies any image into a packed RGBA Frame.
func FrameFromImage(img image.Image) Frame {
	rgba := clone.AsRGBA(img)
	return Frame{
		Pix:    rgba.Pix,
		Width:  rgba.Bounds().Dx(),
		Height: rgba.Bounds().Dy(),
	}
}

func (f Frame) valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Pix) >= f.Width*f.Height*4
}

func (f Frame) luma(offset int) float64 {
	return float64(f.Pix[offset])*0.299 + float64(f.Pix[offset+1])*0.587 + float64(f.Pix[offset+2])*0.114
}

// EdgeOptions tunes the edge scan.
type EdgeOptions struct {
	// Margin expands the expected region on every side, as a fraction of the
	// frame size.
	Margin float64 `json:"margin"`

	// Threshold is the luma difference a pixel must exceed against its right
	// or lower neighbour to count as an edge.
	Threshold float64 `json:"threshold"`

	// SampleStep subsamples rows and columns. Values below 1 scan every pixel.
	SampleStep int `json:"sample_step"`
}

// DefaultEdgeOptions returns the stock scan parameters.
func DefaultEdgeOptions() EdgeOptions {
	return EdgeOptions{
		Margin:     DefaultMargin,
		Threshold:  DefaultThreshold,
		SampleStep: DefaultSampleStep,
	}
}

// EdgeOverrides replaces any subset of EdgeOptions. Nil fields keep the base
// value.
type EdgeOverrides struct {
	Margin     *float64 `json:"margin,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	SampleStep *int     `json:"sample_step,omitempty"`
}

// Merge returns o with the non-nil fields of ov applied.
func (o EdgeOptions) Merge(ov *EdgeOverrides) EdgeOptions {
	if ov == nil {
		return o
	}
	if ov.Margin != nil {
		o.Margin = *ov.Margin
	}
	if ov.Threshold != nil {
		o.Threshold = *ov.Threshold
	}
	if ov.SampleStep != nil {
		o.SampleStep = *ov.SampleStep
	}
	return o
}

// DetectVehicleEdges looks for a cluster of strong luma edges around the
// expected region and reports its bounding box as a vehicle detection.
//
// The scan window is the expected region grown by opts.Margin, kept one pixel
// inside the frame so the right and lower neighbours always exist. A detection
// needs at least max(120, 0.3% of the window area) edge pixels spanning at
// least two distinct rows and columns. The reported box is at least 12 pixels
// on each side and the score is the edge density scaled into [0.45, 0.95].
//
// opts is used as given. Callers tuning a single parameter should start from
// DefaultEdgeOptions and apply EdgeOverrides with Merge, since a zero
// Threshold counts every luma change as an edge.
//
// DetectVehicleEdges never fails. Unusable input yields HasVehicle false; a
// scan that found too little carries Meta with the edge count and window area.
func DetectVehicleEdges(frame Frame, expected *alignment.Box, opts EdgeOptions) alignment.DetectionResult {
	if !frame.valid() || expected == nil || !finiteBox(*expected) {
		return alignment.DetectionResult{}
	}

	step := opts.SampleStep
	if step < 1 {
		step = 1
	}

	w, h := frame.Width, frame.Height
	startX := max(1, int(math.Floor((expected.X-opts.Margin)*float64(w))))
	endX := min(w-2, int(math.Floor((expected.X+expected.Width+opts.Margin)*float64(w))))
	startY := max(1, int(math.Floor((expected.Y-opts.Margin)*float64(h))))
	endY := min(h-2, int(math.Floor((expected.Y+expected.Height+opts.Margin)*float64(h))))

	if startX >= endX || startY >= endY {
		return alignment.DetectionResult{}
	}

	minX, maxX := endX, startX
	minY, maxY := endY, startY
	edgePixels := 0
	stride := w * 4

	for y := startY; y < endY; y += step {
		row := y * stride
		for x := startX; x < endX; x += step {
			i := row + x*4
			gray := frame.luma(i)
			diff := math.Max(math.Abs(gray-frame.luma(i+4)), math.Abs(gray-frame.luma(i+stride)))
			if diff <= opts.Threshold {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
			edgePixels++
		}
	}

	regionArea := max(1, (endX-startX)*(endY-startY))
	floor := math.Max(minEdgePixels, float64(regionArea)*minEdgeDensity)

	if float64(edgePixels) < floor || minX >= maxX || minY >= maxY {
		return alignment.DetectionResult{
			Meta: &alignment.DetectionMeta{
				EdgePixels: edgePixels,
				RegionArea: regionArea,
			},
		}
	}

	boxW := max(minBoxPixels, maxX-minX)
	boxH := max(minBoxPixels, maxY-minY)
	density := float64(edgePixels) / float64(regionArea)
	score := math.Max(minScore, math.Min(maxScore, density*densityScale))

	return alignment.DetectionResult{
		HasVehicle: true,
		BBox: &alignment.Box{
			X:      float64(minX) / float64(w),
			Y:      float64(minY) / float64(h),
			Width:  float64(boxW) / float64(w),
			Height: float64(boxH) / float64(h),
		},
		Score: &score,
		Meta: &alignment.DetectionMeta{
			EdgePixels: edgePixels,
			RegionArea: regionArea,
			Density:    density,
			Threshold:  opts.Threshold,
			SampleStep: step,
		},
	}
}

func finiteBox(b alignment.Box) bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
