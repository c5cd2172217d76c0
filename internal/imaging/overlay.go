package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/clone"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
)

// Overlay palette, one colour per frame status plus the guide outline.
var statusPalette = map[alignment.FrameStatus]string{
	alignment.StatusMatched:   "#2ecc71",
	alignment.StatusGood:      "#3498db",
	alignment.StatusAdjust:    "#f1c40f",
	alignment.StatusDetecting: "#e74c3c",
}

const guideHex = "#ffffff"

// OverlayResult contains the annotated frame.
type OverlayResult struct {
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	ImageBase64 string                `json:"image_base64"`
	MimeType    string                `json:"mime_type"`
	FrameStatus alignment.FrameStatus `json:"frame_status,omitempty"`
	BoxColor    string                `json:"box_color,omitempty"`
}

// StatusColor returns the overlay colour for a frame status. Unknown statuses
// use the detecting colour.
func StatusColor(status alignment.FrameStatus) colorful.Color {
	hex, ok := statusPalette[status]
	if !ok {
		hex = statusPalette[alignment.StatusDetecting]
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{R: 1}
	}
	return c
}

// Overlay draws the guide region as a dashed outline and, when guidance holds
// a detection box, the detection as a solid outline in the status colour with
// the confidence percentage in its top-left corner.
func Overlay(img image.Image, guide alignment.Box, guidance *alignment.GuidanceResult) (*OverlayResult, error) {
	canvas := clone.AsRGBA(img)
	bounds := canvas.Bounds()
	thickness := max(2, min(bounds.Dx(), bounds.Dy())/200)

	guideRect, err := BoxRect(bounds, guide)
	if err != nil {
		return nil, fmt.Errorf("guide region: %w", err)
	}
	guideColor, _ := colorful.Hex(guideHex)
	drawOutline(canvas, guideRect, guideColor, thickness, 8)

	result := &OverlayResult{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: "image/png",
	}

	if guidance != nil && guidance.DetectionBox != nil {
		detRect, err := BoxRect(bounds, *guidance.DetectionBox)
		if err != nil {
			return nil, fmt.Errorf("detection box: %w", err)
		}
		boxColor := StatusColor(guidance.FrameStatus)
		drawOutline(canvas, detRect, boxColor, thickness, 0)

		label := fmt.Sprintf("%d%%", int(math.Round(guidance.Confidence*100)))
		bg := boxColor.BlendLab(colorful.Color{}, 0.6).Clamped()
		drawLabel(canvas, detRect.Min.X+thickness+1, detRect.Min.Y+thickness+1, label, color.RGBA{255, 255, 255, 255}, toRGBA(bg))

		result.FrameStatus = guidance.FrameStatus
		result.BoxColor = boxColor.Hex()
	}

	encoded, err := encodePNG(canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	result.ImageBase64 = encoded
	return result, nil
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawOutline strokes r inward by thickness pixels. A positive dash draws
// alternating dash-length segments.
func drawOutline(img *image.RGBA, r image.Rectangle, c colorful.Color, thickness, dash int) {
	fill := toRGBA(c)
	on := func(i int) bool {
		return dash <= 0 || (i/dash)%2 == 0
	}

	for t := 0; t < thickness; t++ {
		top, bottom := r.Min.Y+t, r.Max.Y-1-t
		left, right := r.Min.X+t, r.Max.X-1-t
		if top > bottom || left > right {
			return
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			if on(x - r.Min.X) {
				img.SetRGBA(x, top, fill)
				img.SetRGBA(x, bottom, fill)
			}
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			if on(y - r.Min.Y) {
				img.SetRGBA(left, y, fill)
				img.SetRGBA(right, y, fill)
			}
		}
	}
}

// drawLabel draws a text label with a simple 3x5 pixel font. Only digits and
// '%' have glyphs; other runes leave a gap.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		'%': {"101", "001", "010", "100", "101"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len([]rune(text)) * charWidth
	labelHeight := 7

	set := func(px, py int, c color.RGBA) {
		if image.Pt(px, py).In(bounds) {
			img.SetRGBA(px, py, c)
		}
	}

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			set(x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		if glyph, ok := glyphs[ch]; ok {
			for row, line := range glyph {
				for col, pixel := range line {
					if pixel == '1' {
						set(cx+col, y+row, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
