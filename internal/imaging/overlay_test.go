package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
)

var overlayGuide = alignment.Box{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status alignment.FrameStatus
		want   string
	}{
		{alignment.StatusMatched, "#2ecc71"},
		{alignment.StatusGood, "#3498db"},
		{alignment.StatusAdjust, "#f1c40f"},
		{alignment.StatusDetecting, "#e74c3c"},
		{alignment.FrameStatus("unknown"), "#e74c3c"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := StatusColor(tt.status).Hex(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOverlay_GuideOnly(t *testing.T) {
	img := createInMemoryImage(200, 100, color.RGBA{128, 128, 128, 255})

	result, err := Overlay(img, overlayGuide, nil)
	if err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
	if result.Width != 200 || result.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 200x100", result.Width, result.Height)
	}
	if result.FrameStatus != "" || result.BoxColor != "" {
		t.Errorf("no detection should leave status empty, got %+v", result)
	}

	out := decodeResult(t, result.ImageBase64)

	// guide is [50,150) x [25,75) with 8px dashes starting at the corner
	if r, g, b := rgb8(out.At(50, 25)); r != 255 || g != 255 || b != 255 {
		t.Errorf("guide corner: got (%d,%d,%d), want white", r, g, b)
	}
	if r, _, _ := rgb8(out.At(60, 25)); r != 128 {
		t.Errorf("guide dash gap: got %d, want untouched 128", r)
	}
	if r, _, _ := rgb8(out.At(100, 50)); r != 128 {
		t.Errorf("guide interior: got %d, want untouched 128", r)
	}
}

func TestOverlay_Detection(t *testing.T) {
	img := createInMemoryImage(200, 100, color.RGBA{128, 128, 128, 255})
	det := alignment.Box{X: 0.125, Y: 0.25, Width: 0.5, Height: 0.5}
	guidance := &alignment.GuidanceResult{
		HasVehicle:   true,
		Confidence:   0.87,
		FrameStatus:  alignment.StatusMatched,
		DetectionBox: &det,
	}

	result, err := Overlay(img, overlayGuide, guidance)
	if err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
	if result.FrameStatus != alignment.StatusMatched || result.BoxColor != "#2ecc71" {
		t.Errorf("status: got %s %s", result.FrameStatus, result.BoxColor)
	}

	out := decodeResult(t, result.ImageBase64)

	// detection is [25,125) x [25,75), solid
	for _, p := range []image.Point{{25, 25}, {124, 50}, {70, 74}} {
		if r, g, b := rgb8(out.At(p.X, p.Y)); r != 46 || g != 204 || b != 113 {
			t.Errorf("detection outline at %v: got (%d,%d,%d), want (46,204,113)", p, r, g, b)
		}
	}

	// label background sits just inside the corner
	if r, g, b := rgb8(out.At(27, 27)); r == 128 && g == 128 && b == 128 {
		t.Error("expected confidence label at the detection corner")
	}
}

func TestOverlay_InvalidBoxes(t *testing.T) {
	img := createInMemoryImage(50, 50, color.White)

	_, err := Overlay(img, alignment.Box{X: 1, Y: 0, Width: 1, Height: 1}, nil)
	if !errors.Is(err, ErrInvalidBox) {
		t.Errorf("guide: expected ErrInvalidBox, got %v", err)
	}

	bad := alignment.Box{X: 0.1, Y: 0.999, Width: 0.1, Height: 0.1}
	_, err = Overlay(img, overlayGuide, &alignment.GuidanceResult{DetectionBox: &bad})
	if !errors.Is(err, ErrInvalidBox) {
		t.Errorf("detection: expected ErrInvalidBox, got %v", err)
	}
}

func TestDrawLabel_BoundsCheck(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	// Should not panic when drawing past the edges
	drawLabel(img, 8, 8, "100%", color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 255})
	drawLabel(img, -5, -5, "42", color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 255})
}

func TestDrawLabel_Glyph(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	fg := color.RGBA{255, 255, 255, 255}
	bg := color.RGBA{0, 0, 0, 255}

	drawLabel(img, 2, 2, "1", fg, bg)

	// '1' has its top row at "010"
	if img.RGBAAt(3, 2) != fg {
		t.Error("expected glyph pixel at (3,2)")
	}
	if img.RGBAAt(2, 2) != bg {
		t.Error("expected background at (2,2)")
	}
}
