package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
)

// ErrInvalidBox is returned when a normalized box cannot be placed on a frame.
var ErrInvalidBox = errors.New("invalid box")

// CropResult contains the cropped image data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts a pixel rectangle [x1,x2) x [y1,y2) from an image, optionally
// rescaling it.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*CropResult, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	encoded, err := encodePNG(cropped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// CropBox crops the area covered by a normalized box. The box is normalized
// first, so boxes reaching past the frame are clipped to it.
func CropBox(img image.Image, box alignment.Box, scale float64) (*CropResult, error) {
	r, err := BoxRect(img.Bounds(), box)
	if err != nil {
		return nil, err
	}
	return Crop(img, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, scale)
}

// BoxRect converts a normalized box into pixel bounds inside frame. The
// rectangle covers every pixel the box touches and is never empty.
func BoxRect(frame image.Rectangle, box alignment.Box) (image.Rectangle, error) {
	b, ok := alignment.NormalizeBox(&box)
	if !ok {
		return image.Rectangle{}, fmt.Errorf("%w: %+v", ErrInvalidBox, box)
	}
	w, h := float64(frame.Dx()), float64(frame.Dy())
	if w == 0 || h == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: empty frame", ErrInvalidBox)
	}

	x1 := int(math.Floor(b.X * w))
	y1 := int(math.Floor(b.Y * h))
	x2 := max(x1+1, min(frame.Dx(), int(math.Ceil((b.X+b.Width)*w))))
	y2 := max(y1+1, min(frame.Dy(), int(math.Ceil((b.Y+b.Height)*h))))

	return image.Rect(x1, y1, x2, y2).Add(frame.Min).Intersect(frame), nil
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
