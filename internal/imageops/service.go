// Package imageops provides one-shot image manipulation: resize, rotate,
// flip, crop, format conversion and size-targeted compression. It operates
// on whole decoded images, independent of any editing session.
package imageops

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrEmptyCrop         = errors.New("crop region outside image")
	ErrBadDimensions     = errors.New("invalid output dimensions")
	ErrBadResizeMode     = errors.New("unknown resize mode")
	ErrTargetTooSmall    = errors.New("target size not reachable")
)

// ResizeMode selects how target dimensions are interpreted.
type ResizeMode string

const (
	// ResizeFit scales down to fit within width x height, preserving the
	// aspect ratio. Images already inside the box pass through unchanged.
	ResizeFit ResizeMode = "fit"
	// ResizeWidth scales to the given width, height follows the aspect ratio.
	ResizeWidth ResizeMode = "width"
	// ResizeHeight scales to the given height, width follows the aspect ratio.
	ResizeHeight ResizeMode = "height"
	// ResizeStretch scales to exactly width x height.
	ResizeStretch ResizeMode = "stretch"
)

func ParseResizeMode(s string) (ResizeMode, error) {
	switch ResizeMode(s) {
	case ResizeFit, ResizeWidth, ResizeHeight, ResizeStretch:
		return ResizeMode(s), nil
	case "":
		return ResizeFit, nil
	}
	return "", ErrBadResizeMode
}

// Resize scales img according to mode. Dimensions not required by the mode
// are ignored; required ones must be positive.
func Resize(img image.Image, width, height int, mode ResizeMode) (*image.NRGBA, error) {
	switch mode {
	case ResizeFit:
		if width <= 0 || height <= 0 {
			return nil, ErrBadDimensions
		}
		return imaging.Fit(img, width, height, imaging.Lanczos), nil
	case ResizeWidth:
		if width <= 0 {
			return nil, ErrBadDimensions
		}
		return imaging.Resize(img, width, 0, imaging.Lanczos), nil
	case ResizeHeight:
		if height <= 0 {
			return nil, ErrBadDimensions
		}
		return imaging.Resize(img, 0, height, imaging.Lanczos), nil
	case ResizeStretch:
		if width <= 0 || height <= 0 {
			return nil, ErrBadDimensions
		}
		return imaging.Resize(img, width, height, imaging.Lanczos), nil
	}
	return nil, ErrBadDimensions
}

// Rotate turns img clockwise on screen by the given degrees. Right angles
// are lossless; other angles expand the canvas and fill the corners with bg.
func Rotate(img image.Image, degrees float64, bg color.Color) *image.NRGBA {
	switch geometry.NormalizeDegrees(degrees) {
	case 0:
		return imaging.Clone(img)
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	// imaging rotates counter-clockwise.
	return imaging.Rotate(img, -degrees, bg)
}

func Flip(img image.Image, horizontal, vertical bool) *image.NRGBA {
	out := imaging.Clone(img)
	if horizontal {
		out = imaging.FlipH(out)
	}
	if vertical {
		out = imaging.FlipV(out)
	}
	return out
}

// CropRect is a crop region in image pixels.
type CropRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r CropRect) rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Crop extracts the region r from img. With autoAdjust the region is
// clipped to the image bounds first; without it a region that reaches
// outside the image is an error.
func Crop(img image.Image, r CropRect, autoAdjust bool) (*image.NRGBA, error) {
	bounds := img.Bounds()
	want := r.rect().Add(bounds.Min)
	clipped := want.Intersect(bounds)
	if clipped.Empty() {
		return nil, ErrEmptyCrop
	}
	if !autoAdjust && clipped != want {
		return nil, ErrEmptyCrop
	}
	return imaging.Crop(img, clipped), nil
}

// Decode reads an image in any registered format and reports the format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", ErrUnsupportedFormat
	}
	return img, format, nil
}

// ParseFormat maps a user-facing format name to an encodable format.
func ParseFormat(name string) (imaging.Format, error) {
	switch name {
	case "jpg", "jpeg":
		return imaging.JPEG, nil
	case "png":
		return imaging.PNG, nil
	case "gif":
		return imaging.GIF, nil
	case "tif", "tiff":
		return imaging.TIFF, nil
	case "bmp":
		return imaging.BMP, nil
	}
	return 0, ErrUnsupportedFormat
}

// ContentType returns the MIME type for an encodable format.
func ContentType(format imaging.Format) string {
	switch format {
	case imaging.JPEG:
		return "image/jpeg"
	case imaging.PNG:
		return "image/png"
	case imaging.GIF:
		return "image/gif"
	case imaging.TIFF:
		return "image/tiff"
	case imaging.BMP:
		return "image/bmp"
	}
	return "application/octet-stream"
}

// Convert encodes img into the named format. quality applies to JPEG only
// and falls back to 90 when out of range.
func Convert(w io.Writer, img image.Image, format string, quality int) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}
	if f == imaging.JPEG {
		if quality < 1 || quality > 100 {
			quality = 90
		}
		return imaging.Encode(w, img, f, imaging.JPEGQuality(quality))
	}
	return imaging.Encode(w, img, f)
}

const (
	minJPEGQuality = 5
	maxJPEGQuality = 95
)

// CompressToSize encodes img as JPEG at the highest quality whose encoded
// size does not exceed targetBytes, searching qualities 5 through 95. It
// returns the encoded bytes and the chosen quality.
func CompressToSize(img image.Image, targetBytes int) ([]byte, int, error) {
	if targetBytes <= 0 {
		return nil, 0, ErrTargetTooSmall
	}

	encode := func(quality int) ([]byte, error) {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	best, err := encode(maxJPEGQuality)
	if err != nil {
		return nil, 0, err
	}
	if len(best) <= targetBytes {
		return best, maxJPEGQuality, nil
	}

	floor, err := encode(minJPEGQuality)
	if err != nil {
		return nil, 0, err
	}
	if len(floor) > targetBytes {
		return nil, 0, ErrTargetTooSmall
	}

	// Binary search the largest quality that still fits.
	lo, hi := minJPEGQuality, maxJPEGQuality
	best, quality := floor, minJPEGQuality
	for lo <= hi {
		mid := (lo + hi) / 2
		data, err := encode(mid)
		if err != nil {
			return nil, 0, err
		}
		if len(data) <= targetBytes {
			best, quality = data, mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, quality, nil
}

// ImageInfo describes an image without fully decoding it.
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

func Info(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, ErrUnsupportedFormat
	}
	return ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// PipelineOptions describes a chained edit. Operations apply in a fixed
// order: rotate, flip, crop, resize. Zero values skip the step.
type PipelineOptions struct {
	Rotate     float64
	FlipH      bool
	FlipV      bool
	Crop       *CropRect
	AdjustCrop bool
	Width      int
	Height     int
	Mode       ResizeMode
}

func (o PipelineOptions) resizeRequested() bool {
	return o.Width > 0 || o.Height > 0
}

// Apply runs the pipeline described by opts over img.
func Apply(img image.Image, opts PipelineOptions) (*image.NRGBA, error) {
	out := imaging.Clone(img)
	if geometry.NormalizeDegrees(opts.Rotate) != 0 {
		out = Rotate(out, opts.Rotate, color.Transparent)
	}
	if opts.FlipH || opts.FlipV {
		out = Flip(out, opts.FlipH, opts.FlipV)
	}
	if opts.Crop != nil {
		cropped, err := Crop(out, *opts.Crop, opts.AdjustCrop)
		if err != nil {
			return nil, err
		}
		out = cropped
	}
	if opts.resizeRequested() {
		resized, err := Resize(out, opts.Width, opts.Height, opts.effectiveMode())
		if err != nil {
			return nil, err
		}
		out = resized
	}
	return out, nil
}

// effectiveMode infers the resize mode when none was given: a single
// dimension pins that axis, two dimensions fit within the box.
func (o PipelineOptions) effectiveMode() ResizeMode {
	if o.Mode != "" {
		return o.Mode
	}
	switch {
	case o.Width > 0 && o.Height > 0:
		return ResizeFit
	case o.Width > 0:
		return ResizeWidth
	default:
		return ResizeHeight
	}
}
