package imageops

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
)

func pattern(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(30*x + 5),
				G: uint8(30*y + 5),
				B: uint8(15 * (x + y)),
				A: 255,
			})
		}
	}
	return img
}

func noise(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[img.PixOffset(x, y)+3] = 255
		}
	}
	return img
}

func TestResize_FitShrinksPreservingAspect(t *testing.T) {
	out, err := Resize(pattern(100, 50), 40, 40, ResizeFit)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 20 {
		t.Fatalf("expected 40x20, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestResize_FitNeverUpscales(t *testing.T) {
	out, err := Resize(pattern(10, 10), 40, 40, ResizeFit)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if out.Bounds().Dx() != 10 || out.Bounds().Dy() != 10 {
		t.Fatalf("expected 10x10, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestResize_WidthKeepsRatio(t *testing.T) {
	out, err := Resize(pattern(100, 50), 50, 0, ResizeWidth)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 25 {
		t.Fatalf("expected 50x25, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestResize_StretchIgnoresRatio(t *testing.T) {
	out, err := Resize(pattern(100, 50), 30, 30, ResizeStretch)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if out.Bounds().Dx() != 30 || out.Bounds().Dy() != 30 {
		t.Fatalf("expected 30x30, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestResize_RejectsMissingDimensions(t *testing.T) {
	if _, err := Resize(pattern(10, 10), 0, 40, ResizeFit); !errors.Is(err, ErrBadDimensions) {
		t.Fatalf("expected ErrBadDimensions, got %v", err)
	}
	if _, err := Resize(pattern(10, 10), 0, 0, ResizeWidth); !errors.Is(err, ErrBadDimensions) {
		t.Fatalf("expected ErrBadDimensions, got %v", err)
	}
}

func TestParseResizeMode(t *testing.T) {
	cases := []struct {
		in      string
		want    ResizeMode
		wantErr bool
	}{
		{"fit", ResizeFit, false},
		{"width", ResizeWidth, false},
		{"height", ResizeHeight, false},
		{"stretch", ResizeStretch, false},
		{"", ResizeFit, false},
		{"zoom", "", true},
	}
	for _, c := range cases {
		got, err := ParseResizeMode(c.in)
		if c.wantErr {
			if !errors.Is(err, ErrBadResizeMode) {
				t.Fatalf("mode %q: expected ErrBadResizeMode, got %v", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("mode %q: expected %q, got %q (err %v)", c.in, c.want, got, err)
		}
	}
}

func TestRotate_QuarterTurnClockwise(t *testing.T) {
	src := pattern(2, 1)
	out := Rotate(src, 90, color.Transparent)

	if out.Bounds().Dx() != 1 || out.Bounds().Dy() != 2 {
		t.Fatalf("expected 1x2, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
	// The left end of the strip becomes the top.
	if got, want := out.NRGBAAt(0, 0), src.NRGBAAt(0, 0); got != want {
		t.Fatalf("expected %v at top, got %v", want, got)
	}
	if got, want := out.NRGBAAt(0, 1), src.NRGBAAt(1, 0); got != want {
		t.Fatalf("expected %v at bottom, got %v", want, got)
	}
}

func TestRotate_NormalizesFullTurns(t *testing.T) {
	src := pattern(3, 2)
	a := Rotate(src, 450, color.Transparent)
	b := Rotate(src, 90, color.Transparent)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("expected 450 and 90 degree turns to agree")
	}

	c := Rotate(src, -360, color.Transparent)
	if !bytes.Equal(c.Pix, src.Pix) {
		t.Fatal("expected a full negative turn to be a no-op")
	}
}

func TestFlip_Horizontal(t *testing.T) {
	src := pattern(2, 1)
	out := Flip(src, true, false)
	if got, want := out.NRGBAAt(0, 0), src.NRGBAAt(1, 0); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got, want := out.NRGBAAt(1, 0), src.NRGBAAt(0, 0); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCrop_AutoAdjustClipsToBounds(t *testing.T) {
	src := pattern(4, 4)
	out, err := Crop(src, CropRect{X: 2, Y: 2, Width: 10, Height: 10}, true)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if out.Bounds().Dx() != 2 || out.Bounds().Dy() != 2 {
		t.Fatalf("expected 2x2, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
	if got, want := out.NRGBAAt(0, 0), src.NRGBAAt(2, 2); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCrop_StrictRejectsOverflow(t *testing.T) {
	if _, err := Crop(pattern(4, 4), CropRect{X: 2, Y: 2, Width: 10, Height: 10}, false); !errors.Is(err, ErrEmptyCrop) {
		t.Fatalf("expected ErrEmptyCrop, got %v", err)
	}
}

func TestCrop_DisjointRegionFails(t *testing.T) {
	if _, err := Crop(pattern(4, 4), CropRect{X: 10, Y: 10, Width: 5, Height: 5}, true); !errors.Is(err, ErrEmptyCrop) {
		t.Fatalf("expected ErrEmptyCrop, got %v", err)
	}
}

func TestConvert_RoundTripsPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := Convert(&buf, pattern(5, 3), "png", 0); err != nil {
		t.Fatalf("convert: %v", err)
	}

	img, format, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "png" {
		t.Fatalf("expected png, got %s", format)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 3 {
		t.Fatalf("expected 5x3, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestConvert_RejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Convert(&buf, pattern(2, 2), "webp", 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestInfo_ReadsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := Convert(&buf, pattern(5, 3), "png", 0); err != nil {
		t.Fatalf("convert: %v", err)
	}

	info, err := Info(&buf)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Width != 5 || info.Height != 3 || info.Format != "png" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestCompressToSize_MeetsTarget(t *testing.T) {
	img := noise(64, 64)

	size := func(quality int) int {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			t.Fatalf("encode: %v", err)
		}
		return buf.Len()
	}

	// A target between the smallest and largest encodings forces the search.
	target := (size(minJPEGQuality) + size(maxJPEGQuality)) / 2
	data, quality, err := CompressToSize(img, target)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(data) > target {
		t.Fatalf("expected at most %d bytes, got %d", target, len(data))
	}
	if quality < minJPEGQuality || quality > maxJPEGQuality {
		t.Fatalf("quality %d out of range", quality)
	}
}

func TestCompressToSize_GenerousTargetKeepsTopQuality(t *testing.T) {
	img := noise(32, 32)
	data, quality, err := CompressToSize(img, 10<<20)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if quality != maxJPEGQuality {
		t.Fatalf("expected quality %d, got %d", maxJPEGQuality, quality)
	}
	if len(data) == 0 {
		t.Fatal("expected encoded bytes")
	}
}

func TestCompressToSize_ImpossibleTarget(t *testing.T) {
	if _, _, err := CompressToSize(noise(32, 32), 1); !errors.Is(err, ErrTargetTooSmall) {
		t.Fatalf("expected ErrTargetTooSmall, got %v", err)
	}
}

func TestApply_RunsStagesInOrder(t *testing.T) {
	src := pattern(4, 2)
	out, err := Apply(src, PipelineOptions{
		Rotate: 90,
		Crop:   &CropRect{X: 0, Y: 0, Width: 2, Height: 2},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Bounds().Dx() != 2 || out.Bounds().Dy() != 2 {
		t.Fatalf("expected 2x2, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
	// Cropping after the clockwise turn keeps what was the left edge.
	if got, want := out.NRGBAAt(0, 0), src.NRGBAAt(0, 1); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got, want := out.NRGBAAt(1, 0), src.NRGBAAt(0, 0); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestApply_SingleDimensionInfersMode(t *testing.T) {
	out, err := Apply(pattern(100, 50), PipelineOptions{Width: 50})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 25 {
		t.Fatalf("expected 50x25, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}
