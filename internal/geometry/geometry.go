package geometry

import (
	"errors"
	"math"
)

// ErrInvalidImageDimensions is returned when an image reports a zero or
// negative natural size.
var ErrInvalidImageDimensions = errors.New("invalid image dimensions")

// ImageGeometry describes how a loaded image maps onto the on-screen
// container. The display multiplier converts natural image pixels to UI
// pixels; the container keeps the image's aspect ratio while staying inside
// the configured display bounds. Computed once per loaded image and treated
// as immutable until the next image loads.
type ImageGeometry struct {
	NaturalWidth      int     `json:"naturalWidth"`
	NaturalHeight     int     `json:"naturalHeight"`
	DisplayMultiplier float64 `json:"displayMultiplier"`
	ContainerWidth    int     `json:"containerWidth"`
	ContainerHeight   int     `json:"containerHeight"`
}

// Compute derives the display multiplier and container dimensions for an
// image. Images wider than maxDisplayWidth shrink to fit it, images narrower
// than minDisplayWidth are enlarged to reach it, and anything in between
// displays at native size.
func Compute(naturalWidth, naturalHeight, minDisplayWidth, maxDisplayWidth int) (ImageGeometry, error) {
	if naturalWidth <= 0 || naturalHeight <= 0 {
		return ImageGeometry{}, ErrInvalidImageDimensions
	}

	m := 1.0
	switch {
	case naturalWidth > maxDisplayWidth:
		m = float64(maxDisplayWidth) / float64(naturalWidth)
	case naturalWidth < minDisplayWidth:
		m = float64(minDisplayWidth) / float64(naturalWidth)
	}

	return ImageGeometry{
		NaturalWidth:      naturalWidth,
		NaturalHeight:     naturalHeight,
		DisplayMultiplier: m,
		ContainerWidth:    int(math.Round(float64(naturalWidth) * m)),
		ContainerHeight:   int(math.Round(float64(naturalHeight) * m)),
	}, nil
}

// Bounds returns the container dimensions as crop-box bounds.
func (g ImageGeometry) Bounds() Bounds {
	return Bounds{Width: float64(g.ContainerWidth), Height: float64(g.ContainerHeight)}
}

// IsZero reports whether no geometry has been computed yet.
func (g ImageGeometry) IsZero() bool {
	return g.DisplayMultiplier == 0
}
