package geometry

import "math"

// Scale limits for the interactive zoom. The lower bound keeps the image
// from shrinking below container coverage.
const (
	MinScale = 1.0
	MaxScale = 5.0
)

// Transform holds the image's pan/zoom/rotate state. PanX/PanY offset the
// image center from the container center, in UI pixels. Scale is a unitless
// multiplier and RotateDegrees is kept normalized to [0,360).
type Transform struct {
	PanX          float64 `json:"panX"`
	PanY          float64 `json:"panY"`
	Scale         float64 `json:"scale"`
	RotateDegrees float64 `json:"rotateDegrees"`
}

// DefaultTransform returns the identity state a freshly loaded image starts in.
func DefaultTransform() Transform {
	return Transform{Scale: 1}
}

// WithScale returns the state with the scale clamped into [MinScale, MaxScale].
func (t Transform) WithScale(v float64) Transform {
	if v < MinScale {
		v = MinScale
	}
	if v > MaxScale {
		v = MaxScale
	}
	t.Scale = v
	return t
}

// WithRotation returns the state with the angle normalized into [0,360).
func (t Transform) WithRotation(degrees float64) Transform {
	t.RotateDegrees = NormalizeDegrees(degrees)
	return t
}

// WithPan returns the state with the pan offset replaced. Pan is
// unconstrained: the crop box, not the pan, is the user-visible boundary.
func (t Transform) WithPan(x, y float64) Transform {
	t.PanX = x
	t.PanY = y
	return t
}

// NormalizeDegrees maps an angle into the canonical [0,360) range.
func NormalizeDegrees(degrees float64) float64 {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return d
}
