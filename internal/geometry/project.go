package geometry

import (
	"encoding/json"
	"errors"
	"math"
)

var (
	// ErrDegenerateCropBox is returned when the crop box rounds to a
	// non-positive output size.
	ErrDegenerateCropBox = errors.New("degenerate crop box")
	// ErrMissingGeometry is returned when an export is requested before an
	// image has been loaded.
	ErrMissingGeometry = errors.New("missing image geometry")
)

// Op names understood by recipe executors.
const (
	OpTranslate = "translate"
	OpRotate    = "rotate"
	OpScale     = "scale"
	OpDrawImage = "drawImage"
)

// DrawOp is a single drawing instruction for the executor. Transform ops
// accumulate in order on a canvas whose origin is the output's top-left
// corner; drawImage paints the full natural-size source through the
// accumulated transform.
type DrawOp struct {
	Op   string    `json:"op"`
	Args []float64 `json:"args,omitempty"`
}

// ExportResult is the rasterization recipe for one crop state. Output
// dimensions are natural pixels: the recipe reproduces exactly what the
// preview composited, independent of how much the display scaled it.
type ExportResult struct {
	OutputWidth  int      `json:"outputWidth"`
	OutputHeight int      `json:"outputHeight"`
	Recipe       []DrawOp `json:"recipe"`
}

// Project maps the UI-space crop state back to a natural-pixel drawing
// recipe. The op order (translate, rotate, scale, draw) must match the
// preview compositing order exactly: rotation and scale act in the already
// translated frame, so reordering would pivot the image about the wrong
// point.
func Project(g ImageGeometry, t Transform, crop CropBox) (ExportResult, error) {
	if g.IsZero() {
		return ExportResult{}, ErrMissingGeometry
	}

	m := g.DisplayMultiplier
	outW := int(math.Round(crop.Width / m))
	outH := int(math.Round(crop.Height / m))
	if outW <= 0 || outH <= 0 {
		return ExportResult{}, ErrDegenerateCropBox
	}

	// UI-space vector from the displayed image center to the crop center,
	// converted to natural pixels.
	cropCX, cropCY := crop.Center()
	distX := (cropCX - (float64(g.ContainerWidth)/2 + t.PanX)) / m
	distY := (cropCY - (float64(g.ContainerHeight)/2 + t.PanY)) / m

	return ExportResult{
		OutputWidth:  outW,
		OutputHeight: outH,
		Recipe: []DrawOp{
			{Op: OpTranslate, Args: []float64{float64(outW)/2 - distX, float64(outH)/2 - distY}},
			{Op: OpRotate, Args: []float64{t.RotateDegrees}},
			{Op: OpScale, Args: []float64{t.Scale, t.Scale}},
			{Op: OpDrawImage, Args: []float64{
				-float64(g.NaturalWidth) / 2,
				-float64(g.NaturalHeight) / 2,
				float64(g.NaturalWidth),
				float64(g.NaturalHeight),
			}},
		},
	}, nil
}

// Matrix composes the recipe's transform ops, including the draw rectangle's
// origin offset, into a single matrix mapping source pixel coordinates to
// output canvas coordinates.
func (r ExportResult) Matrix() Matrix2D {
	m := Identity()
	for _, op := range r.Recipe {
		switch op.Op {
		case OpTranslate:
			if len(op.Args) >= 2 {
				m = m.Multiply(Translate(op.Args[0], op.Args[1]))
			}
		case OpRotate:
			if len(op.Args) >= 1 {
				m = m.Multiply(RotateDegrees(op.Args[0]))
			}
		case OpScale:
			if len(op.Args) >= 2 {
				m = m.Multiply(Scale(op.Args[0], op.Args[1]))
			}
		case OpDrawImage:
			if len(op.Args) >= 2 {
				m = m.Multiply(Translate(op.Args[0], op.Args[1]))
			}
		}
	}
	return m
}

// RecipeToJSON serializes an export result for wire transport.
func RecipeToJSON(r ExportResult) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "{}", err
	}
	return string(data), nil
}
