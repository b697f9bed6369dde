package geometry

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestProject_FullContainerIdentityRoundTrip(t *testing.T) {
	g, err := Compute(640, 480, 320, 800)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	crop := CropBox{X: 0, Y: 0, Width: 640, Height: 480}

	res, err := Project(g, DefaultTransform(), crop)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if res.OutputWidth != 640 || res.OutputHeight != 480 {
		t.Fatalf("expected natural 640x480 output, got %dx%d", res.OutputWidth, res.OutputHeight)
	}
}

func TestProject_RemovesDisplayMagnification(t *testing.T) {
	g, err := Compute(2500, 2500, 320, 800)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	crop := CropBox{X: 200, Y: 200, Width: 400, Height: 400}

	res, err := Project(g, DefaultTransform(), crop)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if res.OutputWidth != 1250 || res.OutputHeight != 1250 {
		t.Fatalf("expected 1250x1250 output, got %dx%d", res.OutputWidth, res.OutputHeight)
	}
}

func TestProject_Idempotent(t *testing.T) {
	g, _ := Compute(1200, 900, 320, 800)
	tf := DefaultTransform().WithPan(12, -7).WithScale(2.5).WithRotation(33)
	crop := CropBox{X: 100, Y: 80, Width: 300, Height: 200}

	a, err := Project(g, tf, crop)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	b, err := Project(g, tf, crop)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs produced different results:\n%+v\n%+v", a, b)
	}
}

func TestProject_RecipeOrder(t *testing.T) {
	g, _ := Compute(640, 480, 320, 800)
	crop := DefaultCropBox(640, 480)

	res, err := Project(g, DefaultTransform().WithRotation(90).WithScale(2), crop)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	want := []string{OpTranslate, OpRotate, OpScale, OpDrawImage}
	if len(res.Recipe) != len(want) {
		t.Fatalf("expected %d ops, got %d", len(want), len(res.Recipe))
	}
	for i, op := range res.Recipe {
		if op.Op != want[i] {
			t.Fatalf("op %d: expected %q, got %q", i, want[i], op.Op)
		}
	}
	if res.Recipe[1].Args[0] != 90 {
		t.Fatalf("rotate op lost angle: %v", res.Recipe[1].Args)
	}
	if res.Recipe[2].Args[0] != 2 || res.Recipe[2].Args[1] != 2 {
		t.Fatalf("scale op lost factor: %v", res.Recipe[2].Args)
	}
}

func TestProject_DegenerateCrop(t *testing.T) {
	g, _ := Compute(640, 480, 320, 800)

	_, err := Project(g, DefaultTransform(), CropBox{Width: 0.2, Height: 100})
	if !errors.Is(err, ErrDegenerateCropBox) {
		t.Fatalf("expected ErrDegenerateCropBox, got %v", err)
	}

	_, err = Project(g, DefaultTransform(), CropBox{Width: 100, Height: -5})
	if !errors.Is(err, ErrDegenerateCropBox) {
		t.Fatalf("expected ErrDegenerateCropBox, got %v", err)
	}
}

func TestProject_MissingGeometry(t *testing.T) {
	_, err := Project(ImageGeometry{}, DefaultTransform(), CropBox{Width: 100, Height: 100})
	if !errors.Is(err, ErrMissingGeometry) {
		t.Fatalf("expected ErrMissingGeometry, got %v", err)
	}
}

func TestRecipeMatrix_MapsCropRegionOntoCanvas(t *testing.T) {
	g, _ := Compute(2500, 2500, 320, 800)
	crop := CropBox{X: 200, Y: 200, Width: 400, Height: 400}

	res, err := Project(g, DefaultTransform(), crop)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	m := res.Matrix()

	// Crop top-left in natural pixels is (200/0.32, 200/0.32) = (625, 625)
	// and must land on the canvas origin.
	x, y := m.TransformPoint(625, 625)
	if math.Abs(x) > 1e-9 || math.Abs(y) > 1e-9 {
		t.Fatalf("crop origin mapped to (%v,%v), want (0,0)", x, y)
	}

	x, y = m.TransformPoint(625+1250, 625+1250)
	if math.Abs(x-1250) > 1e-9 || math.Abs(y-1250) > 1e-9 {
		t.Fatalf("crop far corner mapped to (%v,%v), want (1250,1250)", x, y)
	}
}

func TestRecipeMatrix_RotationPivotsAboutImageCenter(t *testing.T) {
	g, _ := Compute(2500, 2500, 320, 800)
	crop := CropBox{X: 200, Y: 200, Width: 400, Height: 400}

	res, err := Project(g, DefaultTransform().WithRotation(90), crop)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	m := res.Matrix()

	// The image center stays put under rotation.
	cx, cy := m.TransformPoint(1250, 1250)
	if math.Abs(cx-625) > 1e-9 || math.Abs(cy-625) > 1e-9 {
		t.Fatalf("image center mapped to (%v,%v), want (625,625)", cx, cy)
	}

	// A point to the right of center swings below it at +90 degrees.
	x, y := m.TransformPoint(1350, 1250)
	if math.Abs(x-625) > 1e-9 || math.Abs(y-725) > 1e-9 {
		t.Fatalf("rotated point mapped to (%v,%v), want (625,725)", x, y)
	}
}

func TestRecipeToJSON(t *testing.T) {
	g, _ := Compute(640, 480, 320, 800)
	res, err := Project(g, DefaultTransform(), DefaultCropBox(640, 480))
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	s, err := RecipeToJSON(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if s == "" || s == "{}" {
		t.Fatalf("empty serialization")
	}
}
