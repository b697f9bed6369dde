package collab

import (
	"strings"
	"testing"

	"github.com/imgstudio/imgstudio/backend-go/internal/document"
	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
)

func testOptions() Options {
	return Options{
		MinDisplayWidth: 320,
		MaxDisplayWidth: 800,
		MinCropSize:     50,
	}
}

func newTestState(t *testing.T) *RoomState {
	t.Helper()
	g, err := geometry.Compute(1600, 1200, 320, 800)
	if err != nil {
		t.Fatalf("compute geometry: %v", err)
	}
	doc := document.NewDocument("img_test", "demo", g)
	return NewRoomState(doc, testOptions())
}

func f(v float64) *float64 { return &v }

func TestApply_PanSetsAbsoluteValue(t *testing.T) {
	rs := newTestState(t)

	seq, err := rs.Apply(Operation{Type: OpTransformPan, PanX: f(40), PanY: f(-15)})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected seq 1, got %d", seq)
	}

	state, ok := rs.State()
	if !ok {
		t.Fatal("expected state")
	}
	if state.Transform.PanX != 40 || state.Transform.PanY != -15 {
		t.Fatalf("unexpected pan: %+v", state.Transform)
	}
}

func TestApply_ZoomClampsToRange(t *testing.T) {
	rs := newTestState(t)

	if _, err := rs.Apply(Operation{Type: OpTransformZoom, Scale: f(12)}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	state, _ := rs.State()
	if state.Transform.Scale != geometry.MaxScale {
		t.Fatalf("expected scale clamped to %v, got %v", geometry.MaxScale, state.Transform.Scale)
	}
}

func TestApply_RotateNormalizes(t *testing.T) {
	rs := newTestState(t)

	if _, err := rs.Apply(Operation{Type: OpTransformRotate, Degrees: f(-90)}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	state, _ := rs.State()
	if state.Transform.RotateDegrees != 270 {
		t.Fatalf("expected 270 degrees, got %v", state.Transform.RotateDegrees)
	}
}

func TestApply_CropMoveClampsAtEdge(t *testing.T) {
	rs := newTestState(t)

	if _, err := rs.Apply(Operation{Type: OpCropMove, DX: f(-10000), DY: f(-10000)}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	state, _ := rs.State()
	if state.Crop.X != 0 || state.Crop.Y != 0 {
		t.Fatalf("expected crop pinned to origin, got %+v", state.Crop)
	}
}

func TestApply_CropResizeHonorsHandle(t *testing.T) {
	rs := newTestState(t)
	before, _ := rs.State()

	if _, err := rs.Apply(Operation{Type: OpCropResize, Handle: "se", DX: f(-30), DY: f(-20)}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	state, _ := rs.State()
	if state.Crop.Width != before.Crop.Width-30 {
		t.Fatalf("expected width %v, got %v", before.Crop.Width-30, state.Crop.Width)
	}
	if state.Crop.Height != before.Crop.Height-20 {
		t.Fatalf("expected height %v, got %v", before.Crop.Height-20, state.Crop.Height)
	}
	if state.Crop.X != before.Crop.X || state.Crop.Y != before.Crop.Y {
		t.Fatal("southeast resize must not move the origin")
	}
}

func TestApply_CropResizeRejectsUnknownHandle(t *testing.T) {
	rs := newTestState(t)

	_, err := rs.Apply(Operation{Type: OpCropResize, Handle: "center", DX: f(1), DY: f(1)})
	if err == nil || !strings.Contains(err.Error(), "unknown resize handle") {
		t.Fatalf("expected handle error, got %v", err)
	}
}

func TestApply_CropSetRejectsOutOfBounds(t *testing.T) {
	rs := newTestState(t)

	_, err := rs.Apply(Operation{Type: OpCropSet, Crop: &geometry.CropBox{X: -5, Y: 0, Width: 100, Height: 100}})
	if err == nil {
		t.Fatal("expected error for out-of-bounds crop")
	}

	ok := geometry.CropBox{X: 10, Y: 10, Width: 100, Height: 100}
	if _, err := rs.Apply(Operation{Type: OpCropSet, Crop: &ok}); err != nil {
		t.Fatalf("apply valid crop: %v", err)
	}

	state, _ := rs.State()
	if state.Crop != ok {
		t.Fatalf("expected %+v, got %+v", ok, state.Crop)
	}
}

func TestApply_ResetReplacesDocument(t *testing.T) {
	rs := newTestState(t)
	if _, err := rs.Apply(Operation{Type: OpTransformPan, PanX: f(50), PanY: f(50)}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	_, err := rs.Apply(Operation{Type: OpDocReset, ImageID: "img_next", NaturalWidth: 2500, NaturalHeight: 2500})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}

	state, _ := rs.State()
	if state.Geometry.DisplayMultiplier != 0.32 {
		t.Fatalf("expected multiplier 0.32, got %v", state.Geometry.DisplayMultiplier)
	}
	if state.Transform != geometry.DefaultTransform() {
		t.Fatalf("expected default transform, got %+v", state.Transform)
	}
}

func TestApply_WithoutDocumentFails(t *testing.T) {
	rs := NewRoomState(nil, testOptions())

	if _, err := rs.Apply(Operation{Type: OpTransformPan, PanX: f(1), PanY: f(1)}); err == nil {
		t.Fatal("expected error on empty room")
	}

	// doc.reset bootstraps the document.
	if _, err := rs.Apply(Operation{Type: OpDocReset, ImageID: "img_new", NaturalWidth: 640, NaturalHeight: 480}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok := rs.State(); !ok {
		t.Fatal("expected document after reset")
	}
}

func TestApply_SequenceAndVersionAdvance(t *testing.T) {
	rs := newTestState(t)
	before, _ := rs.State()

	for i := 1; i <= 3; i++ {
		seq, err := rs.Apply(Operation{Type: OpTransformZoom, Scale: f(2)})
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		if seq != int64(i) {
			t.Fatalf("expected seq %d, got %d", i, seq)
		}
	}

	state, _ := rs.State()
	if state.Version != before.Version+3 {
		t.Fatalf("expected version %d, got %d", before.Version+3, state.Version)
	}
}

func TestTakeDirtySnapshot_ClearsFlag(t *testing.T) {
	rs := newTestState(t)

	if _, _, ok := rs.TakeDirtySnapshot(); ok {
		t.Fatal("fresh state must not be dirty")
	}

	if _, err := rs.Apply(Operation{Type: OpTransformPan, PanX: f(5), PanY: f(5)}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	doc, version, ok := rs.TakeDirtySnapshot()
	if !ok || len(doc) == 0 {
		t.Fatal("expected dirty snapshot after edit")
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}

	if _, _, ok := rs.TakeDirtySnapshot(); ok {
		t.Fatal("snapshot must clear the dirty flag")
	}
}
