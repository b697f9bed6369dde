package geometry

import (
	"math"
	"testing"
)

func TestMatrix_TranslatePoint(t *testing.T) {
	if !Identity().IsIdentity() {
		t.Fatalf("identity not identity")
	}
	x, y := Translate(10, -4).TransformPoint(1, 2)
	if x != 11 || y != -2 {
		t.Fatalf("expected (11,-2), got (%v,%v)", x, y)
	}
}

func TestMatrix_MultiplyAppliesRightHandFirst(t *testing.T) {
	// m * other applies other first: translate by 5, then scale by 2.
	m := Scale(2, 2).Multiply(Translate(5, 0))
	x, y := m.TransformPoint(1, 0)
	if x != 12 || y != 0 {
		t.Fatalf("expected (12,0), got (%v,%v)", x, y)
	}
}

func TestMatrix_RotateQuarterTurn(t *testing.T) {
	x, y := RotateDegrees(90).TransformPoint(1, 0)
	if math.Abs(x) > 1e-12 || math.Abs(y-1) > 1e-12 {
		t.Fatalf("expected (0,1), got (%v,%v)", x, y)
	}
}

func TestMatrix_InvertRoundTrip(t *testing.T) {
	m := Translate(12, -3).Multiply(RotateDegrees(37)).Multiply(Scale(2.5, 2.5))
	inv := m.Invert()

	fx, fy := m.TransformPoint(7, 11)
	x, y := inv.TransformPoint(fx, fy)
	if math.Abs(x-7) > 1e-9 || math.Abs(y-11) > 1e-9 {
		t.Fatalf("inverse round trip drifted to (%v,%v)", x, y)
	}
}

func TestMatrix_InvertSingularFallsBackToIdentity(t *testing.T) {
	if !Scale(0, 0).Invert().IsIdentity() {
		t.Fatalf("singular matrix should invert to identity")
	}
}
