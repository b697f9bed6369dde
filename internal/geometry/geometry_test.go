package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestCompute_ShrinksLargeImage(t *testing.T) {
	g, err := Compute(2500, 2500, 320, 800)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if g.DisplayMultiplier != 0.32 {
		t.Fatalf("expected multiplier 0.32, got %v", g.DisplayMultiplier)
	}
	if g.ContainerWidth != 800 || g.ContainerHeight != 800 {
		t.Fatalf("expected 800x800 container, got %dx%d", g.ContainerWidth, g.ContainerHeight)
	}
}

func TestCompute_EnlargesSmallImage(t *testing.T) {
	g, err := Compute(160, 100, 320, 800)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if g.DisplayMultiplier != 2 {
		t.Fatalf("expected multiplier 2, got %v", g.DisplayMultiplier)
	}
	if g.ContainerWidth != 320 || g.ContainerHeight != 200 {
		t.Fatalf("expected 320x200 container, got %dx%d", g.ContainerWidth, g.ContainerHeight)
	}
}

func TestCompute_NativeSizeInBetween(t *testing.T) {
	g, err := Compute(500, 400, 320, 800)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if g.DisplayMultiplier != 1 {
		t.Fatalf("expected multiplier 1, got %v", g.DisplayMultiplier)
	}
	if g.ContainerWidth != 500 || g.ContainerHeight != 400 {
		t.Fatalf("expected native 500x400 container, got %dx%d", g.ContainerWidth, g.ContainerHeight)
	}
}

func TestCompute_RejectsInvalidDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 100}, {100, 0}, {-1, 100}, {100, -5}} {
		_, err := Compute(dims[0], dims[1], 320, 800)
		if !errors.Is(err, ErrInvalidImageDimensions) {
			t.Fatalf("dims %v: expected ErrInvalidImageDimensions, got %v", dims, err)
		}
	}
}

func TestCompute_PreservesAspectRatio(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		nw := 1 + rng.Intn(10000)
		nh := 1 + rng.Intn(10000)

		g, err := Compute(nw, nh, 320, 800)
		if err != nil {
			t.Fatalf("compute %dx%d: %v", nw, nh, err)
		}

		// Height implied by the container width at the natural aspect ratio
		// must match the computed height within 1px of rounding.
		ideal := float64(g.ContainerWidth) * float64(nh) / float64(nw)
		if math.Abs(float64(g.ContainerHeight)-ideal) > 1 {
			t.Fatalf("aspect drift for %dx%d: container %dx%d, ideal height %v",
				nw, nh, g.ContainerWidth, g.ContainerHeight, ideal)
		}
	}
}

func TestImageGeometry_IsZero(t *testing.T) {
	var g ImageGeometry
	if !g.IsZero() {
		t.Fatalf("zero value should report IsZero")
	}
	g, _ = Compute(100, 100, 50, 800)
	if g.IsZero() {
		t.Fatalf("computed geometry should not report IsZero")
	}
}
