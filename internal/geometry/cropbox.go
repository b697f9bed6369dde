package geometry

// Handle identifies which crop-box edge or corner a resize drag grabbed, by
// compass position.
type Handle string

const (
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
	HandleNE Handle = "ne"
	HandleNW Handle = "nw"
	HandleSE Handle = "se"
	HandleSW Handle = "sw"
)

func (h Handle) touchesWest() bool  { return h == HandleW || h == HandleNW || h == HandleSW }
func (h Handle) touchesEast() bool  { return h == HandleE || h == HandleNE || h == HandleSE }
func (h Handle) touchesNorth() bool { return h == HandleN || h == HandleNW || h == HandleNE }
func (h Handle) touchesSouth() bool { return h == HandleS || h == HandleSW || h == HandleSE }

// Valid reports whether h names one of the eight compass handles.
func (h Handle) Valid() bool {
	return h.touchesWest() || h.touchesEast() || h.touchesNorth() || h.touchesSouth()
}

// Bounds is the rectangle the crop box is confined to: the container, with
// the origin at its top-left corner.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CropBox is the user-manipulated export region in UI pixels, anchored to
// the container's top-left corner.
type CropBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// The initial box covers this fraction of the smaller container dimension.
const defaultCropRatio = 0.8

// DefaultCropBox returns the initial box for a container: a centered square
// with a side of 80% of the smaller container dimension.
func DefaultCropBox(containerWidth, containerHeight float64) CropBox {
	side := containerWidth
	if containerHeight < side {
		side = containerHeight
	}
	side *= defaultCropRatio

	return CropBox{
		X:      (containerWidth - side) / 2,
		Y:      (containerHeight - side) / 2,
		Width:  side,
		Height: side,
	}
}

// Move translates the box by a drag delta, then clamps it back into bounds.
// The size never changes on a move.
func (b CropBox) Move(dx, dy float64, bounds Bounds) CropBox {
	b.X = clamp(b.X+dx, 0, bounds.Width-b.Width)
	b.Y = clamp(b.Y+dy, 0, bounds.Height-b.Height)
	return b
}

// Resize applies a drag delta to the edges named by the handle, keeping the
// opposite edge fixed. The receiver must be the box captured at drag start:
// deltas are measured from the gesture origin, never accumulated.
//
// Two corrections run after the raw resize, in order: an edge that crossed
// the container boundary is clamped back with the opposite edge pinned at
// its pre-drag position, then a dimension that fell below minSize is pinned
// to minSize anchored at the non-dragged edge. The minimum wins when the two
// conflict, so in a container smaller than minSize the box can overhang the
// boundary by up to minSize.
func (b CropBox) Resize(h Handle, dx, dy float64, bounds Bounds, minSize float64) CropBox {
	next := b

	if h.touchesWest() {
		next.X = b.X + dx
		next.Width = b.Width - dx
		if next.X < 0 {
			next.X = 0
			next.Width = b.X + b.Width
		}
		if next.Width < minSize {
			next.Width = minSize
			next.X = b.X + b.Width - minSize
		}
	} else if h.touchesEast() {
		next.Width = b.Width + dx
		if b.X+next.Width > bounds.Width {
			next.Width = bounds.Width - b.X
		}
		if next.Width < minSize {
			next.Width = minSize
		}
	}

	if h.touchesNorth() {
		next.Y = b.Y + dy
		next.Height = b.Height - dy
		if next.Y < 0 {
			next.Y = 0
			next.Height = b.Y + b.Height
		}
		if next.Height < minSize {
			next.Height = minSize
			next.Y = b.Y + b.Height - minSize
		}
	} else if h.touchesSouth() {
		next.Height = b.Height + dy
		if b.Y+next.Height > bounds.Height {
			next.Height = bounds.Height - b.Y
		}
		if next.Height < minSize {
			next.Height = minSize
		}
	}

	return next
}

// Within reports whether the box satisfies the containment and minimum-size
// invariants for the given bounds. Comparisons tolerate float round-off from
// the clamp arithmetic.
func (b CropBox) Within(bounds Bounds, minSize float64) bool {
	const eps = 1e-9
	return b.X >= -eps && b.Y >= -eps &&
		b.X+b.Width <= bounds.Width+eps &&
		b.Y+b.Height <= bounds.Height+eps &&
		b.Width >= minSize-eps && b.Height >= minSize-eps
}

// Center returns the center point of the box.
func (b CropBox) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
