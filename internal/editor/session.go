package editor

import (
	"encoding/json"
	"fmt"

	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
)

// Options configure how loaded images are fitted on screen and how small the
// crop box may get.
type Options struct {
	MinDisplayWidth int
	MaxDisplayWidth int
	MinCropSize     float64
}

// DefaultOptions returns the display bounds the studio ships with.
func DefaultOptions() Options {
	return Options{
		MinDisplayWidth: 320,
		MaxDisplayWidth: 800,
		MinCropSize:     50,
	}
}

type dragKind int

const (
	dragNone dragKind = iota
	dragMove
	dragResize
	dragPan
)

// Session is the interactive editing facade driven by a UI event loop. It
// owns one image's live crop state and routes pointer input through the pure
// geometry reducers. Not safe for concurrent use; each caller owns its
// session.
type Session struct {
	opts Options

	geom      geometry.ImageGeometry
	transform geometry.Transform
	crop      geometry.CropBox

	// Drag-start snapshot. Deltas always apply to the state captured at
	// gesture start, never to the live value, so long drags cannot drift.
	drag       dragKind
	dragHandle geometry.Handle
	dragCrop   geometry.CropBox
	dragPanX   float64
	dragPanY   float64
}

// NewSession creates a session. Zero option fields fall back to defaults.
func NewSession(opts Options) *Session {
	def := DefaultOptions()
	if opts.MinDisplayWidth <= 0 {
		opts.MinDisplayWidth = def.MinDisplayWidth
	}
	if opts.MaxDisplayWidth <= 0 {
		opts.MaxDisplayWidth = def.MaxDisplayWidth
	}
	if opts.MinCropSize <= 0 {
		opts.MinCropSize = def.MinCropSize
	}
	return &Session{opts: opts}
}

// --- Commands (UI → session) ---

// LoadImage computes the display geometry for a new image and resets the
// transform and crop box.
func (s *Session) LoadImage(naturalWidth, naturalHeight int) error {
	g, err := geometry.Compute(naturalWidth, naturalHeight, s.opts.MinDisplayWidth, s.opts.MaxDisplayWidth)
	if err != nil {
		return err
	}

	s.geom = g
	s.transform = geometry.DefaultTransform()
	b := g.Bounds()
	s.crop = geometry.DefaultCropBox(b.Width, b.Height)
	s.drag = dragNone
	return nil
}

// LoadDemoImage loads a fixed-size placeholder used by the frontend before
// any upload happens.
func (s *Session) LoadDemoImage() {
	_ = s.LoadImage(1600, 1200)
}

// Loaded reports whether an image has been loaded.
func (s *Session) Loaded() bool {
	return !s.geom.IsZero()
}

// SetScale clamps and stores the zoom factor.
func (s *Session) SetScale(v float64) {
	s.transform = s.transform.WithScale(v)
}

// SetRotation normalizes and stores an absolute angle.
func (s *Session) SetRotation(degrees float64) {
	s.transform = s.transform.WithRotation(degrees)
}

// RotateBy adds to the current angle, normalizing the result. Used by the
// quarter-turn buttons.
func (s *Session) RotateBy(delta float64) {
	s.transform = s.transform.WithRotation(s.transform.RotateDegrees + delta)
}

// SetPan stores an absolute pan offset.
func (s *Session) SetPan(x, y float64) {
	s.transform = s.transform.WithPan(x, y)
}

// Reset discards the transform and crop state, keeping the loaded image.
func (s *Session) Reset() {
	s.transform = geometry.DefaultTransform()
	if !s.geom.IsZero() {
		b := s.geom.Bounds()
		s.crop = geometry.DefaultCropBox(b.Width, b.Height)
	}
	s.drag = dragNone
}

// --- Drag lifecycle ---
//
// A Begin call snapshots the state the gesture starts from; Drag recomputes
// the absolute state from that snapshot plus the live delta. Starting a new
// gesture while one is active simply replaces the snapshot, which acts as
// the implicit cancel for a missed pointer-up.

// BeginMove starts a crop-box move gesture.
func (s *Session) BeginMove() {
	s.drag = dragMove
	s.dragCrop = s.crop
}

// BeginResize starts a crop-box resize gesture on the given handle.
func (s *Session) BeginResize(h geometry.Handle) error {
	if !h.Valid() {
		return fmt.Errorf("unknown resize handle %q", h)
	}
	s.drag = dragResize
	s.dragHandle = h
	s.dragCrop = s.crop
	return nil
}

// BeginPan starts an image pan gesture.
func (s *Session) BeginPan() {
	s.drag = dragPan
	s.dragPanX = s.transform.PanX
	s.dragPanY = s.transform.PanY
}

// Drag applies the gesture's total delta since Begin.
func (s *Session) Drag(dx, dy float64) {
	switch s.drag {
	case dragMove:
		s.crop = s.dragCrop.Move(dx, dy, s.geom.Bounds())
	case dragResize:
		s.crop = s.dragCrop.Resize(s.dragHandle, dx, dy, s.geom.Bounds(), s.opts.MinCropSize)
	case dragPan:
		s.transform = s.transform.WithPan(s.dragPanX+dx, s.dragPanY+dy)
	}
}

// EndDrag finishes the active gesture.
func (s *Session) EndDrag() {
	s.drag = dragNone
}

// --- Queries (session → UI) ---

// Geometry returns the current image geometry.
func (s *Session) Geometry() geometry.ImageGeometry {
	return s.geom
}

// Transform returns the current transform state.
func (s *Session) Transform() geometry.Transform {
	return s.transform
}

// Crop returns the current crop box.
func (s *Session) Crop() geometry.CropBox {
	return s.crop
}

// Project computes the export recipe for the current state.
func (s *Session) Project() (geometry.ExportResult, error) {
	return geometry.Project(s.geom, s.transform, s.crop)
}

// State bundles everything the preview layer needs to position itself.
type State struct {
	Geometry  geometry.ImageGeometry `json:"geometry"`
	Transform geometry.Transform     `json:"transform"`
	Crop      geometry.CropBox       `json:"crop"`
}

// GetState returns the full session state as JSON.
func (s *Session) GetState() string {
	data, _ := json.Marshal(State{Geometry: s.geom, Transform: s.transform, Crop: s.crop})
	return string(data)
}

// GetGeometry returns the image geometry as JSON.
func (s *Session) GetGeometry() string {
	data, _ := json.Marshal(s.geom)
	return string(data)
}

// GetTransform returns the transform state as JSON.
func (s *Session) GetTransform() string {
	data, _ := json.Marshal(s.transform)
	return string(data)
}

// GetCropBox returns the crop box as JSON.
func (s *Session) GetCropBox() string {
	data, _ := json.Marshal(s.crop)
	return string(data)
}

// PreviewCSS returns the transform string the preview layer applies to the
// centered image element. The order matches the export recipe: translate,
// then rotate, then scale.
func (s *Session) PreviewCSS() string {
	t := s.transform
	return fmt.Sprintf("translate(-50%%, -50%%) translate(%gpx, %gpx) rotate(%gdeg) scale(%g)",
		t.PanX, t.PanY, t.RotateDegrees, t.Scale)
}

// ProjectJSON computes the export recipe and serializes it for the bridge.
// Errors come back as {"error": "..."} so the frontend has one decode path.
func (s *Session) ProjectJSON() string {
	res, err := s.Project()
	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(data)
	}
	out, err := geometry.RecipeToJSON(res)
	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(data)
	}
	return out
}
