package collab

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/imgstudio/imgstudio/backend-go/internal/document"
	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
)

// Options bound the geometry reducers. They mirror the editor layout
// configuration so every client of a room sees the same clamps.
type Options struct {
	MinDisplayWidth int
	MaxDisplayWidth int
	MinCropSize     float64
}

// RoomState holds the authoritative editing state for a room. Operations
// are applied under the lock, so concurrent edits from different clients
// serialize into one canonical sequence.
type RoomState struct {
	mu        sync.RWMutex
	doc       *document.Document
	opts      Options
	serverSeq int64
	dirty     bool
}

// NewRoomState wraps a loaded document. doc may be nil when the project
// has no image yet; every operation except doc.reset then fails.
func NewRoomState(doc *document.Document, opts Options) *RoomState {
	return &RoomState{
		doc:  doc,
		opts: opts,
	}
}

// Apply validates and applies an operation, returning the new server
// sequence number.
func (rs *RoomState) Apply(op Operation) (int64, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if err := rs.applyLocked(op); err != nil {
		return 0, err
	}

	rs.serverSeq++
	rs.dirty = true
	rs.doc.Version++
	rs.doc.UpdatedAt = time.Now().UTC()

	return rs.serverSeq, nil
}

func (rs *RoomState) applyLocked(op Operation) error {
	if op.Type == OpDocReset {
		return rs.applyReset(op)
	}
	if rs.doc == nil {
		return fmt.Errorf("project has no document")
	}

	switch op.Type {
	case OpTransformPan:
		if op.PanX == nil || op.PanY == nil {
			return fmt.Errorf("pan requires panX and panY")
		}
		rs.doc.Transform = rs.doc.Transform.WithPan(*op.PanX, *op.PanY)
	case OpTransformZoom:
		if op.Scale == nil {
			return fmt.Errorf("zoom requires scale")
		}
		rs.doc.Transform = rs.doc.Transform.WithScale(*op.Scale)
	case OpTransformRotate:
		if op.Degrees == nil {
			return fmt.Errorf("rotate requires degrees")
		}
		rs.doc.Transform = rs.doc.Transform.WithRotation(*op.Degrees)
	case OpCropMove:
		if op.DX == nil || op.DY == nil {
			return fmt.Errorf("crop move requires dx and dy")
		}
		rs.doc.Crop = rs.doc.Crop.Move(*op.DX, *op.DY, rs.doc.Geometry.Bounds())
	case OpCropResize:
		if op.DX == nil || op.DY == nil {
			return fmt.Errorf("crop resize requires dx and dy")
		}
		handle := geometry.Handle(op.Handle)
		if !handle.Valid() {
			return fmt.Errorf("unknown resize handle: %s", op.Handle)
		}
		rs.doc.Crop = rs.doc.Crop.Resize(handle, *op.DX, *op.DY, rs.doc.Geometry.Bounds(), rs.opts.MinCropSize)
	case OpCropSet:
		if op.Crop == nil {
			return fmt.Errorf("crop set requires a crop box")
		}
		if !op.Crop.Within(rs.doc.Geometry.Bounds(), rs.opts.MinCropSize) {
			return fmt.Errorf("crop box out of bounds")
		}
		rs.doc.Crop = *op.Crop
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
	return nil
}

func (rs *RoomState) applyReset(op Operation) error {
	g, err := geometry.Compute(op.NaturalWidth, op.NaturalHeight, rs.opts.MinDisplayWidth, rs.opts.MaxDisplayWidth)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	name := ""
	version := 0
	if rs.doc != nil {
		name = rs.doc.Name
		version = rs.doc.Version
	}

	doc := document.NewDocument(op.ImageID, name, g)
	doc.Version = version
	rs.doc = doc
	return nil
}

// State returns the current normalized editing state.
func (rs *RoomState) State() (DocStatePayload, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	if rs.doc == nil {
		return DocStatePayload{}, false
	}
	return DocStatePayload{
		Geometry:  rs.doc.Geometry,
		Transform: rs.doc.Transform,
		Crop:      rs.doc.Crop,
		Version:   rs.doc.Version,
	}, true
}

// Snapshot marshals the full document for sync and persistence.
func (rs *RoomState) Snapshot() (json.RawMessage, int64, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	if rs.doc == nil {
		return nil, rs.serverSeq, fmt.Errorf("no document")
	}
	data, err := json.Marshal(rs.doc)
	if err != nil {
		return nil, rs.serverSeq, err
	}
	return data, rs.serverSeq, nil
}

// TakeDirtySnapshot returns the document for saving and clears the dirty
// flag. ok is false when there is nothing to save.
func (rs *RoomState) TakeDirtySnapshot() (doc json.RawMessage, version int, ok bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.dirty || rs.doc == nil {
		return nil, 0, false
	}
	data, err := json.Marshal(rs.doc)
	if err != nil {
		return nil, 0, false
	}
	rs.dirty = false
	return data, rs.doc.Version, true
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
