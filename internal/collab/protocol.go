package collab

import (
	"encoding/json"

	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
)

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor       *CursorPos `json:"cursor,omitempty"`
	ActiveHandle string     `json:"activeHandle,omitempty"`
	DisplayName  string     `json:"displayName,omitempty"`
	Color        string     `json:"color,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceStatePayload maps client IDs to their live presence.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	ClientID    string `json:"clientId"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

type PresenceLeavePayload struct {
	UserID   string `json:"userId"`
	ClientID string `json:"clientId"`
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
	Color    string `json:"color"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync = "doc.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// Operation kinds a client may submit.
const (
	OpTransformPan    = "transform.pan"
	OpTransformZoom   = "transform.zoom"
	OpTransformRotate = "transform.rotate"
	OpCropMove        = "crop.move"
	OpCropResize      = "crop.resize"
	OpCropSet         = "crop.set"
	OpDocReset        = "doc.reset"
)

// Operation represents a document mutation. The server is authoritative:
// pan, zoom and rotation carry the requested absolute value, crop gestures
// carry deltas, and the applied (clamped) result is echoed back in the
// ack and broadcast.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`

	// For transform.pan
	PanX *float64 `json:"panX,omitempty"`
	PanY *float64 `json:"panY,omitempty"`

	// For transform.zoom
	Scale *float64 `json:"scale,omitempty"`

	// For transform.rotate
	Degrees *float64 `json:"degrees,omitempty"`

	// For crop.move and crop.resize
	DX *float64 `json:"dx,omitempty"`
	DY *float64 `json:"dy,omitempty"`

	// For crop.resize
	Handle string `json:"handle,omitempty"`

	// For crop.set
	Crop *geometry.CropBox `json:"crop,omitempty"`

	// For doc.reset
	ImageID       string `json:"imageId,omitempty"`
	NaturalWidth  int    `json:"naturalWidth,omitempty"`
	NaturalHeight int    `json:"naturalHeight,omitempty"`
}

// DocStatePayload is the normalized editing state after an operation.
type DocStatePayload struct {
	Geometry  geometry.ImageGeometry `json:"geometry"`
	Transform geometry.Transform     `json:"transform"`
	Crop      geometry.CropBox       `json:"crop"`
	Version   int                    `json:"version"`
}

// DocSyncPayload carries the full document on join.
type DocSyncPayload struct {
	Document  json.RawMessage `json:"document"`
	ServerSeq int64           `json:"serverSeq"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string          `json:"operationId"`
	ServerSeq       int64           `json:"serverSeq"`
	ServerTimestamp int64           `json:"serverTimestamp"`
	State           DocStatePayload `json:"state"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation       `json:"operation"`
	UserID    string          `json:"userId"`
	ServerSeq int64           `json:"serverSeq"`
	State     DocStatePayload `json:"state"`
}
