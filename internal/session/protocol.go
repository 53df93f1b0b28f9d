package session

import "encoding/json"

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Stage is the authoring step a collaborator is currently working in.
type Stage string

const (
	StageCutout  Stage = "cutout"
	StageParts   Stage = "parts"
	StageRig     Stage = "rig"
	StageAnimate Stage = "animate"
)

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"` // canvas coordinates
	Selection   []string   `json:"selection,omitempty"`
	Stage       Stage      `json:"stage,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
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

// Operation names understood by the room's document state.
const (
	OpPointAdd        = "point.add"
	OpPointMove       = "point.move"
	OpPointReparent   = "point.reparent"
	OpPointDelete     = "point.delete"
	OpKeyframeAdd     = "keyframe.add"
	OpKeyframeRemove  = "keyframe.remove"
	OpAnimationUpdate = "animation.update"
	OpPartUpdate      = "part.update"
	OpProjectRename   = "project.rename"
)

// Operation represents a single rig document mutation.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`

	// For point.* operations
	PointID     string          `json:"pointId,omitempty"`
	Point       json.RawMessage `json:"point,omitempty"`
	Move        json.RawMessage `json:"move,omitempty"`
	NewParentID *string         `json:"newParentId,omitempty"`

	// For keyframe.* operations
	AnimationID string          `json:"animationId,omitempty"`
	KeyframeID  string          `json:"keyframeId,omitempty"`
	Keyframe    json.RawMessage `json:"keyframe,omitempty"`

	// For animation.update / part.update
	Changes json.RawMessage `json:"changes,omitempty"`
	PartID  string          `json:"partId,omitempty"`

	// For project.rename
	Name string `json:"name,omitempty"`
}

type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}
