package tap

import "time"

// SelectedCardKey is the config store key holding the user's chosen card.
const SelectedCardKey = "selectedBeepCard"

// Phase is the operationally meaningful state of a tap session.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseConnecting           Phase = "connecting"
	PhaseAwaitingCameraGrant  Phase = "awaiting_camera_grant"
	PhaseCardRequired         Phase = "card_required" // connected, but nothing to publish
	PhaseScanning             Phase = "scanning"
	PhaseJoiningAndPublishing Phase = "joining_and_publishing"
	PhaseAwaitingOutcome      Phase = "awaiting_outcome"
	PhaseSucceeded            Phase = "succeeded"
	PhaseFailed               Phase = "failed"
	PhaseDisconnectedIdle     Phase = "disconnected_idle"
)

// IsTerminal reports whether the phase ends the tap transaction.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// IsIdle reports whether no connection is held or being established.
func (p Phase) IsIdle() bool {
	return p == PhaseIdle || p == PhaseDisconnectedIdle
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// ConnectionState mirrors the relay channel as seen by the coordinator.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
)

// CameraState tracks camera authorization for the session.
type CameraState string

const (
	CameraUnrequested CameraState = "unrequested"
	CameraRequesting  CameraState = "requesting"
	CameraGranted     CameraState = "granted"
	CameraDenied      CameraState = "denied"
)

// CameraFacing selects which physical camera feeds the recognizer.
type CameraFacing string

const (
	FacingBack  CameraFacing = "back"
	FacingFront CameraFacing = "front"
)

// Toggle returns the opposite facing.
func (f CameraFacing) Toggle() CameraFacing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// OutcomeKind is the result of a tap transaction.
type OutcomeKind string

const (
	OutcomeNone    OutcomeKind = ""
	OutcomePending OutcomeKind = "pending"
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
)

// FailureReason classifies why a session failed or is blocked.
type FailureReason string

const (
	ReasonNone                   FailureReason = ""
	ReasonCameraPermissionDenied FailureReason = "camera_permission_denied"
	ReasonRelayRejected          FailureReason = "relay_rejected"
	ReasonChannelLost            FailureReason = "channel_lost"
	ReasonChannelFailed          FailureReason = "channel_failed"
	ReasonPublishFailed          FailureReason = "publish_failed"
	ReasonOutcomeTimeout         FailureReason = "outcome_timeout"
	ReasonNoCardSelected         FailureReason = "no_card_selected"
	ReasonInvalidCard            FailureReason = "invalid_card"
)

// Outcome is the resolution of one tap attempt.
type Outcome struct {
	Kind   OutcomeKind   `json:"kind"`
	Reason FailureReason `json:"reason,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

// IsTerminal reports whether the outcome has left Pending.
func (o Outcome) IsTerminal() bool {
	return o.Kind == OutcomeSuccess || o.Kind == OutcomeFailure
}

// Generation identifies one session instance. Port callbacks carry the
// generation they were issued under; a mismatch marks them stale.
type Generation uint64

// Session is the single mutable unit of state for one tap attempt.
type Session struct {
	Generation   Generation      `json:"generation"`
	Phase        Phase           `json:"phase"`
	Connection   ConnectionState `json:"connection"`
	Camera       CameraState     `json:"camera"`
	ScanActive   bool            `json:"scan_active"`
	Room         string          `json:"room,omitempty"`
	CardID       string          `json:"card_id,omitempty"`
	Outcome      Outcome         `json:"outcome"`
	Facing       CameraFacing    `json:"facing"`
	Reconnecting bool            `json:"reconnecting"`
	Blocked      FailureReason   `json:"blocked,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
}

// NewSession returns an idle session.
func NewSession() Session {
	return Session{
		Phase:      PhaseIdle,
		Connection: ConnectionDisconnected,
		Camera:     CameraUnrequested,
		Facing:     FacingBack,
	}
}

// Point is a corner coordinate in camera-frame pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Region is the axis-aligned scan target area in frame pixel space.
type Region struct {
	MinX float64 `json:"min_x" validate:"gte=0"`
	MinY float64 `json:"min_y" validate:"gte=0"`
	MaxX float64 `json:"max_x" validate:"gtfield=MinX"`
	MaxY float64 `json:"max_y" validate:"gtfield=MinY"`
}

// DefaultRegion matches the on-screen capture hole of the tap screen.
var DefaultRegion = Region{MinX: 500, MinY: 130, MaxX: 688, MaxY: 947}
