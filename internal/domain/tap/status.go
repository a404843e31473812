package tap

// State is the user-facing status enum.
type State string

const (
	StateIdle               State = "idle"
	StateDisconnected       State = "disconnected"
	StateConnecting         State = "connecting"
	StateAwaitingPermission State = "awaiting_permission"
	StateCardRequired       State = "card_required"
	StateScanning           State = "scanning"
	StatePublishing         State = "publishing"
	StateAwaitingOutcome    State = "awaiting_outcome"
	StateSucceeded          State = "succeeded"
	StateFailed             State = "failed"
)

var phaseStates = map[Phase]State{
	PhaseIdle:                 StateIdle,
	PhaseDisconnectedIdle:     StateDisconnected,
	PhaseConnecting:           StateConnecting,
	PhaseAwaitingCameraGrant:  StateAwaitingPermission,
	PhaseCardRequired:         StateCardRequired,
	PhaseScanning:             StateScanning,
	PhaseJoiningAndPublishing: StatePublishing,
	PhaseAwaitingOutcome:      StateAwaitingOutcome,
	PhaseSucceeded:            StateSucceeded,
	PhaseFailed:               StateFailed,
}

// Status is the read model exposed to the UI collaborator.
type Status struct {
	State        State         `json:"state"`
	Phase        Phase         `json:"phase"`
	Reason       FailureReason `json:"reason,omitempty"`
	Detail       string        `json:"detail,omitempty"`
	Reconnecting bool          `json:"reconnecting"`
	Connected    bool          `json:"connected"`
	ScanActive   bool          `json:"scan_active"`
	Room         string        `json:"room,omitempty"`
	CardID       string        `json:"card_id,omitempty"`
	Facing       CameraFacing  `json:"facing"`
	Generation   Generation    `json:"generation"`
	LastOutcome  *Attempt      `json:"last_outcome,omitempty"`
}

// StatusOf derives the status surface from a session.
func StatusOf(s Session) Status {
	state, ok := phaseStates[s.Phase]
	if !ok {
		state = StateIdle
	}
	st := Status{
		State:        state,
		Phase:        s.Phase,
		Reconnecting: s.Reconnecting,
		Connected:    s.Connection == ConnectionConnected,
		ScanActive:   s.ScanActive,
		Room:         s.Room,
		CardID:       s.CardID,
		Facing:       s.Facing,
		Generation:   s.Generation,
	}
	switch {
	case s.Phase == PhaseCardRequired:
		st.Reason = s.Blocked
	case s.Outcome.Kind == OutcomeFailure:
		st.Reason = s.Outcome.Reason
		st.Detail = s.Outcome.Detail
	}
	return st
}
