package tap

// Machine holds the static inputs of the transition function.
type Machine struct {
	Region          Region
	SuccessSentinel string
}

// NewMachine builds a machine for the given region and success sentinel.
func NewMachine(region Region, sentinel string) Machine {
	return Machine{Region: region, SuccessSentinel: sentinel}
}

// Transition applies one event to a session and returns the next session
// together with the side effects the coordinator must execute. It performs no
// I/O and never mutates its input.
func (m Machine) Transition(s Session, ev Event) (Session, []Effect) {
	if st, ok := ev.(stamped); ok && st.generation() != s.Generation {
		return s, nil
	}

	switch e := ev.(type) {
	case Start:
		return m.start(s, e)
	case Stop:
		return m.stop(s)
	case ToggleCamera:
		s.Facing = s.Facing.Toggle()
		return s, []Effect{EffectSetFacing{Facing: s.Facing}}
	case ChannelConnected:
		return m.connected(s)
	case ChannelDisconnected:
		return m.disconnected(s, e.Cause)
	case ChannelFailed:
		return m.disconnected(s, e.Err)
	case PermissionResolved:
		return m.permission(s, e.Granted)
	case ScanDetected:
		return m.scan(s, e)
	case PublishIssued:
		if s.Phase != PhaseJoiningAndPublishing {
			return s, nil
		}
		s.Phase = PhaseAwaitingOutcome
		return s, []Effect{EffectArmOutcomeTimer{Gen: s.Generation}}
	case PublishRejected:
		if s.Phase != PhaseJoiningAndPublishing {
			return s, nil
		}
		return m.fail(s, ReasonPublishFailed, e.Err)
	case MessageReceived:
		return m.message(s, e.Payload)
	case OutcomeTimedOut:
		if s.Phase != PhaseAwaitingOutcome {
			return s, nil
		}
		return m.fail(s, ReasonOutcomeTimeout, "")
	}
	return s, nil
}

func (m Machine) start(s Session, e Start) (Session, []Effect) {
	var effects []Effect
	if !isDiscarded(s) {
		effects = append(effects, EffectDeactivateScanner{}, EffectDisconnect{})
	}

	next := NewSession()
	next.Generation = s.Generation + 1
	next.Facing = s.Facing
	next.Phase = PhaseConnecting
	next.Connection = ConnectionConnecting
	next.CardID = e.CardID
	next.Reconnecting = e.Reconnect
	next.StartedAt = e.At
	return next, append(effects, EffectConnect{Gen: next.Generation})
}

func (m Machine) stop(s Session) (Session, []Effect) {
	if s.Phase == PhaseIdle && s.Connection == ConnectionDisconnected {
		return s, nil
	}
	var effects []Effect
	if !isDiscarded(s) {
		effects = []Effect{EffectDeactivateScanner{}, EffectDisconnect{}}
	}
	next := NewSession()
	next.Generation = s.Generation + 1
	next.Facing = s.Facing
	return next, effects
}

func (m Machine) connected(s Session) (Session, []Effect) {
	if s.Phase != PhaseConnecting {
		return s, nil
	}
	s.Connection = ConnectionConnected
	s.Reconnecting = false

	if reason := cardProblem(s.CardID); reason != ReasonNone {
		s.Phase = PhaseCardRequired
		s.Blocked = reason
		return s, nil
	}
	s.Phase = PhaseAwaitingCameraGrant
	s.Camera = CameraRequesting
	return s, []Effect{EffectCheckCamera{Gen: s.Generation}}
}

func (m Machine) disconnected(s Session, cause string) (Session, []Effect) {
	if s.Phase.IsIdle() {
		return s, nil
	}

	effects := []Effect{EffectDeactivateScanner{}}
	if s.Phase == PhaseAwaitingOutcome && !s.Outcome.IsTerminal() {
		effects = append(effects, EffectRecordOutcome{
			Gen:       s.Generation,
			Room:      s.Room,
			CardID:    s.CardID,
			Outcome:   Outcome{Kind: OutcomeFailure, Reason: ReasonChannelLost, Detail: cause},
			StartedAt: s.StartedAt,
		})
	}

	next := NewSession()
	next.Generation = s.Generation
	next.Phase = PhaseDisconnectedIdle
	next.CardID = s.CardID
	next.Facing = s.Facing
	return next, effects
}

func (m Machine) permission(s Session, granted bool) (Session, []Effect) {
	if s.Phase != PhaseAwaitingCameraGrant {
		return s, nil
	}
	if granted {
		s.Camera = CameraGranted
		s.Phase = PhaseScanning
		s.ScanActive = true
		return s, []Effect{EffectActivateScanner{Gen: s.Generation}}
	}

	s.Camera = CameraDenied
	s.Connection = ConnectionDisconnected
	next, effects := m.fail(s, ReasonCameraPermissionDenied, "")
	return next, append(effects, EffectDisconnect{})
}

func (m Machine) scan(s Session, e ScanDetected) (Session, []Effect) {
	if s.Phase != PhaseScanning || !s.ScanActive || s.Connection != ConnectionConnected {
		return s, nil
	}
	if verdict := m.Region.Judge(e); verdict != ScanAccepted {
		return s, []Effect{EffectScanIgnored{Verdict: verdict}}
	}

	s.Room = e.Payload
	s.ScanActive = false
	s.Phase = PhaseJoiningAndPublishing
	s.Outcome = Outcome{Kind: OutcomePending}
	return s, []Effect{
		EffectDeactivateScanner{},
		EffectJoinAndPublish{Gen: s.Generation, Room: s.Room, CardID: s.CardID},
	}
}

func (m Machine) message(s Session, payload string) (Session, []Effect) {
	if s.Outcome.IsTerminal() || s.Phase != PhaseAwaitingOutcome {
		return s, nil
	}
	switch ClassifyMessage(payload, m.SuccessSentinel) {
	case MessageSuccess:
		s.Phase = PhaseSucceeded
		s.Outcome = Outcome{Kind: OutcomeSuccess}
		return s, []Effect{record(s), EffectNavigate{Gen: s.Generation}}
	case MessageFailure:
		return m.fail(s, ReasonRelayRejected, payload)
	default:
		return s, nil
	}
}

// fail moves the session into FAILED and records the outcome. The caller
// decides whether the channel is torn down.
func (m Machine) fail(s Session, reason FailureReason, detail string) (Session, []Effect) {
	var effects []Effect
	if s.ScanActive {
		effects = append(effects, EffectDeactivateScanner{})
	}
	s.ScanActive = false
	s.Phase = PhaseFailed
	s.Outcome = Outcome{Kind: OutcomeFailure, Reason: reason, Detail: detail}
	return s, append(effects, record(s))
}

func record(s Session) EffectRecordOutcome {
	return EffectRecordOutcome{
		Gen:       s.Generation,
		Room:      s.Room,
		CardID:    s.CardID,
		Outcome:   s.Outcome,
		StartedAt: s.StartedAt,
	}
}

// isDiscarded reports whether the session holds neither the channel nor the camera.
func isDiscarded(s Session) bool {
	return s.Phase.IsIdle() && s.Connection == ConnectionDisconnected && !s.ScanActive
}

func cardProblem(cardID string) FailureReason {
	switch {
	case cardID == "":
		return ReasonNoCardSelected
	case !IsCardID(cardID):
		return ReasonInvalidCard
	default:
		return ReasonNone
	}
}
