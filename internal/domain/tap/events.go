package tap

import "time"

// Event is any input to the session state machine: user commands, channel
// events, recognizer scans, permission results and timers.
type Event interface {
	eventName() string
}

// stamped events were issued under a specific session generation.
type stamped interface {
	generation() Generation
}

// Start opens a fresh session (screen focus, pull-to-refresh or Reconnect).
type Start struct {
	CardID    string
	Reconnect bool
	At        time.Time
}

// Stop discards the session (screen lost focus or outcome consumed).
type Stop struct{}

// ToggleCamera flips the camera facing. It never changes the phase.
type ToggleCamera struct{}

// ChannelConnected reports that the relay connection is live.
type ChannelConnected struct{ Gen Generation }

// ChannelDisconnected reports loss of the relay connection.
type ChannelDisconnected struct {
	Gen   Generation
	Cause string
}

// ChannelFailed reports that the relay could not be reached at all.
type ChannelFailed struct {
	Gen Generation
	Err string
}

// MessageReceived carries a relay payload delivered into a joined room.
type MessageReceived struct {
	Gen     Generation
	Payload string
}

// PermissionResolved carries the answer of the camera capability gate.
type PermissionResolved struct {
	Gen     Generation
	Granted bool
}

// ScanDetected is one decoded code reported by the recognizer.
type ScanDetected struct {
	Gen     Generation `json:"-"`
	Payload string     `json:"payload"`
	Corners []Point    `json:"corners"`
}

// PublishIssued confirms that joinRoom and messageToRoom were both sent.
type PublishIssued struct{ Gen Generation }

// PublishRejected reports that the channel refused the join; nothing was published.
type PublishRejected struct {
	Gen Generation
	Err string
}

// OutcomeTimedOut fires when no relay verdict arrived in time.
type OutcomeTimedOut struct{ Gen Generation }

func (Start) eventName() string               { return "start" }
func (Stop) eventName() string                { return "stop" }
func (ToggleCamera) eventName() string        { return "toggle_camera" }
func (ChannelConnected) eventName() string    { return "channel_connected" }
func (ChannelDisconnected) eventName() string { return "channel_disconnected" }
func (ChannelFailed) eventName() string       { return "channel_failed" }
func (MessageReceived) eventName() string     { return "message_received" }
func (PermissionResolved) eventName() string  { return "permission_resolved" }
func (ScanDetected) eventName() string        { return "scan_detected" }
func (PublishIssued) eventName() string       { return "publish_issued" }
func (PublishRejected) eventName() string     { return "publish_rejected" }
func (OutcomeTimedOut) eventName() string     { return "outcome_timed_out" }

func (e ChannelConnected) generation() Generation    { return e.Gen }
func (e ChannelDisconnected) generation() Generation { return e.Gen }
func (e ChannelFailed) generation() Generation       { return e.Gen }
func (e MessageReceived) generation() Generation     { return e.Gen }
func (e PermissionResolved) generation() Generation  { return e.Gen }
func (e ScanDetected) generation() Generation        { return e.Gen }
func (e PublishIssued) generation() Generation       { return e.Gen }
func (e PublishRejected) generation() Generation     { return e.Gen }
func (e OutcomeTimedOut) generation() Generation     { return e.Gen }

// EventName returns the metric/log label of an event.
func EventName(ev Event) string {
	return ev.eventName()
}

// Effect is a side effect requested by a transition and executed by the
// coordinator against its ports.
type Effect interface {
	effectName() string
}

type (
	// EffectConnect asks the channel to connect under a generation.
	EffectConnect struct{ Gen Generation }
	// EffectDisconnect tears the channel down.
	EffectDisconnect struct{}
	// EffectCheckCamera consults the capability gate.
	EffectCheckCamera struct{ Gen Generation }
	// EffectActivateScanner turns the recognizer on.
	EffectActivateScanner struct{ Gen Generation }
	// EffectDeactivateScanner turns the recognizer off.
	EffectDeactivateScanner struct{}
	// EffectJoinAndPublish joins the room and publishes the card id, atomically.
	EffectJoinAndPublish struct {
		Gen    Generation
		Room   string
		CardID string
	}
	// EffectArmOutcomeTimer starts the relay verdict deadline.
	EffectArmOutcomeTimer struct{ Gen Generation }
	// EffectSetFacing switches the physical camera.
	EffectSetFacing struct{ Facing CameraFacing }
	// EffectNavigate leaves the tap flow after success.
	EffectNavigate struct{ Gen Generation }
	// EffectRecordOutcome persists a terminal outcome.
	EffectRecordOutcome struct {
		Gen       Generation
		Room      string
		CardID    string
		Outcome   Outcome
		StartedAt time.Time
	}
	// EffectScanIgnored notes a scan that failed validation.
	EffectScanIgnored struct{ Verdict ScanVerdict }
)

func (EffectConnect) effectName() string           { return "connect" }
func (EffectDisconnect) effectName() string        { return "disconnect" }
func (EffectCheckCamera) effectName() string       { return "check_camera" }
func (EffectActivateScanner) effectName() string   { return "activate_scanner" }
func (EffectDeactivateScanner) effectName() string { return "deactivate_scanner" }
func (EffectJoinAndPublish) effectName() string    { return "join_and_publish" }
func (EffectArmOutcomeTimer) effectName() string   { return "arm_outcome_timer" }
func (EffectSetFacing) effectName() string         { return "set_facing" }
func (EffectNavigate) effectName() string          { return "navigate" }
func (EffectRecordOutcome) effectName() string     { return "record_outcome" }
func (EffectScanIgnored) effectName() string       { return "scan_ignored" }
