package tap

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned by a channel asked to send without a live connection.
	ErrNotConnected = errors.New("relay channel not connected")
	// ErrPromptInFlight is returned when a permission prompt is already outstanding.
	ErrPromptInFlight = errors.New("camera permission prompt already in flight")
)

// ChannelEventKind tags the inbound relay stream.
type ChannelEventKind string

const (
	ChannelEventConnected    ChannelEventKind = "connected"
	ChannelEventDisconnected ChannelEventKind = "disconnected"
	ChannelEventFailed       ChannelEventKind = "failed"
	ChannelEventMessage      ChannelEventKind = "message"
)

// ChannelEvent is one item of the relay channel's inbound stream. Gen is the
// generation passed to the Connect call that produced the connection.
type ChannelEvent struct {
	Kind    ChannelEventKind
	Gen     Generation
	Payload string
	Err     error
}

// Event converts the channel event into a state machine event.
func (c ChannelEvent) Event() Event {
	switch c.Kind {
	case ChannelEventConnected:
		return ChannelConnected{Gen: c.Gen}
	case ChannelEventDisconnected:
		return ChannelDisconnected{Gen: c.Gen, Cause: errText(c.Err)}
	case ChannelEventFailed:
		return ChannelFailed{Gen: c.Gen, Err: errText(c.Err)}
	default:
		return MessageReceived{Gen: c.Gen, Payload: c.Payload}
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Channel is the relay connection port.
type Channel interface {
	// Connect starts connecting in the background and reports the result on Events.
	Connect(ctx context.Context, gen Generation)
	JoinRoom(room string) error
	Publish(room, payload string) error
	Events() <-chan ChannelEvent
	// Disconnect is idempotent. No further events are emitted for the torn down connection.
	Disconnect()
}

// CapabilityGate answers camera permission questions.
type CapabilityGate interface {
	HasPermission() bool
	RequestPermission(ctx context.Context) (bool, error)
}

// Recognizer produces decoded codes while active.
type Recognizer interface {
	Activate(gen Generation)
	Deactivate()
	SetFacing(facing CameraFacing)
	Scans() <-chan ScanDetected
}

// ConfigStore is the local persisted key-value configuration.
type ConfigStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Navigator is told when a successful tap should leave the tap flow.
type Navigator interface {
	TapSucceeded(attempt Attempt)
}

// Observer receives coordinator telemetry.
type Observer interface {
	Transitioned(event string, from, to Phase)
	Resolved(outcome Outcome)
	ScanIgnored(verdict ScanVerdict)
}

type nopObserver struct{}

func (nopObserver) Transitioned(string, Phase, Phase) {}
func (nopObserver) Resolved(Outcome)                  {}
func (nopObserver) ScanIgnored(ScanVerdict)           {}

type nopNavigator struct{}

func (nopNavigator) TapSucceeded(Attempt) {}
