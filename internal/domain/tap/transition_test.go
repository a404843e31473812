package tap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRoom = "3f2b8c1e-9d4a-4e6b-8f10-2a3b4c5d6e7f"
	testCard = "637805123456789"
)

var (
	insideCorners  = []Point{{510, 140}, {680, 140}, {680, 900}, {510, 900}}
	outsideCorners = []Point{{100, 100}, {200, 100}, {200, 200}, {100, 200}}
	testMachine    = NewMachine(DefaultRegion, "OK")
)

// run applies events in order and collects every effect.
func run(t *testing.T, s Session, events ...Event) (Session, []Effect) {
	t.Helper()
	var all []Effect
	for _, ev := range events {
		var effects []Effect
		s, effects = testMachine.Transition(s, ev)
		all = append(all, effects...)
		assertInvariants(t, s)
	}
	return s, all
}

func assertInvariants(t *testing.T, s Session) {
	t.Helper()
	if s.ScanActive {
		assert.Equal(t, ConnectionConnected, s.Connection, "scanning requires a connection")
		assert.Equal(t, CameraGranted, s.Camera, "scanning requires camera permission")
		assert.True(t, IsCardID(s.CardID), "scanning requires a card")
	}
}

func scanningSession(t *testing.T) Session {
	t.Helper()
	s, _ := run(t, NewSession(),
		Start{CardID: testCard, At: time.Unix(1700000000, 0)},
		ChannelConnected{Gen: 1},
		PermissionResolved{Gen: 1, Granted: true},
	)
	require.Equal(t, PhaseScanning, s.Phase)
	require.True(t, s.ScanActive)
	return s
}

func awaitingSession(t *testing.T) Session {
	t.Helper()
	s, _ := run(t, scanningSession(t),
		ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners},
		PublishIssued{Gen: 1},
	)
	require.Equal(t, PhaseAwaitingOutcome, s.Phase)
	return s
}

func countEffects[T Effect](effects []Effect) int {
	n := 0
	for _, e := range effects {
		if _, ok := e.(T); ok {
			n++
		}
	}
	return n
}

func findEffect[T Effect](effects []Effect) (T, bool) {
	for _, e := range effects {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func TestTransition_HappyPath(t *testing.T) {
	s := NewSession()

	s, effects := testMachine.Transition(s, Start{CardID: testCard})
	assert.Equal(t, PhaseConnecting, s.Phase)
	assert.Equal(t, ConnectionConnecting, s.Connection)
	assert.Equal(t, Generation(1), s.Generation)
	assert.Equal(t, []Effect{EffectConnect{Gen: 1}}, effects)

	s, effects = testMachine.Transition(s, ChannelConnected{Gen: 1})
	assert.Equal(t, PhaseAwaitingCameraGrant, s.Phase)
	assert.Equal(t, CameraRequesting, s.Camera)
	assert.Equal(t, []Effect{EffectCheckCamera{Gen: 1}}, effects)

	s, effects = testMachine.Transition(s, PermissionResolved{Gen: 1, Granted: true})
	assert.Equal(t, PhaseScanning, s.Phase)
	assert.True(t, s.ScanActive)
	assert.Equal(t, []Effect{EffectActivateScanner{Gen: 1}}, effects)

	s, effects = testMachine.Transition(s, ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners})
	assert.Equal(t, PhaseJoiningAndPublishing, s.Phase)
	assert.False(t, s.ScanActive)
	assert.Equal(t, testRoom, s.Room)
	assert.Equal(t, OutcomePending, s.Outcome.Kind)
	assert.Equal(t, []Effect{
		EffectDeactivateScanner{},
		EffectJoinAndPublish{Gen: 1, Room: testRoom, CardID: testCard},
	}, effects)

	s, effects = testMachine.Transition(s, PublishIssued{Gen: 1})
	assert.Equal(t, PhaseAwaitingOutcome, s.Phase)
	assert.Equal(t, []Effect{EffectArmOutcomeTimer{Gen: 1}}, effects)

	s, effects = testMachine.Transition(s, MessageReceived{Gen: 1, Payload: "OK"})
	assert.Equal(t, PhaseSucceeded, s.Phase)
	assert.Equal(t, Outcome{Kind: OutcomeSuccess}, s.Outcome)
	assert.Equal(t, 1, countEffects[EffectRecordOutcome](effects))
	assert.Equal(t, 1, countEffects[EffectNavigate](effects))
}

func TestTransition_IgnoresInvalidScans(t *testing.T) {
	start := scanningSession(t)

	scans := []ScanDetected{
		{Gen: 1, Payload: "not-a-uuid", Corners: insideCorners},
		{Gen: 1, Payload: "3f2b8c1e-9d4a-1e6b-8f10-2a3b4c5d6e7f", Corners: insideCorners},
		{Gen: 1, Payload: testRoom, Corners: outsideCorners},
		{Gen: 1, Payload: testRoom, Corners: insideCorners[:3]},
		{Gen: 1, Payload: testRoom, Corners: []Point{{510, 140}, {680, 140}, {680, 948}, {510, 900}}},
		{Gen: 1, Payload: "", Corners: nil},
		{Gen: 1, Payload: testCard, Corners: insideCorners},
	}

	s := start
	for _, scan := range scans {
		var effects []Effect
		s, effects = testMachine.Transition(s, scan)
		assert.Equal(t, start, s, "scan %q must not change the session", scan.Payload)
		assert.Zero(t, countEffects[EffectJoinAndPublish](effects))
	}
}

func TestTransition_TerminalOutcomeIgnoresMessages(t *testing.T) {
	payloads := []string{"OK", "error", "", testCard, "OK"}

	tests := []struct {
		name     string
		resolve  Event
		terminal Phase
	}{
		{"after success", MessageReceived{Gen: 1, Payload: "OK"}, PhaseSucceeded},
		{"after relay failure", MessageReceived{Gen: 1, Payload: "Card blocked"}, PhaseFailed},
		{"after timeout", OutcomeTimedOut{Gen: 1}, PhaseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, _ := run(t, awaitingSession(t), tt.resolve)
			require.Equal(t, tt.terminal, resolved.Phase)
			require.True(t, resolved.Outcome.IsTerminal())

			for _, p := range payloads {
				next, effects := testMachine.Transition(resolved, MessageReceived{Gen: 1, Payload: p})
				assert.Equal(t, resolved, next)
				assert.Empty(t, effects)
			}
		})
	}
}

func TestTransition_DisconnectFromAnyActivePhase(t *testing.T) {
	setups := map[string]func(t *testing.T) Session{
		"connecting": func(t *testing.T) Session {
			s, _ := run(t, NewSession(), Start{CardID: testCard})
			return s
		},
		"awaiting camera": func(t *testing.T) Session {
			s, _ := run(t, NewSession(), Start{CardID: testCard}, ChannelConnected{Gen: 1})
			return s
		},
		"card required": func(t *testing.T) Session {
			s, _ := run(t, NewSession(), Start{}, ChannelConnected{Gen: 1})
			return s
		},
		"scanning": scanningSession,
		"joining": func(t *testing.T) Session {
			s, _ := run(t, scanningSession(t), ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners})
			return s
		},
		"awaiting outcome": awaitingSession,
		"succeeded": func(t *testing.T) Session {
			s, _ := run(t, awaitingSession(t), MessageReceived{Gen: 1, Payload: "OK"})
			return s
		},
		"failed": func(t *testing.T) Session {
			s, _ := run(t, awaitingSession(t), MessageReceived{Gen: 1, Payload: "nope"})
			return s
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			before := setup(t)
			s, effects := testMachine.Transition(before, ChannelDisconnected{Gen: before.Generation, Cause: "eof"})

			assert.Equal(t, PhaseDisconnectedIdle, s.Phase)
			assert.Equal(t, ConnectionDisconnected, s.Connection)
			assert.False(t, s.ScanActive)
			assert.Empty(t, s.Room)
			assert.Equal(t, OutcomeNone, s.Outcome.Kind)
			assert.Equal(t, before.CardID, s.CardID, "card id survives the disconnect")
			assert.Equal(t, 1, countEffects[EffectDeactivateScanner](effects))
			assert.Equal(t, StateDisconnected, StatusOf(s).State)
		})
	}
}

func TestTransition_DisconnectWhileAwaitingRecordsChannelLost(t *testing.T) {
	s, effects := run(t, awaitingSession(t), ChannelDisconnected{Gen: 1, Cause: "eof"})

	assert.Equal(t, PhaseDisconnectedIdle, s.Phase)
	rec, ok := findEffect[EffectRecordOutcome](effects)
	require.True(t, ok)
	assert.Equal(t, ReasonChannelLost, rec.Outcome.Reason)
	assert.Equal(t, testRoom, rec.Room)
}

func TestTransition_DisconnectWhenIdleIsNoop(t *testing.T) {
	idle := NewSession()
	s, effects := testMachine.Transition(idle, ChannelDisconnected{Gen: 0})
	assert.Equal(t, idle, s)
	assert.Empty(t, effects)

	dropped, _ := run(t, awaitingSession(t), ChannelDisconnected{Gen: 1})
	s, effects = testMachine.Transition(dropped, ChannelDisconnected{Gen: 1})
	assert.Equal(t, dropped, s)
	assert.Empty(t, effects)
}

func TestTransition_RoundTripIssuesOneJoinAndOnePublish(t *testing.T) {
	s, effects := run(t, scanningSession(t),
		ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners},
		// repeated frames of the same code after the recognizer was stopped
		ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners},
		PublishIssued{Gen: 1},
		ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners},
		MessageReceived{Gen: 1, Payload: "OK"},
	)

	assert.Equal(t, PhaseSucceeded, s.Phase)
	assert.Equal(t, 1, countEffects[EffectJoinAndPublish](effects))
	jp, _ := findEffect[EffectJoinAndPublish](effects)
	assert.Equal(t, testRoom, jp.Room)
	assert.Equal(t, testCard, jp.CardID)
}

func TestTransition_PermissionDenied(t *testing.T) {
	s, _ := run(t, NewSession(), Start{CardID: testCard}, ChannelConnected{Gen: 1})
	require.Equal(t, PhaseAwaitingCameraGrant, s.Phase)

	s, effects := testMachine.Transition(s, PermissionResolved{Gen: 1, Granted: false})

	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, ReasonCameraPermissionDenied, s.Outcome.Reason)
	assert.Equal(t, CameraDenied, s.Camera)
	assert.Equal(t, ConnectionDisconnected, s.Connection)
	assert.False(t, s.ScanActive)
	assert.Equal(t, 1, countEffects[EffectDisconnect](effects))
	assert.Zero(t, countEffects[EffectActivateScanner](effects))
}

func TestTransition_MissingCardNeverScans(t *testing.T) {
	for _, card := range []string{"", "12345", "637805"} {
		t.Run("card="+card, func(t *testing.T) {
			s, effects := run(t, NewSession(),
				Start{CardID: card},
				ChannelConnected{Gen: 1},
				PermissionResolved{Gen: 1, Granted: true},
				ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners},
			)

			assert.Equal(t, PhaseCardRequired, s.Phase)
			assert.Equal(t, ConnectionConnected, s.Connection)
			assert.False(t, s.ScanActive)
			assert.Zero(t, countEffects[EffectActivateScanner](effects))
			assert.Zero(t, countEffects[EffectCheckCamera](effects))
			assert.Equal(t, StateCardRequired, StatusOf(s).State)
			assert.NotEmpty(t, StatusOf(s).Reason)
		})
	}
}

func TestTransition_MixedBatchOrderIndependent(t *testing.T) {
	valid := ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners}
	invalids := []ScanDetected{
		{Gen: 1, Payload: "garbage", Corners: insideCorners},
		{Gen: 1, Payload: "9a1d3c5e-7b2f-4d8e-a123-456789abcdef", Corners: outsideCorners},
	}

	for _, invalid := range invalids {
		orders := map[string][]Event{
			"valid first":   {valid, invalid},
			"invalid first": {invalid, valid},
		}
		for name, batch := range orders {
			t.Run(invalid.Payload+"/"+name, func(t *testing.T) {
				s, effects := run(t, scanningSession(t), batch...)
				assert.Equal(t, PhaseJoiningAndPublishing, s.Phase)
				assert.Equal(t, testRoom, s.Room)
				assert.Equal(t, 1, countEffects[EffectJoinAndPublish](effects))
			})
		}
	}
}

func TestTransition_StaleEventsAreDropped(t *testing.T) {
	s, _ := run(t, scanningSession(t), Start{CardID: testCard})
	require.Equal(t, Generation(2), s.Generation)
	require.Equal(t, PhaseConnecting, s.Phase)

	stale := []Event{
		ChannelConnected{Gen: 1},
		ChannelDisconnected{Gen: 1},
		PermissionResolved{Gen: 1, Granted: true},
		ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners},
		MessageReceived{Gen: 1, Payload: "OK"},
		OutcomeTimedOut{Gen: 1},
	}
	for _, ev := range stale {
		next, effects := testMachine.Transition(s, ev)
		assert.Equal(t, s, next, EventName(ev))
		assert.Empty(t, effects, EventName(ev))
	}
}

func TestTransition_StartDiscardsActiveSession(t *testing.T) {
	s, effects := run(t, scanningSession(t), Start{CardID: testCard, Reconnect: true})

	assert.Equal(t, PhaseConnecting, s.Phase)
	assert.True(t, s.Reconnecting)
	assert.False(t, s.ScanActive)
	assert.Equal(t, []Effect{EffectDeactivateScanner{}, EffectDisconnect{}, EffectConnect{Gen: 2}}, effects)

	s, _ = run(t, s, ChannelConnected{Gen: 2})
	assert.False(t, s.Reconnecting)
}

func TestTransition_StopResetsToIdle(t *testing.T) {
	s, effects := run(t, awaitingSession(t), Stop{})
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, Generation(2), s.Generation)
	assert.Equal(t, 1, countEffects[EffectDisconnect](effects))
	assert.Equal(t, 1, countEffects[EffectDeactivateScanner](effects))

	again, effects := testMachine.Transition(s, Stop{})
	assert.Equal(t, s, again)
	assert.Empty(t, effects)
}

func TestTransition_ToggleCameraNeverTransitions(t *testing.T) {
	for _, s := range []Session{NewSession(), scanningSession(t), awaitingSession(t)} {
		next, effects := testMachine.Transition(s, ToggleCamera{})
		assert.Equal(t, s.Phase, next.Phase)
		assert.Equal(t, s.Facing.Toggle(), next.Facing)
		assert.Equal(t, []Effect{EffectSetFacing{Facing: next.Facing}}, effects)
	}
}

func TestTransition_PublishRejected(t *testing.T) {
	s, effects := run(t, scanningSession(t),
		ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners},
		PublishRejected{Gen: 1, Err: ErrNotConnected.Error()},
	)
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, ReasonPublishFailed, s.Outcome.Reason)
	assert.Zero(t, countEffects[EffectArmOutcomeTimer](effects))
}

func TestTransition_InformationalMessagesKeepWaiting(t *testing.T) {
	start := awaitingSession(t)
	for _, p := range []string{"", "  ", testCard} {
		s, effects := testMachine.Transition(start, MessageReceived{Gen: 1, Payload: p})
		assert.Equal(t, start, s)
		assert.Empty(t, effects)
	}
}

func TestTransition_RelayFailureCarriesText(t *testing.T) {
	s, _ := run(t, awaitingSession(t), MessageReceived{Gen: 1, Payload: "Insufficient balance"})
	st := StatusOf(s)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, ReasonRelayRejected, st.Reason)
	assert.Equal(t, "Insufficient balance", st.Detail)
}
