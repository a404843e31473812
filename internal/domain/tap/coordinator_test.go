package tap

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu          sync.Mutex
	connects    []Generation
	joins       []string
	publishes   [][2]string
	disconnects int
	connected   bool
	joinErr     error
	events      chan ChannelEvent
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan ChannelEvent, 32)}
}

func (f *fakeChannel) Connect(_ context.Context, gen Generation) {
	f.mu.Lock()
	f.connects = append(f.connects, gen)
	f.connected = true
	f.mu.Unlock()
	f.events <- ChannelEvent{Kind: ChannelEventConnected, Gen: gen}
}

func (f *fakeChannel) JoinRoom(room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joins = append(f.joins, room)
	return nil
}

func (f *fakeChannel) Publish(room, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes = append(f.publishes, [2]string{room, payload})
	return nil
}

func (f *fakeChannel) Events() <-chan ChannelEvent { return f.events }

func (f *fakeChannel) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
}

func (f *fakeChannel) counts() (joins, publishes, disconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.joins), len(f.publishes), f.disconnects
}

// fakeGate answers at once, or waits for the test to send an answer on
// hold when hold is set.
type fakeGate struct {
	mu       sync.Mutex
	has      bool
	answer   bool
	hold     chan bool
	requests int
}

func (g *fakeGate) HasPermission() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.has
}

func (g *fakeGate) RequestPermission(ctx context.Context) (bool, error) {
	g.mu.Lock()
	g.requests++
	answer, hold := g.answer, g.hold
	g.mu.Unlock()

	if hold != nil {
		select {
		case answer = <-hold:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.has = answer
	return answer, nil
}

func (g *fakeGate) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests
}

type fakeRecognizer struct {
	mu          sync.Mutex
	activations int
	active      bool
	facing      CameraFacing
	scans       chan ScanDetected
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{scans: make(chan ScanDetected, 32), facing: FacingBack}
}

func (r *fakeRecognizer) Activate(Generation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activations++
	r.active = true
}

func (r *fakeRecognizer) Deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
}

func (r *fakeRecognizer) SetFacing(f CameraFacing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facing = f
}

func (r *fakeRecognizer) Scans() <-chan ScanDetected { return r.scans }

func (r *fakeRecognizer) activationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activations
}

type memConfig struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memConfig) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memConfig) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type memHistory struct {
	mu       sync.Mutex
	attempts []*Attempt
}

func (h *memHistory) Save(_ context.Context, a *Attempt) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts = append(h.attempts, a)
	return nil
}

func (h *memHistory) Get(_ context.Context, id string) (*Attempt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrAttemptNotFound
}

func (h *memHistory) List(context.Context, AttemptFilter) ([]*Attempt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Attempt(nil), h.attempts...), nil
}

type navRecorder struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (n *navRecorder) TapSucceeded(a Attempt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts = append(n.attempts, a)
}

func (n *navRecorder) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.attempts)
}

type harness struct {
	coord      *Coordinator
	channel    *fakeChannel
	gate       *fakeGate
	recognizer *fakeRecognizer
	config     *memConfig
	history    *memHistory
	nav        *navRecorder
}

func newHarness(t *testing.T, card string, gate *fakeGate, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		channel:    newFakeChannel(),
		gate:       gate,
		recognizer: newFakeRecognizer(),
		config:     &memConfig{values: map[string]string{}},
		history:    &memHistory{},
		nav:        &navRecorder{},
	}
	if card != "" {
		h.config.values[SelectedCardKey] = card
	}

	seq := 0
	h.coord = NewCoordinator(Ports{
		Channel:    h.channel,
		Gate:       h.gate,
		Recognizer: h.recognizer,
		Config:     h.config,
		History:    h.history,
		Navigator:  h.nav,
	}, Options{
		Region:          DefaultRegion,
		SuccessSentinel: "OK",
		OutcomeTimeout:  timeout,
		NewID: func() string {
			seq++
			return fmt.Sprintf("att_%d", seq)
		},
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = h.coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return h
}

func (h *harness) waitFor(t *testing.T, state State) Status {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.coord.Status().State == state
	}, 2*time.Second, 5*time.Millisecond, "never reached %s (last %s)", state, h.coord.Status().State)
	return h.coord.Status()
}

func TestCoordinator_RoundTrip(t *testing.T) {
	h := newHarness(t, testCard, &fakeGate{has: true}, time.Minute)

	_, err := h.coord.Focus(context.Background())
	require.NoError(t, err)
	h.waitFor(t, StateScanning)

	h.recognizer.scans <- ScanDetected{Gen: 1, Payload: "noise", Corners: insideCorners}
	h.recognizer.scans <- ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners}
	h.waitFor(t, StateAwaitingOutcome)

	h.channel.events <- ChannelEvent{Kind: ChannelEventMessage, Gen: 1, Payload: testCard}
	h.channel.events <- ChannelEvent{Kind: ChannelEventMessage, Gen: 1, Payload: "OK"}
	st := h.waitFor(t, StateSucceeded)

	joins, publishes, _ := h.channel.counts()
	assert.Equal(t, 1, joins)
	assert.Equal(t, 1, publishes)
	h.channel.mu.Lock()
	assert.Equal(t, [2]string{testRoom, testCard}, h.channel.publishes[0])
	h.channel.mu.Unlock()

	require.NotNil(t, st.LastOutcome)
	assert.Equal(t, OutcomeSuccess, st.LastOutcome.Result)
	assert.Equal(t, "att_1", st.LastOutcome.ID)
	assert.Eventually(t, func() bool { return h.nav.count() == 1 }, time.Second, 5*time.Millisecond)

	list, err := h.history.List(context.Background(), AttemptFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, testRoom, list[0].Room)
}

func TestCoordinator_PermissionDeniedDisconnectsOnce(t *testing.T) {
	gate := &fakeGate{has: false, answer: false}
	h := newHarness(t, testCard, gate, time.Minute)

	_, err := h.coord.Focus(context.Background())
	require.NoError(t, err)

	st := h.waitFor(t, StateFailed)
	assert.Equal(t, ReasonCameraPermissionDenied, st.Reason)
	assert.Equal(t, 1, gate.requestCount())

	_, _, disconnects := h.channel.counts()
	assert.Equal(t, 1, disconnects)
	assert.Zero(t, h.recognizer.activationCount())
}

func TestCoordinator_PermissionGrantedAfterPrompt(t *testing.T) {
	gate := &fakeGate{has: false, answer: true}
	h := newHarness(t, testCard, gate, time.Minute)

	_, err := h.coord.Focus(context.Background())
	require.NoError(t, err)
	h.waitFor(t, StateScanning)
	assert.Equal(t, 1, gate.requestCount())
	assert.Equal(t, 1, h.recognizer.activationCount())
}

func TestCoordinator_OutstandingPromptSpansReconnect(t *testing.T) {
	gate := &fakeGate{hold: make(chan bool)}
	h := newHarness(t, testCard, gate, time.Minute)

	_, err := h.coord.Focus(context.Background())
	require.NoError(t, err)
	first := h.waitFor(t, StateAwaitingPermission)

	st, err := h.coord.Reconnect(context.Background())
	require.NoError(t, err)
	assert.Greater(t, st.Generation, first.Generation)
	h.waitFor(t, StateAwaitingPermission)
	assert.Never(t, func() bool { return gate.requestCount() > 1 }, 100*time.Millisecond, 5*time.Millisecond)

	gate.hold <- true
	scanning := h.waitFor(t, StateScanning)
	assert.Equal(t, st.Generation, scanning.Generation)
	assert.Equal(t, 1, gate.requestCount())
	assert.Equal(t, 1, h.recognizer.activationCount())
}

func TestCoordinator_NoSelectedCard(t *testing.T) {
	h := newHarness(t, "", &fakeGate{has: true}, time.Minute)

	_, err := h.coord.Focus(context.Background())
	require.NoError(t, err)

	st := h.waitFor(t, StateCardRequired)
	assert.True(t, st.Connected)
	assert.False(t, st.ScanActive)
	assert.Equal(t, ReasonNoCardSelected, st.Reason)
	assert.Zero(t, h.recognizer.activationCount())
}

func TestCoordinator_OutcomeTimeout(t *testing.T) {
	h := newHarness(t, testCard, &fakeGate{has: true}, 30*time.Millisecond)

	_, err := h.coord.Focus(context.Background())
	require.NoError(t, err)
	h.waitFor(t, StateScanning)

	h.recognizer.scans <- ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners}
	st := h.waitFor(t, StateFailed)
	assert.Equal(t, ReasonOutcomeTimeout, st.Reason)
}

func TestCoordinator_ReconnectDropsStaleMessages(t *testing.T) {
	h := newHarness(t, testCard, &fakeGate{has: true}, time.Minute)

	_, err := h.coord.Focus(context.Background())
	require.NoError(t, err)
	h.waitFor(t, StateScanning)
	h.recognizer.scans <- ScanDetected{Gen: 1, Payload: testRoom, Corners: insideCorners}
	h.waitFor(t, StateAwaitingOutcome)

	st, err := h.coord.Reconnect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Generation(2), st.Generation)

	h.waitFor(t, StateScanning)
	h.channel.events <- ChannelEvent{Kind: ChannelEventMessage, Gen: 1, Payload: "OK"}
	assert.Never(t, func() bool {
		return h.coord.Status().State != StateScanning
	}, 100*time.Millisecond, 5*time.Millisecond)

	st, err = h.coord.ToggleCamera(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateScanning, st.State)
	assert.Equal(t, FacingFront, st.Facing)
}

func TestCoordinator_DisconnectReturnsToIdle(t *testing.T) {
	h := newHarness(t, testCard, &fakeGate{has: true}, time.Minute)

	_, err := h.coord.Focus(context.Background())
	require.NoError(t, err)
	h.waitFor(t, StateScanning)

	h.channel.events <- ChannelEvent{Kind: ChannelEventDisconnected, Gen: 1}
	st := h.waitFor(t, StateDisconnected)
	assert.Equal(t, testCard, st.CardID)
	assert.False(t, st.ScanActive)
}

func TestCoordinator_BlurStopsEverything(t *testing.T) {
	h := newHarness(t, testCard, &fakeGate{has: true}, time.Minute)

	_, err := h.coord.Focus(context.Background())
	require.NoError(t, err)
	h.waitFor(t, StateScanning)

	st, err := h.coord.Blur(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.State)

	_, _, disconnects := h.channel.counts()
	assert.Equal(t, 1, disconnects)
}
