package tap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/utils/sanitizer"
)

// ErrCoordinatorStopped is returned by commands issued after Run has returned.
var ErrCoordinatorStopped = errors.New("tap coordinator stopped")

// Options configures a Coordinator.
type Options struct {
	Region          Region
	SuccessSentinel string
	OutcomeTimeout  time.Duration
	// NewID generates attempt ids.
	NewID func() string
	Now   func() time.Time
}

// Ports groups the collaborators driven by the coordinator. History,
// Navigator and Observer are optional.
type Ports struct {
	Channel    Channel
	Gate       CapabilityGate
	Recognizer Recognizer
	Config     ConfigStore
	History    HistoryRepository
	Navigator  Navigator
	Observer   Observer
}

type command struct {
	kind  commandKind
	reply chan Status
}

type commandKind int

const (
	cmdFocus commandKind = iota
	cmdBlur
	cmdReconnect
	cmdToggleCamera
)

// Coordinator owns the tap session. A single goroutine (Run) applies every
// event to the session and executes the resulting effects.
type Coordinator struct {
	machine Machine
	ports   Ports
	opts    Options
	log     zerolog.Logger

	commands chan command
	internal chan Event
	grants   chan bool
	done     chan struct{}
	runOnce  sync.Once

	mu          sync.RWMutex
	status      Status
	lastOutcome *Attempt

	// owned by the Run goroutine
	session      Session
	promptActive bool
	outcomeTimer *time.Timer
}

// NewCoordinator creates a coordinator. It does nothing until Run is called.
func NewCoordinator(ports Ports, opts Options, log zerolog.Logger) *Coordinator {
	if opts.SuccessSentinel == "" {
		opts.SuccessSentinel = "OK"
	}
	if opts.OutcomeTimeout <= 0 {
		opts.OutcomeTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "" }
	}
	if ports.Observer == nil {
		ports.Observer = nopObserver{}
	}
	if ports.Navigator == nil {
		ports.Navigator = nopNavigator{}
	}

	session := NewSession()
	return &Coordinator{
		machine:  NewMachine(opts.Region, opts.SuccessSentinel),
		ports:    ports,
		opts:     opts,
		log:      log.With().Str("component", "tap-coordinator").Logger(),
		commands: make(chan command),
		internal: make(chan Event, 16),
		grants:   make(chan bool, 1),
		done:     make(chan struct{}),
		status:   StatusOf(session),
		session:  session,
	}
}

// Run processes events until ctx is cancelled. On exit the recognizer is
// deactivated and the channel disconnected.
func (c *Coordinator) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("tap coordinator already running")
	}
	defer close(c.done)

	c.log.Info().Msg("tap coordinator started")
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			c.log.Info().Msg("tap coordinator stopped")
			return nil
		case cmd := <-c.commands:
			c.handleCommand(ctx, cmd)
		case ev := <-c.ports.Channel.Events():
			c.apply(ctx, ev.Event())
		case scan := <-c.ports.Recognizer.Scans():
			c.apply(ctx, scan)
		case granted := <-c.grants:
			c.promptActive = false
			// Camera permission is device scoped, so the answer belongs to
			// whichever session is waiting for it now.
			if c.session.Phase == PhaseAwaitingCameraGrant {
				c.apply(ctx, PermissionResolved{Gen: c.session.Generation, Granted: granted})
			}
		case ev := <-c.internal:
			c.apply(ctx, ev)
		}
	}
}

// Focus starts a fresh session, discarding any current one.
func (c *Coordinator) Focus(ctx context.Context) (Status, error) {
	return c.send(ctx, cmdFocus)
}

// Blur discards the current session.
func (c *Coordinator) Blur(ctx context.Context) (Status, error) {
	return c.send(ctx, cmdBlur)
}

// Reconnect discards the current session and connects again.
func (c *Coordinator) Reconnect(ctx context.Context) (Status, error) {
	return c.send(ctx, cmdReconnect)
}

// ToggleCamera flips between the front and back camera.
func (c *Coordinator) ToggleCamera(ctx context.Context) (Status, error) {
	return c.send(ctx, cmdToggleCamera)
}

// Status returns the latest status snapshot.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.status
	if c.lastOutcome != nil {
		last := *c.lastOutcome
		st.LastOutcome = &last
	}
	return st
}

func (c *Coordinator) send(ctx context.Context, kind commandKind) (Status, error) {
	cmd := command{kind: kind, reply: make(chan Status, 1)}
	select {
	case c.commands <- cmd:
	case <-c.done:
		return Status{}, ErrCoordinatorStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case st := <-cmd.reply:
		return st, nil
	case <-c.done:
		return Status{}, ErrCoordinatorStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (c *Coordinator) handleCommand(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdFocus, cmdReconnect:
		c.apply(ctx, Start{
			CardID:    c.loadCard(ctx),
			Reconnect: cmd.kind == cmdReconnect,
			At:        c.opts.Now(),
		})
	case cmdBlur:
		c.apply(ctx, Stop{})
	case cmdToggleCamera:
		c.apply(ctx, ToggleCamera{})
	}
	cmd.reply <- c.Status()
}

// loadCard reads the selected card once per session. A store failure is
// treated as "no card selected".
func (c *Coordinator) loadCard(ctx context.Context) string {
	cardID, ok, err := c.ports.Config.Get(ctx, SelectedCardKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to read selected card")
		return ""
	}
	if !ok {
		return ""
	}
	return cardID
}

// apply runs an event and every follow-up event its effects produce.
func (c *Coordinator) apply(ctx context.Context, ev Event) {
	queue := []Event{ev}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		from := c.session.Phase
		session, effects := c.machine.Transition(c.session, next)
		c.session = session
		if session.Phase != from {
			c.ports.Observer.Transitioned(EventName(next), from, session.Phase)
			c.log.Debug().
				Str("event", EventName(next)).
				Str("from", from.String()).
				Str("to", session.Phase.String()).
				Uint64("generation", uint64(session.Generation)).
				Msg("session transition")
			if from == PhaseAwaitingOutcome {
				c.stopOutcomeTimer()
			}
		}
		for _, effect := range effects {
			if follow := c.execute(ctx, effect); follow != nil {
				queue = append(queue, follow)
			}
		}
		c.publishStatus()
	}
}

// execute performs one effect and returns an event to apply next, if any.
func (c *Coordinator) execute(ctx context.Context, effect Effect) Event {
	switch e := effect.(type) {
	case EffectConnect:
		c.ports.Channel.Connect(ctx, e.Gen)
	case EffectDisconnect:
		c.ports.Channel.Disconnect()
	case EffectCheckCamera:
		return c.checkCamera(ctx, e.Gen)
	case EffectActivateScanner:
		c.ports.Recognizer.Activate(e.Gen)
	case EffectDeactivateScanner:
		c.ports.Recognizer.Deactivate()
	case EffectSetFacing:
		c.ports.Recognizer.SetFacing(e.Facing)
	case EffectJoinAndPublish:
		return c.joinAndPublish(e)
	case EffectArmOutcomeTimer:
		c.armOutcomeTimer(e.Gen)
	case EffectRecordOutcome:
		c.recordOutcome(ctx, e)
	case EffectNavigate:
		c.mu.RLock()
		last := c.lastOutcome
		c.mu.RUnlock()
		if last != nil {
			c.ports.Navigator.TapSucceeded(*last)
		}
	case EffectScanIgnored:
		c.ports.Observer.ScanIgnored(e.Verdict)
	}
	return nil
}

func (c *Coordinator) checkCamera(ctx context.Context, gen Generation) Event {
	if c.ports.Gate.HasPermission() {
		return PermissionResolved{Gen: gen, Granted: true}
	}
	if c.promptActive {
		return nil
	}
	c.promptActive = true
	go func() {
		granted, err := c.ports.Gate.RequestPermission(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("camera permission request failed")
			granted = false
		}
		select {
		case c.grants <- granted:
		case <-c.done:
		}
	}()
	return nil
}

func (c *Coordinator) joinAndPublish(e EffectJoinAndPublish) Event {
	if err := c.ports.Channel.JoinRoom(e.Room); err != nil {
		c.log.Warn().Err(err).Str("room", e.Room).Msg("join room rejected")
		return PublishRejected{Gen: e.Gen, Err: err.Error()}
	}
	if err := c.ports.Channel.Publish(e.Room, e.CardID); err != nil {
		c.log.Warn().Err(err).Str("room", e.Room).Msg("publish rejected")
		return PublishRejected{Gen: e.Gen, Err: err.Error()}
	}
	c.log.Info().Str("room", e.Room).Msg("card published to room")
	return PublishIssued{Gen: e.Gen}
}

func (c *Coordinator) armOutcomeTimer(gen Generation) {
	c.stopOutcomeTimer()
	c.outcomeTimer = time.AfterFunc(c.opts.OutcomeTimeout, func() {
		select {
		case c.internal <- OutcomeTimedOut{Gen: gen}:
		case <-c.done:
		}
	})
}

func (c *Coordinator) stopOutcomeTimer() {
	if c.outcomeTimer != nil {
		c.outcomeTimer.Stop()
		c.outcomeTimer = nil
	}
}

func (c *Coordinator) recordOutcome(ctx context.Context, e EffectRecordOutcome) {
	attempt := &Attempt{
		ID:         c.opts.NewID(),
		Generation: e.Gen,
		CardID:     e.CardID,
		Room:       e.Room,
		Result:     e.Outcome.Kind,
		Reason:     e.Outcome.Reason,
		Detail:     e.Outcome.Detail,
		StartedAt:  e.StartedAt,
		FinishedAt: c.opts.Now(),
	}

	c.mu.Lock()
	c.lastOutcome = attempt
	c.mu.Unlock()
	c.ports.Observer.Resolved(e.Outcome)

	evt := c.log.Info()
	if e.Outcome.Kind == OutcomeFailure {
		evt = c.log.Warn().Str("reason", string(e.Outcome.Reason)).Str("detail", sanitizer.Text(e.Outcome.Detail))
	}
	evt.Str("attempt_id", attempt.ID).
		Str("room", attempt.Room).
		Str("result", string(attempt.Result)).
		Msg("tap resolved")

	if c.ports.History == nil {
		return
	}
	if err := c.ports.History.Save(ctx, attempt); err != nil {
		c.log.Error().Err(err).Str("attempt_id", attempt.ID).Msg("failed to save tap attempt")
	}
}

func (c *Coordinator) publishStatus() {
	st := StatusOf(c.session)
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
}

func (c *Coordinator) shutdown() {
	c.stopOutcomeTimer()
	if !isDiscarded(c.session) {
		c.ports.Recognizer.Deactivate()
		c.ports.Channel.Disconnect()
	}
}
