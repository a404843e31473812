package camera

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/domain/tap"
)

// ErrNoPrompt is returned when answering while no prompt is outstanding.
var ErrNoPrompt = errors.New("no camera permission prompt pending")

// Prompt is an outstanding permission question shown to the user.
type Prompt struct {
	ID          string    `json:"id"`
	RequestedAt time.Time `json:"requested_at"`
	answer      chan bool
}

// PromptGate asks the UI collaborator for camera permission. The question is
// read from Pending and answered through Answer; unanswered prompts resolve
// to denied after the timeout.
type PromptGate struct {
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	granted bool
	pending *Prompt
}

// NewPromptGate creates a gate with no cached permission.
func NewPromptGate(timeout time.Duration, log zerolog.Logger) *PromptGate {
	return &PromptGate{
		timeout: timeout,
		log:     log.With().Str("component", "camera-gate").Logger(),
	}
}

// HasPermission implements tap.CapabilityGate.
func (g *PromptGate) HasPermission() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

// RequestPermission implements tap.CapabilityGate.
func (g *PromptGate) RequestPermission(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.pending != nil {
		g.mu.Unlock()
		return false, tap.ErrPromptInFlight
	}
	prompt := &Prompt{
		ID:          uuid.NewString(),
		RequestedAt: time.Now(),
		answer:      make(chan bool, 1),
	}
	g.pending = prompt
	g.mu.Unlock()

	g.log.Info().Str("prompt_id", prompt.ID).Msg("camera permission requested")

	var (
		granted bool
		err     error
	)
	timer := time.NewTimer(g.timeout)
	defer timer.Stop()
	select {
	case granted = <-prompt.answer:
	case <-timer.C:
		g.log.Warn().Str("prompt_id", prompt.ID).Msg("camera permission prompt timed out")
	case <-ctx.Done():
		err = ctx.Err()
	}

	g.mu.Lock()
	g.pending = nil
	if granted {
		g.granted = true
	}
	g.mu.Unlock()
	return granted, err
}

// Pending returns the outstanding prompt, if any.
func (g *PromptGate) Pending() (Prompt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return Prompt{}, false
	}
	return *g.pending, true
}

// Answer resolves the outstanding prompt.
func (g *PromptGate) Answer(granted bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return ErrNoPrompt
	}
	select {
	case g.pending.answer <- granted:
	default:
	}
	g.log.Info().Str("prompt_id", g.pending.ID).Bool("granted", granted).Msg("camera permission answered")
	return nil
}

// Revoke clears a cached grant, as when the user withdraws it in OS settings.
func (g *PromptGate) Revoke() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = false
}

// StaticGate answers every question with a fixed value.
type StaticGate struct {
	granted bool
}

// NewStaticGate creates a gate that always grants or always denies.
func NewStaticGate(granted bool) *StaticGate {
	return &StaticGate{granted: granted}
}

// HasPermission implements tap.CapabilityGate.
func (g *StaticGate) HasPermission() bool { return g.granted }

// RequestPermission implements tap.CapabilityGate.
func (g *StaticGate) RequestPermission(context.Context) (bool, error) {
	return g.granted, nil
}
