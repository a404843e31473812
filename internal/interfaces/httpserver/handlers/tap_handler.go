package handlers

import (
	"context"
	"fmt"

	"github.com/beepcard/beep-tap/internal/domain/card"
	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/camera"
	"github.com/beepcard/beep-tap/internal/utils/idgen"
)

// SessionController is the coordinator surface driven over HTTP.
type SessionController interface {
	Status() tap.Status
	Focus(ctx context.Context) (tap.Status, error)
	Blur(ctx context.Context) (tap.Status, error)
	Reconnect(ctx context.Context) (tap.Status, error)
	ToggleCamera(ctx context.Context) (tap.Status, error)
}

// PermissionPrompter exposes a camera prompt to the UI. Nil when the gate
// answers from configuration.
type PermissionPrompter interface {
	HasPermission() bool
	Pending() (camera.Prompt, bool)
	Answer(granted bool) error
	Revoke()
}

// FrameSink receives decoded frames from the device bridge.
type FrameSink interface {
	Submit(codes []camera.Code) (camera.SubmitResult, error)
	Active() bool
}

// InvalidCardError reports a card number that can never be published.
type InvalidCardError struct {
	CardID string
}

func (e *InvalidCardError) Error() string {
	return fmt.Sprintf("%q is not a beep card number", e.CardID)
}

// InvalidAttemptIDError reports a history id that no attempt can carry.
type InvalidAttemptIDError struct {
	ID string
}

func (e *InvalidAttemptIDError) Error() string {
	return fmt.Sprintf("%q is not a tap attempt id", e.ID)
}

// TapHandler handles tap session HTTP requests.
type TapHandler struct {
	session  SessionController
	prompter PermissionPrompter
	frames   FrameSink
	config   tap.ConfigStore
	history  tap.HistoryRepository
	pageSize int
}

// NewTapHandler creates a new tap handler.
func NewTapHandler(
	session SessionController,
	prompter PermissionPrompter,
	frames FrameSink,
	config tap.ConfigStore,
	history tap.HistoryRepository,
	pageSize int,
) *TapHandler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &TapHandler{
		session:  session,
		prompter: prompter,
		frames:   frames,
		config:   config,
		history:  history,
		pageSize: pageSize,
	}
}

// Status returns the current session status.
func (h *TapHandler) Status() tap.Status {
	return h.session.Status()
}

// Focus starts a fresh session.
func (h *TapHandler) Focus(ctx context.Context) (tap.Status, error) {
	return h.session.Focus(ctx)
}

// Blur discards the current session.
func (h *TapHandler) Blur(ctx context.Context) (tap.Status, error) {
	return h.session.Blur(ctx)
}

// Reconnect discards the session and connects again.
func (h *TapHandler) Reconnect(ctx context.Context) (tap.Status, error) {
	return h.session.Reconnect(ctx)
}

// ToggleCamera flips the camera facing.
func (h *TapHandler) ToggleCamera(ctx context.Context) (tap.Status, error) {
	return h.session.ToggleCamera(ctx)
}

// Permission returns whether the camera is granted and the open prompt.
func (h *TapHandler) Permission() (granted bool, pending *camera.Prompt, prompts bool) {
	if h.prompter == nil {
		return false, nil, false
	}
	if p, ok := h.prompter.Pending(); ok {
		pending = &p
	}
	return h.prompter.HasPermission(), pending, true
}

// AnswerPermission resolves the open prompt.
func (h *TapHandler) AnswerPermission(granted bool) error {
	if h.prompter == nil {
		return camera.ErrNoPrompt
	}
	return h.prompter.Answer(granted)
}

// RevokePermission forgets a cached grant so the next session prompts again.
// It reports false when the gate answers from configuration.
func (h *TapHandler) RevokePermission() bool {
	if h.prompter == nil {
		return false
	}
	h.prompter.Revoke()
	return true
}

// ScannerActive reports whether the recognizer is accepting frames.
func (h *TapHandler) ScannerActive() bool {
	return h.frames.Active()
}

// SubmitScans forwards one decoded frame to the recognizer.
func (h *TapHandler) SubmitScans(codes []camera.Code) (camera.SubmitResult, error) {
	return h.frames.Submit(codes)
}

// SelectedCard returns the stored card, if any.
func (h *TapHandler) SelectedCard(ctx context.Context) (string, bool, error) {
	return h.config.Get(ctx, tap.SelectedCardKey)
}

// SelectCard stores the card the next session will publish. The running
// session keeps the card it started with.
func (h *TapHandler) SelectCard(ctx context.Context, number string) (string, error) {
	cardID := card.NormalizeNumber(number)
	if !tap.IsCardID(cardID) {
		return "", &InvalidCardError{CardID: number}
	}
	if err := h.config.Set(ctx, tap.SelectedCardKey, cardID); err != nil {
		return "", fmt.Errorf("store selected card: %w", err)
	}
	return cardID, nil
}

// History lists recent attempts.
func (h *TapHandler) History(ctx context.Context, filter tap.AttemptFilter) ([]*tap.Attempt, error) {
	if h.history == nil {
		return nil, nil
	}
	if filter.Limit <= 0 {
		filter.Limit = h.pageSize
	}
	return h.history.List(ctx, filter)
}

// Attempt loads one attempt.
func (h *TapHandler) Attempt(ctx context.Context, id string) (*tap.Attempt, error) {
	if !idgen.IsAttemptID(id) {
		return nil, &InvalidAttemptIDError{ID: id}
	}
	if h.history == nil {
		return nil, tap.ErrAttemptNotFound
	}
	return h.history.Get(ctx, id)
}
