package tap

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptNotFound is returned when an attempt id is unknown.
var ErrAttemptNotFound = errors.New("tap attempt not found")

// Attempt is the persisted record of one resolved tap.
type Attempt struct {
	ID         string        `json:"id"`
	Generation Generation    `json:"generation"`
	CardID     string        `json:"card_id"`
	Room       string        `json:"room,omitempty"`
	Result     OutcomeKind   `json:"result"`
	Reason     FailureReason `json:"reason,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Duration returns how long the attempt took from session start.
func (a Attempt) Duration() time.Duration {
	if a.StartedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// AttemptFilter narrows history listings.
type AttemptFilter struct {
	CardID string
	Result OutcomeKind
	Limit  int
}

// HistoryRepository stores resolved attempts.
type HistoryRepository interface {
	Save(ctx context.Context, attempt *Attempt) error
	Get(ctx context.Context, id string) (*Attempt, error)
	List(ctx context.Context, filter AttemptFilter) ([]*Attempt, error)
}
