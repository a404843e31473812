package history

import (
	"context"
	"sort"
	"sync"

	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/utils/idgen"
)

// InMemoryRepository keeps the most recent attempts in process memory.
type InMemoryRepository struct {
	mu       sync.RWMutex
	capacity int
	entries  []tap.Attempt
}

// NewInMemoryRepository keeps at most capacity attempts; older ones are evicted.
func NewInMemoryRepository(capacity int) *InMemoryRepository {
	if capacity <= 0 {
		capacity = 500
	}
	return &InMemoryRepository{capacity: capacity}
}

// Save stores a copy of attempt, assigning an id when it has none.
func (r *InMemoryRepository) Save(_ context.Context, attempt *tap.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = idgen.NewAttemptID()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == attempt.ID {
			r.entries[i] = *attempt
			return nil
		}
	}
	r.entries = append(r.entries, *attempt)
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = append([]tap.Attempt(nil), r.entries[over:]...)
	}
	return nil
}

// Get returns the attempt with id.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*tap.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			found := r.entries[i]
			return &found, nil
		}
	}
	return nil, tap.ErrAttemptNotFound
}

// List returns matching attempts, newest first.
func (r *InMemoryRepository) List(_ context.Context, filter tap.AttemptFilter) ([]*tap.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*tap.Attempt, 0, len(r.entries))
	for i := range r.entries {
		a := r.entries[i]
		if filter.CardID != "" && a.CardID != filter.CardID {
			continue
		}
		if filter.Result != "" && a.Result != filter.Result {
			continue
		}
		out = append(out, &a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
