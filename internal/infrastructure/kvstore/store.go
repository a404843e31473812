// Package kvstore implements the local key-value configuration store read by
// the tap coordinator.
package kvstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/config"
)

// Store is a small string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// New opens the backend selected by KV_BACKEND.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, error) {
	log = log.With().Str("component", "kvstore").Str("backend", cfg.KVBackend).Logger()

	var (
		store Store
		err   error
	)
	switch cfg.KVBackend {
	case "memory", "":
		store = NewMemoryStore()
	case "file":
		store, err = NewFileStore(cfg.KVFilePath)
	case "sqlite":
		store, err = NewSQLiteStore(ctx, cfg.KVSQLitePath)
	case "redis":
		store, err = NewRedisStore(ctx, cfg.RedisURL, cfg.KVKeyPrefix)
	default:
		return nil, fmt.Errorf("unknown kv backend %q", cfg.KVBackend)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Msg("config store ready")
	return store, nil
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys lists stored keys in order.
func (s *MemoryStore) Keys(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
