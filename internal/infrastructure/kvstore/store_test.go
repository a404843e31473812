package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beepcard/beep-tap/internal/config"
	"github.com/beepcard/beep-tap/internal/domain/tap"
)

var _ tap.ConfigStore = (Store)(nil)

func backends(t *testing.T) map[string]func() Store {
	t.Helper()
	dir := t.TempDir()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"file": func() Store {
			s, err := NewFileStore(filepath.Join(dir, "config.yaml"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func() Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(dir, "config.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			_, ok, err := s.Get(ctx, tap.SelectedCardKey)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, tap.SelectedCardKey, "637805123456789"))
			require.NoError(t, s.Set(ctx, "theme", "dark"))

			v, ok, err := s.Get(ctx, tap.SelectedCardKey)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "637805123456789", v)

			require.NoError(t, s.Set(ctx, tap.SelectedCardKey, "637805000000001"))
			v, _, _ = s.Get(ctx, tap.SelectedCardKey)
			assert.Equal(t, "637805000000001", v)

			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{tap.SelectedCardKey, "theme"}, keys)

			require.NoError(t, s.Delete(ctx, "theme"))
			require.NoError(t, s.Delete(ctx, "missing"))
			_, ok, _ = s.Get(ctx, "theme")
			assert.False(t, ok)
		})
	}
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.yaml")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, tap.SelectedCardKey, "637805123456789"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, tap.SelectedCardKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "637805123456789", v)
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.db")

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, tap.SelectedCardKey, "637805123456789"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	v, ok, err := reopened.Get(ctx, tap.SelectedCardKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "637805123456789", v)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	s, err := NewRedisStore(ctx, url, "beep-tap-test:")
	require.NoError(t, err)
	defer s.Close()
	defer s.Delete(ctx, tap.SelectedCardKey)

	require.NoError(t, s.Set(ctx, tap.SelectedCardKey, "637805123456789"))
	v, ok, err := s.Get(ctx, tap.SelectedCardKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "637805123456789", v)
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not a url", "")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"memory", config.Config{KVBackend: "memory"}, false},
		{"file", config.Config{KVBackend: "file", KVFilePath: filepath.Join(dir, "c.yaml")}, false},
		{"sqlite", config.Config{KVBackend: "sqlite", KVSQLitePath: filepath.Join(dir, "c.db")}, false},
		{"unknown", config.Config{KVBackend: "etcd"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), &tt.cfg, zerolog.Nop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
