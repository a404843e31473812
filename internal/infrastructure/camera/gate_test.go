package camera

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beepcard/beep-tap/internal/domain/tap"
)

func waitPending(t *testing.T, g *PromptGate) Prompt {
	t.Helper()
	var p Prompt
	require.Eventually(t, func() bool {
		var ok bool
		p, ok = g.Pending()
		return ok
	}, time.Second, time.Millisecond)
	return p
}

func TestPromptGate_Grant(t *testing.T) {
	g := NewPromptGate(time.Minute, zerolog.Nop())
	assert.False(t, g.HasPermission())
	assert.ErrorIs(t, g.Answer(true), ErrNoPrompt)

	result := make(chan bool, 1)
	go func() {
		granted, err := g.RequestPermission(context.Background())
		assert.NoError(t, err)
		result <- granted
	}()

	p := waitPending(t, g)
	assert.NotEmpty(t, p.ID)

	_, err := g.RequestPermission(context.Background())
	assert.ErrorIs(t, err, tap.ErrPromptInFlight)

	require.NoError(t, g.Answer(true))
	assert.True(t, <-result)
	assert.True(t, g.HasPermission())

	_, pending := g.Pending()
	assert.False(t, pending)

	g.Revoke()
	assert.False(t, g.HasPermission())
}

func TestPromptGate_Deny(t *testing.T) {
	g := NewPromptGate(time.Minute, zerolog.Nop())

	result := make(chan bool, 1)
	go func() {
		granted, _ := g.RequestPermission(context.Background())
		result <- granted
	}()
	waitPending(t, g)
	require.NoError(t, g.Answer(false))

	assert.False(t, <-result)
	assert.False(t, g.HasPermission())
}

func TestPromptGate_TimesOutToDenied(t *testing.T) {
	g := NewPromptGate(20*time.Millisecond, zerolog.Nop())
	granted, err := g.RequestPermission(context.Background())
	assert.NoError(t, err)
	assert.False(t, granted)
}

func TestPromptGate_ContextCancelled(t *testing.T) {
	g := NewPromptGate(time.Minute, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	granted, err := g.RequestPermission(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, granted)
}

func TestStaticGate(t *testing.T) {
	yes := NewStaticGate(true)
	assert.True(t, yes.HasPermission())

	no := NewStaticGate(false)
	assert.False(t, no.HasPermission())
	granted, err := no.RequestPermission(context.Background())
	assert.NoError(t, err)
	assert.False(t, granted)
}
