package handlers

import (
	"github.com/google/wire"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Tap *TapHandler
}

// NewProvider creates a new handler provider.
func NewProvider(tapHandler *TapHandler) *Provider {
	return &Provider{Tap: tapHandler}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewProvider,
)
