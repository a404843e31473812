//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/config"
	"github.com/beepcard/beep-tap/internal/domain"
	"github.com/beepcard/beep-tap/internal/domain/card"
	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/auth"
	"github.com/beepcard/beep-tap/internal/infrastructure/camera"
	"github.com/beepcard/beep-tap/internal/infrastructure/cardapi"
	"github.com/beepcard/beep-tap/internal/infrastructure/database"
	"github.com/beepcard/beep-tap/internal/infrastructure/kvstore"
	"github.com/beepcard/beep-tap/internal/infrastructure/metrics"
	"github.com/beepcard/beep-tap/internal/infrastructure/navigation"
	"github.com/beepcard/beep-tap/internal/infrastructure/relay"
	"github.com/beepcard/beep-tap/internal/interfaces"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/handlers"
)

// ProviderSet is the wire provider set for the application.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	ProvideAuthValidator,
	ProvideConfigStore,
	ProvideHistory,
	ProvideChannel,
	ProvideCapabilityGate,
	ProvidePermissionPrompter,
	ProvideRecognizer,
	ProvideCardAPI,
	ProvideNavigator,
	ProvidePorts,
	wire.Bind(new(handlers.FrameSink), new(*camera.FrameRecognizer)),
	wire.Bind(new(handlers.SessionController), new(*tap.Coordinator)),

	// Domain providers
	domain.ServiceProvider,

	// Interface providers
	ProvideTapHandler,
	interfaces.InterfacesProvider,

	// Application
	NewApplication,
)

// ProvideAuthValidator provides an auth validator.
func ProvideAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

// ProvideConfigStore provides the persisted selected-card store.
func ProvideConfigStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (tap.ConfigStore, func(), error) {
	store, err := kvstore.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// ProvideHistory provides the tap attempt repository.
func ProvideHistory(ctx context.Context, cfg *config.Config, log zerolog.Logger) (tap.HistoryRepository, func(), error) {
	repo, db, err := openHistory(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() {
		if db != nil {
			_ = database.Close(db)
		}
	}, nil
}

// ProvideChannel provides the relay websocket client.
func ProvideChannel(cfg *config.Config, log zerolog.Logger) tap.Channel {
	return relay.NewClient(cfg.RelayURL, cfg.RelayToken, cfg.DialPolicy(), log)
}

// ProvideCapabilityGate provides the camera permission gate.
func ProvideCapabilityGate(cfg *config.Config, log zerolog.Logger) tap.CapabilityGate {
	return cameraGate(cfg, log)
}

// ProvidePermissionPrompter exposes the gate to the HTTP surface when it prompts.
func ProvidePermissionPrompter(gate tap.CapabilityGate) handlers.PermissionPrompter {
	return permissionPrompter(gate)
}

// ProvideRecognizer provides the frame recognizer.
func ProvideRecognizer(cfg *config.Config, log zerolog.Logger) (*camera.FrameRecognizer, error) {
	return camera.NewFrameRecognizer(cfg.ScanDebounce, log)
}

// ProvideCardAPI provides the card manager HTTP client.
func ProvideCardAPI(cfg *config.Config) card.API {
	return cardapi.NewClient(cfg.CardAPIURL, cfg.CardAPITimeout, "")
}

// ProvideNavigator provides the post-tap transaction navigator.
func ProvideNavigator(cards card.Service, cfg *config.Config, log zerolog.Logger) tap.Navigator {
	return navigation.NewTransactionNavigator(cards, cfg.CardAPITimeout, log)
}

// ProvidePorts groups the coordinator collaborators.
func ProvidePorts(
	channel tap.Channel,
	gate tap.CapabilityGate,
	recognizer *camera.FrameRecognizer,
	configStore tap.ConfigStore,
	history tap.HistoryRepository,
	navigator tap.Navigator,
) tap.Ports {
	return tap.Ports{
		Channel:    channel,
		Gate:       gate,
		Recognizer: recognizer,
		Config:     configStore,
		History:    history,
		Navigator:  navigator,
		Observer:   metrics.NewObserver(),
	}
}

// ProvideTapHandler provides the tap HTTP handler.
func ProvideTapHandler(
	session handlers.SessionController,
	prompter handlers.PermissionPrompter,
	frames handlers.FrameSink,
	configStore tap.ConfigStore,
	history tap.HistoryRepository,
	cfg *config.Config,
) *handlers.TapHandler {
	return handlers.NewTapHandler(session, prompter, frames, configStore, history, cfg.HistoryPageSize)
}

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
) (*Application, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
