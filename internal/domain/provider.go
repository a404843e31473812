package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/config"
	"github.com/beepcard/beep-tap/internal/domain/card"
	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/utils/idgen"
)

// ProvideCoordinator provides the tap session coordinator.
func ProvideCoordinator(cfg *config.Config, ports tap.Ports, log zerolog.Logger) *tap.Coordinator {
	return tap.NewCoordinator(ports, CoordinatorOptions(cfg), log)
}

// CoordinatorOptions maps configuration onto coordinator options.
func CoordinatorOptions(cfg *config.Config) tap.Options {
	return tap.Options{
		Region:          cfg.Region(),
		SuccessSentinel: cfg.SuccessSentinel,
		OutcomeTimeout:  cfg.OutcomeTimeout,
		NewID:           idgen.NewAttemptID,
	}
}

// ProvideCardService provides the card lookup service.
func ProvideCardService(api card.API, log zerolog.Logger) card.Service {
	return card.NewService(api, log)
}

// ServiceProvider provides all domain services.
var ServiceProvider = wire.NewSet(
	ProvideCoordinator,
	ProvideCardService,
)
