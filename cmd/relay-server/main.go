package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/beepcard/beep-tap/internal/config"
	"github.com/beepcard/beep-tap/internal/infrastructure/auth"
	"github.com/beepcard/beep-tap/internal/infrastructure/logger"
	"github.com/beepcard/beep-tap/internal/infrastructure/observability"
	"github.com/beepcard/beep-tap/internal/relayserver"
	"github.com/beepcard/beep-tap/internal/utils/sanitizer"
)

func main() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	if os.Getenv("SERVICE_NAME") == "" {
		cfg.ServiceName = "relay-server"
	}

	log := logger.New(cfg)
	sanitizer.SetDefault(sanitizer.New(sanitizer.Level(cfg.LogPIILevel), cfg.ServiceName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth validator")
	}

	hub := relayserver.NewHub(log)
	server := relayserver.NewServer(cfg, log, hub, authValidator)

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.RelayServerPort).
		Bool("auth", authValidator.Enabled()).
		Msg("starting relay server")

	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("relay server stopped with error")
	}

	log.Info().Msg("relay server exited cleanly")
}
