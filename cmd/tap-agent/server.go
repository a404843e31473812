// @title           Tap Agent API
// @version         1.0
// @description     Drives the beep tap session: relay connection, camera permission,
// @description     QR scans of terminal rooms and tap outcomes.

// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/beepcard/beep-tap/internal/config"
	"github.com/beepcard/beep-tap/internal/domain"
	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/auth"
	"github.com/beepcard/beep-tap/internal/infrastructure/camera"
	"github.com/beepcard/beep-tap/internal/infrastructure/cardapi"
	"github.com/beepcard/beep-tap/internal/infrastructure/database"
	"github.com/beepcard/beep-tap/internal/infrastructure/kvstore"
	"github.com/beepcard/beep-tap/internal/infrastructure/logger"
	"github.com/beepcard/beep-tap/internal/infrastructure/metrics"
	"github.com/beepcard/beep-tap/internal/infrastructure/navigation"
	"github.com/beepcard/beep-tap/internal/infrastructure/observability"
	"github.com/beepcard/beep-tap/internal/infrastructure/relay"
	"github.com/beepcard/beep-tap/internal/infrastructure/repository/history"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/handlers"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/routes"
	"github.com/beepcard/beep-tap/internal/utils/sanitizer"
)

// Application holds the main application components.
type Application struct {
	httpServer  *httpserver.HTTPServer
	coordinator *tap.Coordinator
	log         zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(httpServer *httpserver.HTTPServer, coordinator *tap.Coordinator, log zerolog.Logger) *Application {
	return &Application{
		httpServer:  httpServer,
		coordinator: coordinator,
		log:         log,
	}
}

// Start runs the coordinator and the HTTP server until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.coordinator.Run(ctx); err != nil {
			a.log.Error().Err(err).Msg("tap coordinator stopped with error")
		}
	}()

	err := a.httpServer.Run(ctx)
	wg.Wait()
	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
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

	configStore, err := kvstore.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open config store")
	}
	defer configStore.Close()

	historyRepo, db, err := openHistory(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open tap history")
	}
	if db != nil {
		defer database.Close(db)
	}

	gate := cameraGate(cfg, log)
	recognizer, err := camera.NewFrameRecognizer(cfg.ScanDebounce, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create recognizer")
	}

	cardService := domain.ProvideCardService(cardapi.NewClient(cfg.CardAPIURL, cfg.CardAPITimeout, ""), log)

	coordinator := domain.ProvideCoordinator(cfg, tap.Ports{
		Channel:    relay.NewClient(cfg.RelayURL, cfg.RelayToken, cfg.DialPolicy(), log),
		Gate:       gate,
		Recognizer: recognizer,
		Config:     configStore,
		History:    historyRepo,
		Navigator:  navigation.NewTransactionNavigator(cardService, cfg.CardAPITimeout, log),
		Observer:   metrics.NewObserver(),
	}, log)

	tapHandler := handlers.NewTapHandler(coordinator, permissionPrompter(gate), recognizer, configStore, historyRepo, cfg.HistoryPageSize)
	routeProvider := routes.NewProvider(handlers.NewProvider(tapHandler), authValidator)
	httpServer := httpserver.New(cfg, log, routeProvider)

	app := NewApplication(httpServer, coordinator, log)

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("relay_url", cfg.RelayURL).
		Str("kv_backend", cfg.KVBackend).
		Str("history_backend", cfg.HistoryBackend).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func cameraGate(cfg *config.Config, log zerolog.Logger) tap.CapabilityGate {
	switch cfg.CameraPermission {
	case "granted":
		return camera.NewStaticGate(true)
	case "denied":
		return camera.NewStaticGate(false)
	default:
		return camera.NewPromptGate(cfg.CameraPromptTimeout, log)
	}
}

// permissionPrompter returns nil for gates that never ask the user.
func permissionPrompter(gate tap.CapabilityGate) handlers.PermissionPrompter {
	prompter, ok := gate.(handlers.PermissionPrompter)
	if !ok {
		return nil
	}
	return prompter
}

func openHistory(ctx context.Context, cfg *config.Config, log zerolog.Logger) (tap.HistoryRepository, *gorm.DB, error) {
	if cfg.HistoryBackend != "postgres" {
		return history.NewInMemoryRepository(cfg.HistoryPageSize * 10), nil, nil
	}

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, nil, err
	}
	return history.NewPostgresRepository(db), db, nil
}

func loadEnvFiles() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
