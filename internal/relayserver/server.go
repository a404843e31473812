package relayserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/config"
	"github.com/beepcard/beep-tap/internal/infrastructure/auth"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/middlewares"
	"github.com/beepcard/beep-tap/internal/utils/idgen"
	"github.com/beepcard/beep-tap/internal/utils/platformerrors"
)

// Server exposes the hub over websocket plus a small HTTP admin surface.
type Server struct {
	cfg      *config.Config
	hub      *Hub
	engine   *gin.Engine
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewServer creates the relay server.
func NewServer(cfg *config.Config, log zerolog.Logger, hub *Hub, authValidator *auth.Validator) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log = log.With().Str("component", "relay-server").Logger()

	s := &Server{
		cfg: cfg,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// terminals and phones connect from arbitrary origins
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middlewares.RequestID())
	engine.Use(middlewares.Metrics())
	engine.Use(middlewares.RequestLogger(log))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "peers": hub.PeerCount()})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1")
	if authValidator.Enabled() {
		v1.Use(authValidator.Middleware())
	}
	v1.GET("/relay", s.serveWS)
	v1.GET("/rooms", s.listRooms)
	v1.GET("/rooms/:id", s.getRoom)

	s.engine = engine
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.RelayServerAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", server.Addr).Msg("relay server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down relay server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	// hijacked websocket connections are not tracked by http.Server
	s.hub.Close()
	return err
}

func (s *Server) serveWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	id, err := idgen.GenerateSecureID("peer", 12)
	if err != nil {
		_ = conn.Close()
		return
	}
	p := newPeer(id, c.GetString("user_id"), conn, s.hub, s.log)
	s.hub.register(p)

	go p.writePump()
	p.readPump()
}

func (s *Server) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": s.hub.Rooms()})
}

func (s *Server) getRoom(c *gin.Context) {
	room, err := s.hub.Room(c.Param("id"))
	if err != nil {
		platformerrors.WriteNotFound(c, "room not found")
		return
	}
	c.JSON(http.StatusOK, room)
}
