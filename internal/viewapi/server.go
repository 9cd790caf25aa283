package viewapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ardenmarsh/twincore/internal/infrastructure/config"
	"github.com/ardenmarsh/twincore/internal/infrastructure/logging"
	"github.com/ardenmarsh/twincore/internal/twin"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the view API server.
type Deps struct {
	Config   config.ViewAPIConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Engine   *twin.Engine

	// ExternalHub, when set, is used instead of creating a hub. The caller
	// owns its lifecycle: this is how the engine and the server share one
	// hub, since the engine needs it before the server starts.
	ExternalHub *Hub

	Version string
}

// Server is the HTTP and WebSocket server fronting the twin engine.
//
// Every route delegates to the engine; the server owns no twin state of
// its own. It is created with New() and started with Start().
type Server struct {
	cfg         config.ViewAPIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	engine      *twin.Engine
	hub         *Hub
	externalHub bool
	version     string
	server      *http.Server
	cancel      context.CancelFunc
}

// New creates a new view API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("twin engine is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.Config.WebSocket,
		secCfg:  deps.Security,
		logger:  deps.Logger,
		engine:  deps.Engine,
		version: deps.Version,
	}
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}
	return s, nil
}

// Hub returns the server's WebSocket hub, creating one if necessary.
// Exposed so callers can hand it to the engine as its broadcaster before
// Start() runs.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub (unless one was injected externally, in
// which case the owner runs it) and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop the hub independently of the
	// parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		s.logger.Info("view API server starting",
			"address", s.server.Addr,
			"auth", s.secCfg.JWT.Secret != "",
		)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("view API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the view API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Stop the hub's client connections.
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("view API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down view API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("view api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("view api server not started")
	}
	return nil
}
