package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ardenmarsh/twincore/internal/catalog"
	"github.com/ardenmarsh/twincore/internal/facility"
	"github.com/ardenmarsh/twincore/internal/importer"
	"github.com/ardenmarsh/twincore/internal/infrastructure/config"
	"github.com/ardenmarsh/twincore/internal/infrastructure/database"
	"github.com/ardenmarsh/twincore/internal/infrastructure/logging"
	"github.com/ardenmarsh/twincore/internal/inventory"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the facilityd API server.
type Deps struct {
	Config     config.FacilityAPIConfig
	Logger     *logging.Logger
	DB         *database.DB
	Facilities facility.Repository
	Products   catalog.Repository
	Devices    inventory.Repository
	Version    string
}

// Server is the HTTP API server for facilityd.
//
// It manages the HTTP listener, routes, and middleware over the facility,
// catalog, and installed-device repositories. The server is created with
// New() and started with Start().
type Server struct {
	cfg        config.FacilityAPIConfig
	logger     *logging.Logger
	db         *database.DB
	facilities facility.Repository
	products   catalog.Repository
	devices    inventory.Repository
	parser     *importer.Parser
	installer  *importer.Installer
	version    string
	server     *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Facilities == nil {
		return nil, fmt.Errorf("facility repository is required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device repository is required")
	}
	// DB is optional — repositories carry their own handle; the server
	// only uses it for health reporting.

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		db:         deps.DB,
		facilities: deps.Facilities,
		products:   deps.Products,
		devices:    deps.Devices,
		parser:     importer.NewParser(),
		installer:  importer.NewInstaller(deps.Products, deps.Devices),
		version:    deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
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
		s.logger.Info("facility API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("facility API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("facility API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down facility API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and its database reachable.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api health check: %w", err)
		}
	}
	return nil
}
