// Package api implements app.Runner for the API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/chainsafe/cbdc-gateway/pkg/app/http"
	"github.com/chainsafe/cbdc-gateway/pkg/auth"
	"github.com/chainsafe/cbdc-gateway/pkg/config"
	"github.com/chainsafe/cbdc-gateway/pkg/gateway"
	"github.com/chainsafe/cbdc-gateway/pkg/query"
	"github.com/chainsafe/cbdc-gateway/pkg/registry"
	tokenservice "github.com/chainsafe/cbdc-gateway/pkg/token/service"
)

// ledger submits wait for commit; keep the request budget above the
// default per-phase ledger timeout
const defaultRequestTimeout = 10 * time.Minute

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.APIServerConfig
}

// NewServer initializes new api server.
func NewServer(cfg *config.APIServerConfig) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting CBDC gateway API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	stack, err := gateway.Open(ctx, &cfg.Fabric, &cfg.Identity, logger, nil)
	if err != nil {
		return fmt.Errorf("open ledger stack: %w", err)
	}
	defer func() { _ = stack.Close() }()

	tokenService := tokenservice.NewLog(tokenservice.NewTokenService(stack.Sessions), logger)
	engine := query.NewEngine(stack.Sessions, logger, query.WithMaxPageSize(cfg.Query.MaxPageSize))
	reg := registry.New(stack.Profiles, stack.Identities, cfg.Fabric.Organization, logger)

	var validator *auth.JWTValidator
	if cfg.Auth.Enabled {
		validator = auth.NewJWTValidator(cfg.Auth.HMACSecret, cfg.Auth.JWKSURL, cfg.Auth.Issuer)
		logger.Info("Bearer token authentication enabled",
			zap.Bool("jwks", cfg.Auth.JWKSURL != ""),
			zap.String("issuer", cfg.Auth.Issuer),
		)
	} else {
		logger.Warn("Bearer token authentication disabled; callers are taken from the " + auth.HeaderIdentity + " header")
	}

	router := s.setupRouter(Handlers{
		Token:     tokenService,
		Query:     engine,
		Registry:  reg,
		Validator: validator,
	}, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

// Handlers groups the components served by the router.
type Handlers struct {
	Token     tokenservice.Service
	Query     *query.Engine
	Registry  *registry.Registry
	Validator *auth.JWTValidator
}

func (s *Server) setupRouter(h Handlers, logger *zap.Logger) chi.Router {
	return NewRouter(h, s.cfg.Metrics.Enabled, logger)
}

// NewRouter builds the HTTP surface: health and metrics at the root, the
// gateway API under /api/v1 behind caller resolution.
func NewRouter(h Handlers, metricsEnabled bool, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		// network reads carry no caller
		registry.RegisterRoutes(api, h.Registry)

		api.Group(func(authed chi.Router) {
			authed.Use(auth.Middleware(h.Validator, logger))
			tokenservice.RegisterRoutes(authed, h.Token, logger)
			query.RegisterRoutes(authed, h.Query, logger)
		})
	})

	return r
}
