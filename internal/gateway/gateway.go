// ABOUTME: Gateway wiring the HTTP server, middleware stack and background sweeper
// ABOUTME: Owns startup and graceful shutdown of every serving component

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bootgate/bootgate/internal/auth"
	"github.com/bootgate/bootgate/internal/bootstrap"
	"github.com/bootgate/bootgate/internal/config"
	"github.com/bootgate/bootgate/internal/ratelimit"
	"github.com/bootgate/bootgate/internal/receipts"
	"github.com/bootgate/bootgate/internal/startup"
	"github.com/bootgate/bootgate/internal/store"
)

// Version is the served bootgate version.
const Version = "1.0.0"

// Gateway owns the HTTP surface and the retention sweeper.
type Gateway struct {
	cfg       *config.Config
	store     store.Store
	bootstrap *bootstrap.Service
	startup   *startup.Service
	sweeper   *startup.Sweeper
	authn     *auth.Authenticator
	limiter   *ratelimit.Limiter
	metrics   *metrics
	registry  *prometheus.Registry
	logger    *slog.Logger

	httpServer  *http.Server
	sweepCancel context.CancelFunc
}

// New assembles a gateway from configuration and an opened store.
func New(cfg *config.Config, st store.Store) *Gateway {
	logger := slog.Default().With("component", "gateway")

	var emitter *receipts.Emitter
	if cfg.Receipts.Enabled && cfg.Receipts.Endpoint != "" {
		client := receipts.NewClient(cfg.Receipts.Endpoint, cfg.Receipts.AuthToken, cfg.Receipts.Timeout)
		emitter = receipts.NewEmitter(client, st, cfg.Receipts.Timeout)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer)

	registry := prometheus.NewRegistry()
	g := &Gateway{
		cfg:      cfg,
		store:    st,
		authn:    auth.NewAuthenticator(verifier, st, cfg.Auth.APIKeyHeader),
		registry: registry,
		metrics:  newMetrics(registry),
		logger:   logger,
	}

	// A typed nil *Emitter must not end up wrapped in a non-nil interface.
	if emitter != nil {
		g.bootstrap = bootstrap.NewService(st, emitter)
		g.startup = startup.NewService(st, emitter)
	} else {
		g.bootstrap = bootstrap.NewService(st, nil)
		g.startup = startup.NewService(st, nil)
	}

	g.sweeper = startup.NewSweeper(st, cfg.Retention.SessionRetention, cfg.Retention.SweepInterval)

	if cfg.RateLimit.Enabled {
		g.limiter = ratelimit.NewLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute)
	}

	return g
}

// Router builds the chi handler tree.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(g.observe)
	if g.limiter != nil {
		r.Use(g.limiter.Middleware)
	}

	r.Get("/", g.handleRoot)
	r.Get("/health", g.handleHealth)
	r.Get("/.well-known/bootgate.json", g.handleDiscovery)
	if g.cfg.Metrics.Enabled {
		r.Handle(g.cfg.Metrics.Path, promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(g.authn.Middleware)

		r.Post("/bootstrap", g.handleBootstrap)
		r.Post("/startup/ready", g.handleStartupReady)
		r.Post("/startup/failed", g.handleStartupFailed)
		r.Get("/startup/{id}", g.handleGetStartup)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Post("/principals", g.handleCreatePrincipal)
			r.Get("/principals", g.handleListPrincipals)
			r.Delete("/principals/{id}", g.handleDeletePrincipal)

			r.Post("/profiles", g.handleCreateProfile)
			r.Get("/profiles", g.handleListProfiles)
			r.Delete("/profiles/{id}", g.handleDeleteProfile)

			r.Post("/manifests", g.handleCreateManifest)
			r.Get("/manifests", g.handleListManifests)
			r.Delete("/manifests/{id}", g.handleDeleteManifest)

			r.Post("/bindings", g.handleCreateBinding)
			r.Get("/bindings", g.handleListBindings)
			r.Delete("/bindings/{id}", g.handleDeleteBinding)

			r.Post("/secret-refs", g.handleCreateSecretRef)
			r.Get("/secret-refs", g.handleListSecretRefs)
			r.Delete("/secret-refs/{id}", g.handleDeleteSecretRef)

			r.Post("/api-keys", g.handleCreateAPIKey)

			r.Get("/sessions", g.handleListSessions)
		})
	})

	return r
}

// Start begins serving and launches the retention sweeper. It blocks until
// the listener fails or Shutdown is called.
func (g *Gateway) Start() error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	g.sweepCancel = cancel
	go g.sweeper.Run(sweepCtx)

	g.httpServer = &http.Server{
		Addr:              g.cfg.Server.HTTPAddr,
		Handler:           g.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.logger.Info("gateway listening", "addr", g.cfg.Server.HTTPAddr, "version", Version)

	if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the sweeper and drains the HTTP server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("gateway shutting down")

	if g.sweepCancel != nil {
		g.sweepCancel()
	}
	if g.httpServer != nil {
		if err := g.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("draining http server: %w", err)
		}
	}
	return nil
}

// observe records request latency per chi route pattern.
func (g *Gateway) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		g.metrics.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func formatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
