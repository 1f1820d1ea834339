// Package http exposes the REST surface: problem retrieval and generation,
// request polling, cache administration, health, and metrics.
package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/conjugo/conjugo/internal/adapters/http/handlers"
	"github.com/conjugo/conjugo/internal/adapters/http/middleware"
	"github.com/conjugo/conjugo/internal/application/services"
	"github.com/conjugo/conjugo/internal/cache"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

type Server struct {
	router     *chi.Mux
	httpServer *http.Server
}

// Deps carries everything the route tree needs. All fields are required
// except Broker, which degrades the health check when absent.
type Deps struct {
	DB           *pgxpool.Pool
	Selector     *services.Selector
	Tracker      ports.RequestTracker
	Requests     ports.GenerationRequestRepository
	Publisher    ports.Publisher
	IDGen        ports.IDGenerator
	Verbs        *cache.VerbCache
	Conjugations *cache.ConjugationCache
	Keys         *cache.KeyCache
	APIKeys      ports.APIKeyRepository
	Broker       handlers.BrokerChecker
	Topic        string
}

func NewServer(host string, port int, deps Deps) *Server {
	router := chi.NewRouter()

	problemHandler := handlers.NewProblemHandler(deps.Selector, deps.Tracker, deps.Requests, deps.Publisher, deps.IDGen)
	requestHandler := handlers.NewGenerationRequestHandler(deps.Tracker, deps.Requests)
	cacheHandler := handlers.NewCacheHandler(deps.Verbs, deps.Conjugations, deps.Keys)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Broker, deps.Topic)
	rateLimiter := middleware.NewRateLimiter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logger)
	router.Use(middleware.Metrics)

	router.Get("/health", healthHandler.Handle)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(deps.Keys, deps.APIKeys))
		r.Use(rateLimiter.Middleware)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(models.PermissionRead))
			r.Get("/problems/random", problemHandler.Random)
			r.Get("/problems/{id}", problemHandler.Get)
			r.Get("/generation-requests/{id}", requestHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(models.PermissionWrite))
			r.Post("/problems/generate", problemHandler.Generate)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(models.PermissionAdmin))
			r.Get("/generation-requests", requestHandler.List)
			r.Delete("/generation-requests", requestHandler.Clean)
			r.Get("/cache/stats", cacheHandler.Stats)
			r.Post("/cache/reload", cacheHandler.Reload)
		})
	})

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	log.Printf("http server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
