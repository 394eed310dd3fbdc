// Package api assetreg REST API
//
// @title           assetreg REST API
// @version         1.0.0
// @description     Inspect, store and browse asset registry containers.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the router. gatherer backs the /metrics endpoint.
func (s *Server) Routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Unprotected for scraping
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Post("/inspect", s.metrics.InstrumentHandler("POST", "/api/v1/inspect", s.handleInspect))

		r.Route("/registries", func(r chi.Router) {
			r.Post("/", s.metrics.InstrumentHandler("POST", "/api/v1/registries", s.handleCreateRegistry))
			r.Get("/", s.metrics.InstrumentHandler("GET", "/api/v1/registries", s.handleListRegistries))
			r.Get("/{id}", s.metrics.InstrumentHandler("GET", "/api/v1/registries/{id}", s.handleGetRegistry))
			r.Delete("/{id}", s.metrics.InstrumentHandler("DELETE", "/api/v1/registries/{id}", s.handleDeleteRegistry))
			r.Get("/{id}/names", s.metrics.InstrumentHandler("GET", "/api/v1/registries/{id}/names", s.handleGetNames))
			r.Get("/{id}/pairs", s.metrics.InstrumentHandler("GET", "/api/v1/registries/{id}/pairs", s.handleGetPairs))
			r.Get("/{id}/raw", s.metrics.InstrumentHandler("GET", "/api/v1/registries/{id}/raw", s.handleGetRaw))
		})
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, catalog RegistryCatalog, config ServerConfig) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	server := NewServer(catalog, config, NewMetrics(reg))
	server.refreshCatalogGauge()

	bind := config.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	addr := net.JoinHostPort(bind, strconv.Itoa(config.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("starting assetreg REST API server", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.logger.Info("shutting down API server")
		return httpServer.Shutdown(shutdownCtx)
	}
}
