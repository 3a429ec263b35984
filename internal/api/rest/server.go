// Package rest provides functionality for initializing a server
package rest

import (
	"compress/flate"
	"context"
	"net/http"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/api/rest/handlers"
	"github.com/danilovkiri/dk-go-panel/internal/api/rest/httputil"
	"github.com/danilovkiri/dk-go-panel/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/metrics"
	"github.com/danilovkiri/dk-go-panel/internal/service/catalog"
	"github.com/danilovkiri/dk-go-panel/internal/service/processor/v1/processor"
	"github.com/danilovkiri/dk-go-panel/internal/service/secretary/v1/secretary"
	storage "github.com/danilovkiri/dk-go-panel/internal/storage/v1"
	"github.com/danilovkiri/dk-go-panel/internal/storage/v1/backend"
	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
)

// InitServer opens the configured storage and returns a http.Server ready to be listening and serving.
// The caller owns the returned storage and closes it after the server has shut down.
func InitServer(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*http.Server, storage.Storage, error) {
	// initialize storage
	st, err := backend.Open(ctx, cfg.StorageConfig, log)
	if err != nil {
		return nil, nil, err
	}

	router, err := NewRouter(st, cfg, catalog.Default(), log)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:              cfg.ServerConfig.ServerAddress,
		Handler:           router,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return srv, st, nil
}

// NewRouter wires the services on top of st and mounts every route.
func NewRouter(st storage.Storage, cfg *config.Config, cat *catalog.Catalog, log *zerolog.Logger) (http.Handler, error) {
	// initialize secretary
	secretaryService, err := secretary.NewSecretaryService(cfg.SecretConfig)
	if err != nil {
		return nil, err
	}

	// initialize token handler
	tokenHandler, err := middleware.NewTokenHandler(secretaryService, log)
	if err != nil {
		return nil, err
	}

	// initialize main service
	mainService, err := processor.InitService(st, secretaryService, cat, log)
	if err != nil {
		return nil, err
	}

	urlHandler, err := handlers.InitHandlers(mainService, cfg.ServerConfig, log)
	if err != nil {
		return nil, err
	}

	limiter := middleware.NewRateLimiter(cfg.LimiterConfig.Rate, cfg.LimiterConfig.Burst, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.ServerConfig.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.AccessLog(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.CORS())
	r.Use(chimiddleware.Compress(flate.DefaultCompression))
	r.Use(middleware.DecompressHandle)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", urlHandler.HandleRoot())
	r.Get("/services", urlHandler.HandleServices())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	loginGroup := r.Group(nil)
	loginGroup.Use(limiter.Handler)
	loginGroup.Post("/signup", urlHandler.HandleSignup())
	loginGroup.Post("/login", urlHandler.HandleLogin())

	mainGroup := r.Group(nil)
	mainGroup.Use(tokenHandler.TokenHandle)
	mainGroup.Get("/balance", urlHandler.HandleBalance())
	mainGroup.Post("/fund-request", urlHandler.HandleFundRequest())
	mainGroup.Get("/my-requests", urlHandler.HandleMyRequests())
	mainGroup.Post("/order", urlHandler.HandleOrder())
	mainGroup.Get("/my-orders", urlHandler.HandleMyOrders())

	adminGroup := mainGroup.Group(nil)
	adminGroup.Use(tokenHandler.AdminHandle)
	adminGroup.Get("/admin/requests", urlHandler.HandleAdminRequests())
	adminGroup.Get("/admin/orders", urlHandler.HandleAdminOrders())
	adminGroup.Post("/admin/approve-funding", urlHandler.HandleApproveFunding())
	adminGroup.Post("/admin/approve", urlHandler.HandleApproveFunding())

	return r, nil
}
