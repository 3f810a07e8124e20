package handlers

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Flomo/internal/config"
	"Flomo/internal/middleware"
	"Flomo/internal/service"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	syncService *service.SyncService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.RateLimit(config.RateLimitRPS, config.RateLimitBurst))
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)

	syncHandler := NewSyncHandler(syncService, logger)

	// Sync routes
	r.Route("/api/sync", func(r chi.Router) {
		r.Get("/full", syncHandler.Full)
		r.Get("/pull", syncHandler.Pull)
		r.Post("/push", syncHandler.Push)
	})

	return &Handler{Router: r}
}
