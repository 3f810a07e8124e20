package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Flomo/internal/config"
	"Flomo/internal/handlers"
	"Flomo/internal/logging"
	"Flomo/internal/middleware"
	"Flomo/internal/repo"
	"Flomo/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.NewConfig()

	// консоль + (опционально) файл с ротацией
	logger := logging.New(logging.Options{Verbose: cfg.Verbose, File: cfg.LogFile})

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		_ = logger.Sync()
	}()

	//context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	syncRepo := repo.NewSyncRepository(gormDB)
	syncService := service.NewSyncService(syncRepo, sugar)

	h := handlers.NewHandler(syncService, sugar, cfg)

	// ключи идемпотентности живут PushKeyTTL, чистим несколько раз за период
	go syncService.RunPushKeyJanitor(ctx, cfg.PushKeyTTL, max(cfg.PushKeyTTL/4, time.Minute))

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"DatabaseDSN", cfg.DatabaseDSN,
		"RateLimitRPS", cfg.RateLimitRPS,
		"RateLimitBurst", cfg.RateLimitBurst,
		"PushKeyTTL", cfg.PushKeyTTL,
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("Server failed", "error", err)
		}
	case <-ctx.Done():
		sugar.Infow("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("Graceful shutdown failed", "error", err)
		}
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
