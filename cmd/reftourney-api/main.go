package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reftourney/internal/api"
	"reftourney/internal/auth"
	"reftourney/internal/config"
	"reftourney/internal/gate"
	"reftourney/internal/store"
	"reftourney/internal/tournament"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	st, closeStore, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// Callers of the API have already checked eligibility on their side.
	svc := tournament.NewService(st, gate.AllowAll{}, cfg.Tournament, logger)
	if err := svc.Start(ctx); err != nil {
		logger.Error("leaderboard start failed", "err", err)
		os.Exit(1)
	}
	defer svc.Stop()

	server := api.New(logger, auth.NewTokenVerifier(cfg.APIToken), svc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("reftourney api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
