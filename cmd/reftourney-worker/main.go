package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reftourney/internal/config"
	"reftourney/internal/store"
	"reftourney/internal/tournament"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
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

	board := tournament.NewLeaderboard(st, cfg.Tournament, logger)
	if cfg.RunOnce {
		if err := board.Refresh(ctx); err != nil {
			logger.Error("refresh failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed", "entries", len(board.Snapshot().Entries))
		return
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "err", err)
			}
		}()
		defer srv.Close()
	}

	if err := board.Load(ctx); err != nil {
		logger.Warn("initial snapshot load failed", "err", err)
	}
	if err := board.Start(ctx); err != nil {
		logger.Error("worker start failed", "err", err)
		os.Exit(1)
	}
	logger.Info("worker started", "refresh_every", cfg.Tournament.RefreshEvery.String())
	<-ctx.Done()
	board.Stop()
	logger.Info("worker shutdown")
}
