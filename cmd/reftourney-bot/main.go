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

	"reftourney/internal/bot"
	"reftourney/internal/config"
	"reftourney/internal/gate"
	"reftourney/internal/store"
	"reftourney/internal/tournament"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBotFromEnv()
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

	var (
		eligibility tournament.Gate = gate.AllowAll{}
		run         func(context.Context, *bot.Handler) error
	)
	switch cfg.Transport {
	case "discord":
		d, err := bot.NewDiscord(cfg.Discord.Token, logger.With("transport", "discord"))
		if err != nil {
			logger.Error("discord init failed", "err", err)
			os.Exit(1)
		}
		if len(cfg.Discord.RequiredGuilds) > 0 {
			eligibility = gate.NewDiscordGuilds(d.Session(), cfg.Discord.RequiredGuilds)
		}
		run = d.Run
	case "whatsapp":
		w, err := bot.NewWhatsApp(ctx, cfg.WhatsApp, logger.With("transport", "whatsapp"))
		if err != nil {
			logger.Error("whatsapp init failed", "err", err)
			os.Exit(1)
		}
		if len(cfg.WhatsApp.RequiredGroups) > 0 {
			g, err := gate.NewWhatsAppGroups(w.Client(), cfg.WhatsApp.RequiredGroups)
			if err != nil {
				logger.Error("whatsapp gate init failed", "err", err)
				os.Exit(1)
			}
			eligibility = g
		}
		run = w.Run
	}

	svc := tournament.NewService(st, eligibility, cfg.Tournament, logger)
	if err := svc.Start(ctx); err != nil {
		logger.Error("leaderboard start failed", "err", err)
		os.Exit(1)
	}
	defer svc.Stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, logger)
	}

	handler := bot.NewHandler(svc, logger, cfg.ActivateEvery, cfg.ActivateBurst)
	logger.Info("bot started", "transport", cfg.Transport, "store", cfg.Store.Driver)
	if err := run(ctx, handler); err != nil {
		logger.Error("bot failed", "err", err)
		os.Exit(1)
	}
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "err", err)
	}
}
