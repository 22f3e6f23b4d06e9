package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"reftourney/internal/tournament"
)

type StoreConfig struct {
	Driver      string
	DatabaseURL string
	BoltPath    string
}

type DiscordConfig struct {
	Token          string
	RequiredGuilds []string
}

type WhatsAppConfig struct {
	// DeviceDSN is the Postgres DSN for the paired-device store.
	DeviceDSN      string
	RequiredGroups []string
	LogLevel       string
}

type BotConfig struct {
	Transport     string
	Discord       DiscordConfig
	WhatsApp      WhatsAppConfig
	Store         StoreConfig
	Tournament    tournament.Config
	MetricsAddr   string
	ActivateEvery time.Duration
	ActivateBurst int
}

type APIConfig struct {
	Addr       string
	APIToken   string
	Store      StoreConfig
	Tournament tournament.Config
}

type WorkerConfig struct {
	Store       StoreConfig
	Tournament  tournament.Config
	RunOnce     bool
	MetricsAddr string
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadBotFromEnv() (BotConfig, error) {
	store, err := loadStore()
	if err != nil {
		return BotConfig{}, err
	}
	t, err := loadTournament()
	if err != nil {
		return BotConfig{}, err
	}
	cfg := BotConfig{
		Transport: strings.ToLower(envDefault("BOT_TRANSPORT", "discord")),
		Discord: DiscordConfig{
			Token:          strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
			RequiredGuilds: envList("DISCORD_REQUIRED_GUILDS"),
		},
		WhatsApp: WhatsAppConfig{
			DeviceDSN:      envDefault("WHATSAPP_DEVICE_DSN", store.DatabaseURL),
			RequiredGroups: envList("WHATSAPP_REQUIRED_GROUPS"),
			LogLevel:       strings.ToUpper(envDefault("WHATSAPP_LOG_LEVEL", "WARN")),
		},
		Store:         store,
		Tournament:    t,
		MetricsAddr:   strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		ActivateEvery: envDurationDefault("BOT_ACTIVATE_EVERY", 2*time.Second),
		ActivateBurst: envIntDefault("BOT_ACTIVATE_BURST", 3),
	}
	switch cfg.Transport {
	case "discord":
		if cfg.Discord.Token == "" {
			return cfg, fmt.Errorf("DISCORD_BOT_TOKEN is required")
		}
	case "whatsapp":
		if cfg.WhatsApp.DeviceDSN == "" {
			return cfg, fmt.Errorf("WHATSAPP_DEVICE_DSN or DATABASE_URL is required")
		}
	default:
		return cfg, fmt.Errorf("unknown BOT_TRANSPORT %q", cfg.Transport)
	}
	return cfg, nil
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("REFTOURNEY_API_ADDR", ":8080")
	}

	store, err := loadStore()
	if err != nil {
		return APIConfig{}, err
	}
	t, err := loadTournament()
	if err != nil {
		return APIConfig{}, err
	}
	cfg := APIConfig{
		Addr:       addr,
		APIToken:   strings.TrimSpace(os.Getenv("REFTOURNEY_API_TOKEN")),
		Store:      store,
		Tournament: t,
	}
	if cfg.APIToken == "" {
		return cfg, fmt.Errorf("REFTOURNEY_API_TOKEN is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	store, err := loadStore()
	if err != nil {
		return WorkerConfig{}, err
	}
	t, err := loadTournament()
	if err != nil {
		return WorkerConfig{}, err
	}
	// the worker is the one process that computes snapshots
	t.FollowSnapshots = false
	return WorkerConfig{
		Store:       store,
		Tournament:  t,
		RunOnce:     envBoolDefault("REFTOURNEY_WORKER_RUN_ONCE", false),
		MetricsAddr: strings.TrimSpace(os.Getenv("METRICS_ADDR")),
	}, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("REFTCTL_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func loadStore() (StoreConfig, error) {
	cfg := StoreConfig{
		Driver:      strings.ToLower(envDefault("STORE_DRIVER", "postgres")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BoltPath:    envDefault("BOLT_PATH", "data/reftourney.db"),
	}
	switch cfg.Driver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required")
		}
	case "bolt", "memory":
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
	}
	return cfg, nil
}

func loadTournament() (tournament.Config, error) {
	cfg := tournament.Config{
		PrizePool:          envDefault("TOURNAMENT_PRIZE_POOL", "₹50,000"),
		SupportContact:     strings.TrimSpace(os.Getenv("TOURNAMENT_SUPPORT")),
		UpdateChannel:      strings.TrimSpace(os.Getenv("TOURNAMENT_UPDATES")),
		JoinURL:            strings.TrimSpace(os.Getenv("TOURNAMENT_JOIN_URL")),
		ReferralLinkFormat: envDefault("REFERRAL_LINK_FORMAT", "{payload}"),
		TokenSecret:        []byte(strings.TrimSpace(os.Getenv("REFERRAL_TOKEN_SECRET"))),
		LeaderboardSize:    envIntDefault("LEADERBOARD_SIZE", tournament.DefaultLeaderboardSize),
		RefreshEvery:       envDurationDefault("LEADERBOARD_REFRESH_EVERY", tournament.DefaultRefreshEvery),
		FollowSnapshots:    envBoolDefault("LEADERBOARD_FOLLOW", false),
	}

	start, err := envTime("TOURNAMENT_START")
	if err != nil {
		return cfg, err
	}
	end, err := envTime("TOURNAMENT_END")
	if err != nil {
		return cfg, err
	}
	if end.IsZero() && !start.IsZero() {
		days := envIntDefault("TOURNAMENT_DAYS", 10)
		end = start.Add(time.Duration(days) * 24 * time.Hour)
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return cfg, fmt.Errorf("TOURNAMENT_END must be after TOURNAMENT_START")
	}
	cfg.Start, cfg.End = start, end
	return cfg, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envTime(key string) (time.Time, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected RFC3339 or YYYY-MM-DD, got %q", key, v)
	}
	return t.UTC(), nil
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
