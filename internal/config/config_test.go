package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BOT_TRANSPORT", "DISCORD_BOT_TOKEN", "DISCORD_REQUIRED_GUILDS", "WHATSAPP_DEVICE_DSN",
		"WHATSAPP_REQUIRED_GROUPS", "STORE_DRIVER", "DATABASE_URL", "BOLT_PATH",
		"TOURNAMENT_START", "TOURNAMENT_END", "TOURNAMENT_DAYS", "LEADERBOARD_SIZE",
		"LEADERBOARD_REFRESH_EVERY", "LEADERBOARD_FOLLOW", "REFTOURNEY_API_TOKEN", "PORT",
		"REFTOURNEY_API_ADDR", "REFTOURNEY_WORKER_RUN_ONCE", "REFTCTL_API_BASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadBotFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_BOT_TOKEN", "tok")
	t.Setenv("DISCORD_REQUIRED_GUILDS", " 1, 2 ,,")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TOURNAMENT_START", "2026-03-01")
	t.Setenv("TOURNAMENT_DAYS", "7")
	t.Setenv("LEADERBOARD_SIZE", "20")
	t.Setenv("LEADERBOARD_REFRESH_EVERY", "1m")

	cfg, err := LoadBotFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transport != "discord" {
		t.Fatalf("transport = %q", cfg.Transport)
	}
	if len(cfg.Discord.RequiredGuilds) != 2 || cfg.Discord.RequiredGuilds[1] != "2" {
		t.Fatalf("guilds = %v", cfg.Discord.RequiredGuilds)
	}
	wantStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !cfg.Tournament.Start.Equal(wantStart) || !cfg.Tournament.End.Equal(wantStart.AddDate(0, 0, 7)) {
		t.Fatalf("window = %v - %v", cfg.Tournament.Start, cfg.Tournament.End)
	}
	if cfg.Tournament.LeaderboardSize != 20 || cfg.Tournament.RefreshEvery != time.Minute {
		t.Fatalf("leaderboard = %d every %v", cfg.Tournament.LeaderboardSize, cfg.Tournament.RefreshEvery)
	}
	if cfg.ActivateEvery != 2*time.Second || cfg.ActivateBurst != 3 {
		t.Fatalf("rate limit defaults = %v/%d", cfg.ActivateEvery, cfg.ActivateBurst)
	}
}

func TestLoadBotRequiresTransportSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	if _, err := LoadBotFromEnv(); err == nil {
		t.Fatalf("expected missing discord token to fail")
	}

	t.Setenv("BOT_TRANSPORT", "whatsapp")
	if _, err := LoadBotFromEnv(); err == nil {
		t.Fatalf("expected missing device dsn to fail")
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/reftourney")
	cfg, err := LoadBotFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WhatsApp.DeviceDSN != "postgres://localhost/reftourney" {
		t.Fatalf("device dsn = %q", cfg.WhatsApp.DeviceDSN)
	}

	t.Setenv("BOT_TRANSPORT", "telegram")
	if _, err := LoadBotFromEnv(); err == nil {
		t.Fatalf("expected unknown transport to fail")
	}
}

func TestLoadStoreValidation(t *testing.T) {
	clearEnv(t)
	if _, err := loadStore(); err == nil {
		t.Fatalf("postgres without DATABASE_URL must fail")
	}
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := loadStore(); err == nil {
		t.Fatalf("unknown driver must fail")
	}
	t.Setenv("STORE_DRIVER", "BOLT")
	cfg, err := loadStore()
	if err != nil || cfg.Driver != "bolt" || cfg.BoltPath != "data/reftourney.db" {
		t.Fatalf("got %+v err=%v", cfg, err)
	}
}

func TestLoadTournamentWindow(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOURNAMENT_START", "2026-03-10T12:00:00+02:00")
	t.Setenv("TOURNAMENT_END", "2026-03-01")
	if _, err := loadTournament(); err == nil {
		t.Fatalf("end before start must fail")
	}

	t.Setenv("TOURNAMENT_END", "")
	cfg, err := loadTournament()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC); !cfg.End.Equal(want) {
		t.Fatalf("end = %v want %v", cfg.End, want)
	}

	t.Setenv("TOURNAMENT_START", "next tuesday")
	if _, err := loadTournament(); err == nil {
		t.Fatalf("bad time must fail")
	}
}

func TestLoadAPIFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected missing api token to fail")
	}
	t.Setenv("REFTOURNEY_API_TOKEN", "tok")
	t.Setenv("PORT", "9000")
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
}

func TestLoadWorkerNeverFollows(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LEADERBOARD_FOLLOW", "true")
	t.Setenv("REFTOURNEY_WORKER_RUN_ONCE", "1")
	cfg, err := LoadWorkerFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tournament.FollowSnapshots || !cfg.RunOnce {
		t.Fatalf("got follow=%v runOnce=%v", cfg.Tournament.FollowSnapshots, cfg.RunOnce)
	}
}

func TestLoadCLIFromEnv(t *testing.T) {
	clearEnv(t)
	if got := LoadCLIFromEnv().APIBaseURL; got != "http://localhost:8080" {
		t.Fatalf("default base url = %q", got)
	}
	t.Setenv("REFTCTL_API_BASE_URL", "https://api.example.test/")
	if got := LoadCLIFromEnv().APIBaseURL; got != "https://api.example.test" {
		t.Fatalf("base url = %q", got)
	}
}
