package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func loadTestConfig(t *testing.T, yaml string) *Config {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if yaml != "" {
		path := filepath.Join(t.TempDir(), "devmeet.yaml")
		if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			t.Fatalf("read config: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	return &cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := loadTestConfig(t, "")

	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Server.Address)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Fatalf("unexpected driver %q", cfg.Database.Driver)
	}
	if cfg.RateLimit.Limit != 120 || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected token ttl %v", cfg.Auth.TokenTTL)
	}
	if cfg.AI == nil || cfg.AI.Enabled {
		t.Fatalf("ai should be present and disabled by default: %+v", cfg.AI)
	}
	if cfg.Interview.MaxAnswerLength != 4000 {
		t.Fatalf("unexpected max answer length %d", cfg.Interview.MaxAnswerLength)
	}
}

func TestConfigFileAndEnv(t *testing.T) {
	t.Setenv("DEVMEET_AI_GEMINI_API_KEY", "from-env")
	t.Setenv("DEVMEET_RATELIMIT_WINDOW", "30s")

	cfg := loadTestConfig(t, `
server:
  address: ":9090"
database:
  driver: pgx
  dsn: postgres://localhost/devmeet
ai:
  enabled: true
  minimum-fit-score: 0.75
  gemini:
    model: gemini-2.5-flash
    screening:
      tone: Formal
      deal-breakers: no on-site work
redis:
  addr: localhost:6379
interview:
  instructions: Ask about on-call experience.
`)

	if cfg.Server.Address != ":9090" {
		t.Fatalf("unexpected address %q", cfg.Server.Address)
	}
	if cfg.Database.Driver != "pgx" || cfg.Database.DSN != "postgres://localhost/devmeet" {
		t.Fatalf("unexpected database %+v", cfg.Database)
	}
	if !cfg.AI.Enabled || cfg.AI.MinimumFitScore != 0.75 {
		t.Fatalf("unexpected ai config %+v", cfg.AI)
	}
	if cfg.AI.Gemini.APIKey != "from-env" {
		t.Fatalf("api key should come from the environment, got %q", cfg.AI.Gemini.APIKey)
	}
	if cfg.AI.Gemini.Model != "gemini-2.5-flash" || cfg.AI.Gemini.MaxRetries != 3 {
		t.Fatalf("unexpected gemini config %+v", cfg.AI.Gemini)
	}
	if g := cfg.AI.Gemini.Screening; g.Tone != "Formal" || g.DealBreakers != "no on-site work" || g.Notes != "" {
		t.Fatalf("unexpected screening guidance %+v", g)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Fatalf("unexpected window %v", cfg.RateLimit.Window)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", cfg.Redis.Addr)
	}
	opts := engineOptions(cfg, nil)
	if opts.Instructions != "Ask about on-call experience." || opts.MaxAnswerRunes != 4000 {
		t.Fatalf("unexpected engine options %+v", opts)
	}
}

func TestNewTokenManagerNeedsSecret(t *testing.T) {
	cfg := loadTestConfig(t, "")
	if _, err := newTokenManager(cfg); err == nil {
		t.Fatal("expected an error without a jwt secret")
	}

	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	if _, err := newTokenManager(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewGeneratorFallsBackToGeminiEnv(t *testing.T) {
	cfg := &AIConfig{Enabled: true, Gemini: &GeminiConfig{}}

	t.Setenv("GEMINI_API_KEY", "")
	_, err := newGenerator(context.Background(), cfg, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected an error naming GEMINI_API_KEY, got %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "key-from-env")
	if _, err := newGenerator(context.Background(), cfg, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVersionString(t *testing.T) {
	short := versionString(true)
	if short == "" {
		t.Fatal("expected a version")
	}
	if got := versionString(false); !strings.HasPrefix(got, app+" "+short+" (") {
		t.Fatalf("unexpected version line %q", got)
	}
}
