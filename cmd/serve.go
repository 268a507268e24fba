package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ai/gemini"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/api"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/auth"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/events"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/github"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/interview"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/metrics"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/ratelimit"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/secrets"
	"github.com/ZFlareUI/DevMeet-AI-sub001/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DevMeet HTTP API",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// aiComponents are the model-backed parts. Matcher and Analyst stay nil when
// AI is disabled.
type aiComponents struct {
	Interviewer ai.Interviewer
	Matcher     ai.Matcher
	Analyst     ai.Analyst
}

func serve(ctx context.Context) {
	logger, config := setup()
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting devmeet", zap.String("version", version))

	st, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err))
	}
	defer st.Close()

	tokens, err := newTokenManager(config)
	if err != nil {
		logger.Fatal("configuring tokens", zap.Error(err),
			zap.String("hint", "set auth.jwt-secret-file or DEVMEET_AUTH_JWT_SECRET to at least 32 characters"))
	}

	limiter, err := newLimiter(ctx, config, logger)
	if err != nil {
		logger.Fatal("configuring the rate limiter", zap.Error(err))
	}

	m := metrics.New()

	models, err := newAIComponents(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("configuring ai", zap.Error(err))
	}

	ghToken, err := secrets.Optional(secrets.Source{
		Name:  "github token",
		Value: config.GitHub.Token,
		File:  config.GitHub.TokenFile,
		Env:   "GITHUB_TOKEN",
	})
	if err != nil {
		logger.Fatal("loading github token", zap.Error(err))
	}
	if ghToken == "" {
		logger.Warn("github token is not set, requests are subject to the anonymous rate limit")
	}
	analyzer := github.NewAnalyzer(github.New(logger, ghToken, config.GitHub.APIURL), models.Analyst, logger, m)

	templates, err := interview.NewRegistry(config.Interview.TemplatesDir)
	if err != nil {
		logger.Fatal("loading interview templates", zap.Error(err))
	}
	logger.Info("interview templates loaded", zap.Strings("templates", templates.Names()))

	engine := interview.NewEngine(models.Interviewer, logger, engineOptions(config, m))

	hub := events.NewHub(logger)
	defer hub.Close()

	minFit := 0.0
	if config.AI != nil {
		minFit = config.AI.MinimumFitScore
	}

	handler := api.New(api.Deps{
		Store:           st,
		Engine:          engine,
		Templates:       templates,
		Tokens:          tokens,
		Matcher:         models.Matcher,
		Analyzer:        analyzer,
		Limiter:         limiter,
		Events:          hub,
		Metrics:         m,
		Logger:          logger,
		MinimumFitScore: minFit,
	}).Handler()

	server := &http.Server{
		Addr:              config.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       config.Server.ReadTimeout,
		WriteTimeout:      config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("address", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down", zap.Duration("timeout", config.Server.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

func openStore(ctx context.Context, config *Config, logger *zap.Logger) (*store.Store, error) {
	st, err := store.Open(ctx, config.Database.Driver, config.Database.DSN, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func newTokenManager(config *Config) (*auth.TokenManager, error) {
	secret, err := secrets.Load(secrets.Source{
		Name:  "jwt secret",
		Value: config.Auth.JWTSecret,
		File:  config.Auth.JWTSecretFile,
	})
	if err != nil {
		return nil, err
	}
	return auth.NewTokenManager(secret, config.Auth.TokenTTL)
}

// newLimiter uses Redis when an address is configured so every replica
// shares the window, and an in-process limiter otherwise.
func newLimiter(ctx context.Context, config *Config, logger *zap.Logger) (ratelimit.RateLimiter, error) {
	if strings.TrimSpace(config.Redis.Addr) == "" {
		logger.Info("using in-memory rate limiter",
			zap.Int("limit", config.RateLimit.Limit),
			zap.Duration("window", config.RateLimit.Window))
		return ratelimit.NewMemory(config.RateLimit.Limit, config.RateLimit.Window)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// requests are allowed while redis is down, see ratelimit.Middleware
		logger.Warn("redis is unreachable", zap.String("addr", config.Redis.Addr), zap.Error(err))
	}

	logger.Info("using redis rate limiter",
		zap.String("addr", config.Redis.Addr),
		zap.Int("limit", config.RateLimit.Limit),
		zap.Duration("window", config.RateLimit.Window))

	return ratelimit.NewRedis(ratelimit.RedisConfig{
		Client: client,
		Limit:  config.RateLimit.Limit,
		Window: config.RateLimit.Window,
	})
}

func newAIComponents(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*aiComponents, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Warn("ai is disabled, interviews cannot be conducted",
			zap.String("hint", "set ai.enabled and ai.gemini.api-key-file"))
		return &aiComponents{Interviewer: ai.Disabled{}}, nil
	}

	generator, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	minScore := max(cfg.MinimumFitScore, 0)

	matcherLogger := logger.With(zap.Float64("minimum_fit_score", minScore))

	return &aiComponents{
		Interviewer: gemini.NewInterviewer(generator, cfg.Gemini.MaxLogLength, logger),
		Matcher: gemini.NewMatcher(generator, gemini.MatcherConfig{
			MinScore:     minScore,
			MaxLogLength: cfg.Gemini.MaxLogLength,
			Guidance:     cfg.Gemini.Screening,
		}, matcherLogger),
		Analyst: gemini.NewAnalyst(generator, logger),
	}, nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*gemini.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or DEVMEET_AI_GEMINI_API_KEY)", err)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
}

func engineOptions(config *Config, m *metrics.Metrics) interview.Options {
	return interview.Options{
		MaxAnswerRunes: config.Interview.MaxAnswerLength,
		Instructions:   config.Interview.Instructions,
		Metrics:        m,
	}
}
