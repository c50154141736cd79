package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ax5-sect/server/internal/agent/graph"
	"github.com/ax5-sect/server/internal/agent/graph/conversations"
	"github.com/ax5-sect/server/internal/agent/graph/nodes"
	"github.com/ax5-sect/server/internal/agent/graph/observers"
	"github.com/ax5-sect/server/internal/agent/graph/responders"
	"github.com/ax5-sect/server/internal/agent/model"
	"github.com/ax5-sect/server/internal/agent/repo"
	"github.com/ax5-sect/server/internal/agent/session"
	"github.com/ax5-sect/server/internal/core"
	logx "github.com/ax5-sect/server/pkg/logger"
	pkgpostgres "github.com/ax5-sect/server/pkg/postgres"
	pkgredis "github.com/ax5-sect/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the server,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure; both are optional
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider; required only in generative mode
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Generation       model.GenerationConfig
	CoordinatorModel model.CoordinatorModelConfig
	ResponderModel   model.ResponderModelConfig
	SynthesisModel   model.SynthesisModelConfig
	Prompt           model.PromptConfig
	Orchestration    model.OrchestrationConfig
	Conversation     model.ConversationConfig

	HTTP HTTPConfig
}

type HTTPConfig struct {
	Addr            string   `envconfig:"HTTP_ADDR" default:":8000"`
	AllowedOrigins  []string `envconfig:"HTTP_ALLOWED_ORIGINS"`
	ShutdownTimeout string   `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// loadConfig reads envFile when it exists, then the process environment.
func loadConfig(envFile string) (AppConfig, error) {
	var cfg AppConfig
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process environment config: %w", err)
	}
	return cfg, nil
}

// app is a fully wired runner plus the resources it holds.
type app struct {
	cfg      AppConfig
	runner   *graph.Runner
	registry *prometheus.Registry
	closers  []func() error
}

// bootstrap loads configuration, initialises logging and wires the app.
func bootstrap(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}
	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})
	return newApp(cmd.Context(), cfg)
}

func newApp(ctx context.Context, cfg AppConfig) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	ttl, lockTTL, err := cfg.Conversation.Durations()
	if err != nil {
		return fmt.Errorf("invalid conversation durations: %w", err)
	}
	timeout, err := time.ParseDuration(cfg.Generation.Timeout)
	if err != nil {
		return fmt.Errorf("invalid GENERATION_TIMEOUT %q: %w", cfg.Generation.Timeout, err)
	}

	var (
		conversationRepo model.ConversationRepository = repo.NewMemoryConversationRepository()
		sessions                                      = session.NewManager()
	)
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		conversationRepo = repo.NewRedisConversationRepository(rdb, ttl)
		sessions = session.NewManager(session.WithLocker(repo.NewRedisLocker(rdb, "conversation:"), lockTTL))
		logx.Info().Msg("Conversations stored in Redis")
	} else {
		logx.Warn().Msg("REDIS_URL is empty; conversations are kept in memory")
	}

	var business model.BusinessReader = repo.NoopBusinessReader{}
	if cfg.Postgres.Enabled() {
		db, err := cfg.Postgres.New(ctx)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		business = repo.NewPostgresBusinessRepository(db)
		logx.Info().Msg("Business data read from Postgres")
	}

	generator, err := newGenerator(ctx, cfg, timeout)
	if err != nil {
		return err
	}
	table, err := responders.NewTable(responders.Deps{
		Generator:    generator,
		Prompt:       cfg.Prompt,
		HistoryTurns: cfg.Conversation.HistoryTurns,
	})
	if err != nil {
		return err
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.runner, err = graph.NewRunner(ctx, graph.Config{
		Responders:    table,
		Messages:      conversations.NewMessagesManager(conversationRepo, business, cfg.Orchestration.RAGLimit),
		Sessions:      sessions,
		Metrics:       observers.NewMetrics(a.registry),
		MaxIterations: cfg.Orchestration.MaxIterations,
	})
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}
	return nil
}

// newGenerator picks Gemini in generative mode and the canned payloads otherwise.
func newGenerator(ctx context.Context, cfg AppConfig, timeout time.Duration) (responders.Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Generation.Mode))
	switch mode {
	case model.GenerationGenerative:
		if cfg.APIKey == "" {
			logx.Warn().Msg("GEMINI_API_KEY is empty; falling back to canned generation")
			return responders.NewCannedGenerator()
		}
		models, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Coordinator: &cfg.CoordinatorModel,
			Responder:   &cfg.ResponderModel,
			Synthesis:   &cfg.SynthesisModel,
		})
		if err != nil {
			return nil, err
		}
		return models.Generator(timeout), nil
	case model.GenerationCanned, "":
		return responders.NewCannedGenerator()
	default:
		return nil, fmt.Errorf("unknown GENERATION_MODE %q", cfg.Generation.Mode)
	}
}

// Close releases the connections opened by newApp.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}
