package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ax5-sect/server/internal/agent/model"
)

func clearInfraEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_URL", "")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GENERATION_MODE", "")
}

func cannedApp(t *testing.T) *app {
	t.Helper()
	clearInfraEnv(t)
	cfg, err := loadConfig("")
	require.NoError(t, err)
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestLoadConfigDefaults(t *testing.T) {
	clearInfraEnv(t)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, "24h", cfg.Conversation.TTL)
	assert.Equal(t, 10, cfg.Orchestration.MaxIterations)
	assert.Equal(t, "AX5-SECT", cfg.Prompt.HubName)
	assert.Equal(t, "gemini-2.5-flash", cfg.CoordinatorModel.Model)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Postgres.Enabled())
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	clearInfraEnv(t)
	t.Setenv("ORCHESTRATION_MAX_ITERATIONS", "")
	os.Unsetenv("ORCHESTRATION_MAX_ITERATIONS")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ORCHESTRATION_MAX_ITERATIONS=3\nHTTP_ALLOWED_ORIGINS=https://a.example,https://b.example\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("HTTP_ALLOWED_ORIGINS") })

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Orchestration.MaxIterations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestNewAppRejectsBadSettings(t *testing.T) {
	clearInfraEnv(t)
	cfg, err := loadConfig("")
	require.NoError(t, err)

	bad := cfg
	bad.Generation.Mode = "oracle"
	_, err = newApp(context.Background(), bad)
	require.Error(t, err)

	bad = cfg
	bad.Generation.Timeout = "soon"
	_, err = newApp(context.Background(), bad)
	require.Error(t, err)
}

func TestNewAppGenerativeWithoutKeyFallsBackToCanned(t *testing.T) {
	clearInfraEnv(t)
	cfg, err := loadConfig("")
	require.NoError(t, err)
	cfg.Generation.Mode = model.GenerationGenerative

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	out, err := a.runner.Run(context.Background(), model.RunInput{Message: "Rédige un email de relance"})
	require.NoError(t, err)
	assert.Equal(t, []string{"content_generator"}, out.InvokedResponders)
}

func TestRunDemo(t *testing.T) {
	a := cannedApp(t)
	var out bytes.Buffer

	require.NoError(t, runDemo(context.Background(), a.runner, &out))

	text := out.String()
	assert.Contains(t, text, "Requête 1: "+demoQueries[0])
	assert.Contains(t, text, "Agents appelés: knowledge_miner\n")
	assert.Contains(t, text, "Agents appelés: knowledge_miner, campaign_manager, content_generator")
	assert.Contains(t, text, "Itérations: 3")
	assert.Contains(t, text, "Démonstration terminée")
}

func TestRunChat(t *testing.T) {
	a := cannedApp(t)
	in := strings.NewReader("\ndebug on\nRédige un script de relance\nquit\nignored\n")
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), a.runner, in, &out, "chat-1", false))

	text := out.String()
	assert.Contains(t, text, "Mode debug activé")
	assert.Contains(t, text, "AX5-SECT (content_generator):")
	assert.Contains(t, text, "  - content_generator: content_generation (✓)")
	assert.Contains(t, text, "Au revoir!")
	assert.NotContains(t, text, "ignored")
}

func TestRunChatStopsAtEOF(t *testing.T) {
	a := cannedApp(t)
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), a.runner, strings.NewReader("   \n"), &out, "chat-2", false))
	assert.NotContains(t, out.String(), "AX5-SECT (")
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	assert.NoError(t, serve(ctx, srv, time.Second))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "ax5-sect version dev\n", out.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "é...", truncate("éé", 1))
}
