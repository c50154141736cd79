package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ax5-sect/server/internal/agent/graph"
	"github.com/ax5-sect/server/internal/agent/graph/conversations"
	"github.com/ax5-sect/server/internal/agent/graph/observers"
	"github.com/ax5-sect/server/internal/agent/graph/responders"
	"github.com/ax5-sect/server/internal/agent/model"
	"github.com/ax5-sect/server/internal/agent/repo"
	errx "github.com/ax5-sect/server/internal/core/error"
)

type runnerFunc func(ctx context.Context, in model.RunInput) (*model.RunOutput, error)

func (f runnerFunc) Run(ctx context.Context, in model.RunInput) (*model.RunOutput, error) {
	return f(ctx, in)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func cannedHandler(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	gen, err := responders.NewCannedGenerator()
	require.NoError(t, err)
	table, err := responders.NewTable(responders.Deps{
		Generator: gen,
		Prompt:    model.PromptConfig{HubName: "AX5-SECT", Language: "français"},
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	runner, err := graph.NewRunner(context.Background(), graph.Config{
		Responders: table,
		Messages:   conversations.NewMessagesManager(repo.NewMemoryConversationRepository(), repo.NoopBusinessReader{}, 5),
		Metrics:    observers.NewMetrics(reg),
	})
	require.NoError(t, err)
	return NewHandler(Options{Runner: runner, Gatherer: reg, Version: "test"}), reg
}

func TestChatRunsTurn(t *testing.T) {
	h, _ := cannedHandler(t)

	rec := do(t, h, http.MethodPost, "/chat", `{"message": "Quelles sont les exigences PCF dans IMDS 15.0?", "thread_id": "t-1", "debug": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out model.RunOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "t-1", out.ConversationID)
	assert.Equal(t, []string{"knowledge_miner"}, out.InvokedResponders)
	assert.Equal(t, 1, out.IterationCount)
	require.Len(t, out.TaskResults, 1)
	assert.Equal(t, "knowledge_research", out.TaskResults[0].Kind)
	assert.Contains(t, out.Response, "IMDS 15.0")
}

func TestChatRejectsBadInput(t *testing.T) {
	h, _ := cannedHandler(t)

	rec := do(t, h, http.MethodPost, "/chat", `{"message": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "invalid request"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/chat", `{"message": "  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHidesCollaboratorErrors(t *testing.T) {
	h := NewHandler(Options{Runner: runnerFunc(func(context.Context, model.RunInput) (*model.RunOutput, error) {
		return nil, errx.New(errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, errx.TurnFailedMessage)
	})})

	rec := do(t, h, http.MethodPost, "/chat", `{"message": "bonjour"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), errx.TurnFailedMessage)
}

func TestChatPlainErrorIsInternal(t *testing.T) {
	h := NewHandler(Options{Runner: runnerFunc(func(context.Context, model.RunInput) (*model.RunOutput, error) {
		return nil, errors.New("boom")
	})})

	rec := do(t, h, http.MethodPost, "/chat", `{"message": "bonjour"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "internal server error"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	h := NewHandler(Options{Version: "1.2.3"})
	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestAgentsCatalog(t *testing.T) {
	h := NewHandler(Options{})
	rec := do(t, h, http.MethodGet, "/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Agents []model.ResponderInfo `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Agents, 6)
	assert.Equal(t, model.Coordinator, body.Agents[0].ID)
}

func TestAgentsGraph(t *testing.T) {
	h := NewHandler(Options{})
	rec := do(t, h, http.MethodGet, "/agents/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body graph.Description
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, graph.Describe().Nodes, body.Nodes)
	assert.Contains(t, body.Branches, "queue_prep")
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := cannedHandler(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/chat", `{"message": "Rédige un email de relance"}`).Code)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ax5_turns_total{status="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `ax5_responder_runs_total{outcome="success",responder="content_generator"} 1`)

	assert.Equal(t, http.StatusNotFound, do(t, NewHandler(Options{}), http.MethodGet, "/metrics", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(Options{AllowedOrigins: []string{"https://hub.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://hub.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://hub.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
