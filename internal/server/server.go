package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/ax5-sect/server/internal/agent/graph"
	"github.com/ax5-sect/server/internal/agent/model"
	errx "github.com/ax5-sect/server/internal/core/error"
	logx "github.com/ax5-sect/server/pkg/logger"
)

// maxBodyBytes bounds a /chat request body.
const maxBodyBytes = 1 << 20

// TurnRunner executes one conversation turn.
type TurnRunner interface {
	Run(ctx context.Context, in model.RunInput) (*model.RunOutput, error)
}

// Options configures the HTTP surface.
type Options struct {
	Runner TurnRunner
	// Gatherer backs /metrics; the route is omitted when nil.
	Gatherer prometheus.Gatherer
	// AllowedOrigins defaults to every origin.
	AllowedOrigins []string
	Version        string
}

type handler struct {
	runner  TurnRunner
	version string
	started time.Time
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler returns the router serving the chat API.
func NewHandler(opts Options) http.Handler {
	h := &handler{runner: opts.Runner, version: opts.Version, started: time.Now()}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Get("/health", h.health)
	r.Post("/chat", h.chat)
	r.Get("/agents", h.agents)
	r.Get("/agents/graph", h.graph)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var in model.RunInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		writeError(w, errx.BadRequest(err))
		return
	}

	out, err := h.runner.Run(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) agents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": model.Catalog()})
}

func (h *handler) graph(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, graph.Describe())
}

func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err)
	var appErr *errx.AppError
	if !errors.As(err, &appErr) || status >= http.StatusInternalServerError {
		logx.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: errx.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("Encode response failed")
	}
}
