package observers

import (
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ax5-sect/server/internal/agent/model"
)

// Metrics are the Prometheus collectors for turns, responders and model calls.
// A nil *Metrics records nothing.
type Metrics struct {
	turns             *prometheus.CounterVec
	turnDuration      prometheus.Histogram
	turnIterations    prometheus.Histogram
	turnCost          prometheus.Counter
	responderRuns     *prometheus.CounterVec
	responderDuration *prometheus.HistogramVec
	unmapped          *prometheus.CounterVec
	llmCalls          *prometheus.CounterVec
	llmTokens         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ax5_turns_total",
				Help: "Total number of conversation turns by outcome",
			},
			[]string{"status"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ax5_turn_duration_seconds",
				Help:    "Turn duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		turnIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ax5_turn_iterations",
				Help:    "Responder visits per turn",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 10},
			},
		),
		turnCost: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ax5_llm_cost_usd_total",
				Help: "Accumulated LLM cost in USD",
			},
		),
		responderRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ax5_responder_runs_total",
				Help: "Total number of responder executions by outcome",
			},
			[]string{"responder", "outcome"},
		),
		responderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ax5_responder_duration_seconds",
				Help:    "Responder duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"responder"},
		),
		unmapped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ax5_unmapped_responders_total",
				Help: "Queued responder ids without a node, routed to synthesis",
			},
			[]string{"responder"},
		),
		llmCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ax5_llm_calls_total",
				Help: "Total number of LLM API calls",
			},
			[]string{"model", "status"},
		),
		llmTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ax5_llm_tokens_total",
				Help: "Tokens consumed by LLM calls",
			},
			[]string{"model", "kind"},
		),
	}

	reg.MustRegister(
		m.turns,
		m.turnDuration,
		m.turnIterations,
		m.turnCost,
		m.responderRuns,
		m.responderDuration,
		m.unmapped,
		m.llmCalls,
		m.llmTokens,
	)
	return m
}

// ObserveTurn records a finished or abandoned turn.
func (m *Metrics) ObserveTurn(status string, elapsed time.Duration, iterations int, costUSD float64) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(status).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
	if status == "ok" {
		m.turnIterations.Observe(float64(iterations))
	}
	if costUSD > 0 {
		m.turnCost.Add(costUSD)
	}
}

func (m *Metrics) ObserveResponder(id model.ResponderID, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.responderRuns.WithLabelValues(string(id), outcome).Inc()
	m.responderDuration.WithLabelValues(string(id)).Observe(elapsed.Seconds())
}

func (m *Metrics) UnmappedResponder(id model.ResponderID) {
	if m == nil {
		return
	}
	m.unmapped.WithLabelValues(string(id)).Inc()
}

func (m *Metrics) observeLLM(modelName, status string, usage *schema.TokenUsage) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(modelName, status).Inc()
	if usage != nil {
		m.llmTokens.WithLabelValues(modelName, "prompt").Add(float64(usage.PromptTokens))
		m.llmTokens.WithLabelValues(modelName, "completion").Add(float64(usage.CompletionTokens))
	}
}
