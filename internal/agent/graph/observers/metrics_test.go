package observers

import (
	"context"
	"errors"
	"testing"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentmodel "github.com/ax5-sect/server/internal/agent/model"
)

// counterValue sums the counter samples of family name whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if matches(m, want) {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func matches(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMetricsRecordResponderOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveResponder(agentmodel.KnowledgeMiner, true, 10*time.Millisecond)
	m.ObserveResponder(agentmodel.KnowledgeMiner, false, 10*time.Millisecond)
	m.ObserveResponder(agentmodel.DataModeler, true, time.Millisecond)
	m.UnmappedResponder("legal_advisor")
	m.ObserveTurn("ok", time.Second, 2, 0.25)
	m.ObserveTurn("error", time.Second, 0, 0)

	assert.Equal(t, 1.0, counterValue(t, reg, "ax5_responder_runs_total", map[string]string{"responder": "knowledge_miner", "outcome": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "ax5_responder_runs_total", map[string]string{"responder": "knowledge_miner", "outcome": "failure"}))
	assert.Equal(t, 3.0, counterValue(t, reg, "ax5_responder_runs_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "ax5_unmapped_responders_total", map[string]string{"responder": "legal_advisor"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "ax5_turns_total", map[string]string{"status": "error"}))
	assert.InDelta(t, 0.25, counterValue(t, reg, "ax5_llm_cost_usd_total", nil), 1e-9)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveResponder(agentmodel.KnowledgeMiner, true, time.Millisecond)
		m.UnmappedResponder("x")
		m.ObserveTurn("ok", time.Second, 1, 1)
		m.observeLLM("gemini", "success", nil)
	})
}

func TestModelHandlerCountsCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := newModelHandler(m)
	info := &einocb.RunInfo{Name: "gemini-2.5-flash", Type: "knowledge_miner"}

	ctx := h.OnStart(context.Background(), info, &model.CallbackInput{Messages: []*schema.Message{schema.UserMessage("q")}})
	h.OnEnd(ctx, info, &model.CallbackOutput{
		Message:    schema.AssistantMessage("{}", nil),
		TokenUsage: &model.TokenUsage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150},
	})
	h.OnError(ctx, info, errors.New("deadline exceeded"))

	assert.Equal(t, 1.0, counterValue(t, reg, "ax5_llm_calls_total", map[string]string{"model": "gemini-2.5-flash", "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "ax5_llm_calls_total", map[string]string{"status": "error"}))
	assert.Equal(t, 120.0, counterValue(t, reg, "ax5_llm_tokens_total", map[string]string{"kind": "prompt"}))
	assert.Equal(t, 30.0, counterValue(t, reg, "ax5_llm_tokens_total", map[string]string{"kind": "completion"}))
}

func TestNewAllCallbacks(t *testing.T) {
	handlers := NewAllCallbacks(nil)
	assert.Len(t, handlers, 2)
	assert.Equal(t, "", lastUserContent(nil))
	assert.Equal(t, "b", lastUserContent([]*schema.Message{schema.UserMessage("a"), schema.UserMessage(" b "), schema.AssistantMessage("c", nil)}))
}
