package responders

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ax5-sect/server/internal/agent/model"
	logx "github.com/ax5-sect/server/pkg/logger"
)

// BoundModel pairs a chat model with the name used for pricing.
type BoundModel struct {
	Model einomodel.BaseChatModel
	Name  string
}

// ChatModelGenerator calls one chat model per responder family.
type ChatModelGenerator struct {
	coordinator BoundModel
	specialist  BoundModel
	synthesizer BoundModel
	timeout     time.Duration
}

func NewChatModelGenerator(coordinator, specialist, synthesizer BoundModel, timeout time.Duration) *ChatModelGenerator {
	return &ChatModelGenerator{
		coordinator: coordinator,
		specialist:  specialist,
		synthesizer: synthesizer,
		timeout:     timeout,
	}
}

func (g *ChatModelGenerator) pick(id model.ResponderID) BoundModel {
	switch id {
	case model.Coordinator:
		return g.coordinator
	case model.Synthesizer:
		return g.synthesizer
	default:
		return g.specialist
	}
}

func (g *ChatModelGenerator) Generate(ctx context.Context, req Request) (*Generation, error) {
	bound := g.pick(req.Responder)
	if bound.Model == nil {
		return nil, fmt.Errorf("no chat model bound for %s", req.Responder)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// responders run inside lambda nodes; relabel so model callbacks see the model, not the node
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      bound.Name,
		Type:      string(req.Responder),
		Component: components.ComponentOfChatModel,
	})

	out, err := bound.Model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(req.Instruction),
		schema.UserMessage(req.Context),
	})
	if err != nil {
		return nil, fmt.Errorf("%s generation: %w", req.Responder, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%s generation: empty message", req.Responder)
	}

	gen := &Generation{Text: out.Content, Model: bound.Name}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(bound.Name))
		gen.CostUSD = totalC
		logx.Debug().
			Str("responder", string(req.Responder)).
			Str("model", bound.Name).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Float64("total_cost_usd", totalC).
			Msg("LLM usage")
	}
	return gen, nil
}
