package responders

import (
	"context"
	"strings"

	"github.com/ax5-sect/server/internal/agent/graph/prompts"
	"github.com/ax5-sect/server/internal/agent/model"
	logx "github.com/ax5-sect/server/pkg/logger"
)

type synthesizer struct {
	deps Deps
}

func (r *synthesizer) ID() model.ResponderID { return model.Synthesizer }

// Respond always sets the final response. With no task result it answers the
// fixed fallback without calling the generator.
func (r *synthesizer) Respond(ctx context.Context, s *model.ConversationState) (*model.Patch, error) {
	patch := &model.Patch{CurrentResponder: model.Synthesizer}
	log := logx.Conversation(s.ConversationID)

	final := FallbackMessage
	if len(s.TaskResults) > 0 {
		successes := s.SuccessfulResults()
		unavailable := UnavailableResponders(s)

		if len(successes) == 0 {
			final = ComposeSummary(s.UserInput, successes, unavailable)
		} else {
			text, cost, ok := r.generate(ctx, s, successes, unavailable)
			patch.CostUSD = cost
			if ok {
				final = text
			} else {
				final = ComposeSummary(s.UserInput, successes, unavailable)
				patch.Errors = append(patch.Errors, string(model.Synthesizer)+": synthèse simplifiée")
			}
		}
	} else {
		log.Debug().Msg("No task result to synthesize; answering fallback")
	}

	patch.FinalResponse = &final
	patch.Messages = append(patch.Messages, model.AgentMessage(model.Synthesizer, "Synthèse terminée."))
	return patch, nil
}

func (r *synthesizer) generate(ctx context.Context, s *model.ConversationState, successes []model.TaskResult, unavailable []model.ResponderID) (string, float64, bool) {
	log := logx.Conversation(s.ConversationID)

	instruction, err := prompts.RenderInstruction(ctx, model.Synthesizer, r.deps.Prompt)
	if err != nil {
		log.Error().Err(err).Msg("Render synthesizer instruction")
		return "", 0, false
	}

	gen, err := r.deps.Generator.Generate(ctx, Request{
		Responder:   model.Synthesizer,
		Instruction: instruction,
		Context:     synthesisContext(s, successes, unavailable),
		UserInput:   s.UserInput,
		Results:     successes,
		Unavailable: unavailable,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Synthesis generation failed; composing from templates")
		return "", 0, false
	}
	if strings.TrimSpace(gen.Text) == "" {
		log.Warn().Msg("Synthesis generation returned nothing; composing from templates")
		return "", gen.CostUSD, false
	}
	return gen.Text, gen.CostUSD, true
}
