package responders

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/ax5-sect/server/internal/agent/graph/parsers"
	"github.com/ax5-sect/server/internal/agent/graph/prompts"
	"github.com/ax5-sect/server/internal/agent/model"
	logx "github.com/ax5-sect/server/pkg/logger"
)

type coordinator struct {
	deps Deps
}

func (c *coordinator) ID() model.ResponderID { return model.Coordinator }

// rawDecision mirrors the JSON the coordinator is instructed to emit.
type rawDecision struct {
	Analysis       string   `mapstructure:"analysis"`
	AgentsToCall   []string `mapstructure:"agents_to_call"`
	Reasoning      string   `mapstructure:"reasoning"`
	DirectResponse string   `mapstructure:"direct_response"`
}

func (c *coordinator) Respond(ctx context.Context, s *model.ConversationState) (*model.Patch, error) {
	instruction, err := prompts.RenderInstruction(ctx, model.Coordinator, c.deps.Prompt)
	if err != nil {
		return nil, err
	}

	patch := &model.Patch{CurrentResponder: model.Coordinator, ReplaceQueue: true}
	log := logx.Conversation(s.ConversationID)

	gen, genErr := c.deps.Generator.Generate(ctx, Request{
		Responder:   model.Coordinator,
		Instruction: instruction,
		Context:     coordinatorContext(s, c.deps.HistoryTurns),
		UserInput:   s.UserInput,
	})

	var decision model.RoutingDecision
	if genErr != nil {
		log.Warn().Err(genErr).Msg("Coordinator generation failed; falling through to synthesis")
		patch.Errors = append(patch.Errors, string(model.Coordinator)+": analyse indisponible")
	} else {
		patch.CostUSD = gen.CostUSD
		payload := parsers.ParseResponse(gen.Text)
		if payload.ParseError() {
			log.Warn().Msg("Coordinator output is not JSON; no responder will be queued")
		} else {
			decision = DecodeDecision(payload)
		}
	}

	patch.RoutingDecision = &decision
	patch.PendingQueue = decision.Queue()
	if decision.DirectAnswer != "" {
		answer := decision.DirectAnswer
		patch.FinalResponse = &answer
	}

	patch.Messages = append(patch.Messages, model.AgentMessage(model.Coordinator,
		fmt.Sprintf("Analyse de la demande terminée. Agents à appeler : [%s]", strings.Join(idStrings(patch.PendingQueue), ", "))))

	log.Debug().
		Strs("queue", idStrings(patch.PendingQueue)).
		Bool("direct_answer", decision.DirectAnswer != "").
		Msg("Routing decision")
	return patch, nil
}

// DecodeDecision converts a parsed coordinator payload into a RoutingDecision.
// Unknown or non-specialist ids are dropped and repeated ids keep their first
// position. A payload that does not fit the expected shape yields an empty decision.
func DecodeDecision(payload model.Payload) model.RoutingDecision {
	var raw rawDecision
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return model.RoutingDecision{}
	}
	if err := dec.Decode(map[string]any(payload)); err != nil {
		logx.Warn().Err(err).Msg("Coordinator decision has an unexpected shape")
		return model.RoutingDecision{}
	}

	ids := make([]model.ResponderID, 0, len(raw.AgentsToCall))
	for _, name := range raw.AgentsToCall {
		id, err := model.ParseResponderID(name)
		if err != nil || !id.IsSpecialist() {
			logx.Warn().Str("responder", name).Msg("Coordinator proposed an unknown responder; dropping it")
			continue
		}
		ids = append(ids, id)
	}

	return model.RoutingDecision{
		Analysis:     strings.TrimSpace(raw.Analysis),
		Responders:   model.UniqueResponders(ids),
		Reasoning:    strings.TrimSpace(raw.Reasoning),
		DirectAnswer: strings.TrimSpace(raw.DirectResponse),
	}
}

func idStrings(ids []model.ResponderID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
