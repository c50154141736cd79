package responders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ax5-sect/server/internal/agent/graph/parsers"
	"github.com/ax5-sect/server/internal/agent/graph/prompts"
	"github.com/ax5-sect/server/internal/agent/model"
	logx "github.com/ax5-sect/server/pkg/logger"
)

// Responder is one unit of work in a turn. It reads a state snapshot and
// returns a sparse patch; it never mutates the state it is given.
type Responder interface {
	ID() model.ResponderID
	Respond(ctx context.Context, s *model.ConversationState) (*model.Patch, error)
}

// Deps are shared by every responder.
type Deps struct {
	Generator    Generator
	Prompt       model.PromptConfig
	HistoryTurns int
	// Now stamps task results; defaults to time.Now.
	Now func() time.Time
}

// Table maps every responder id to its implementation. It is built once and
// never extended at run time.
type Table map[model.ResponderID]Responder

// NewTable builds the fixed responder table.
func NewTable(deps Deps) (Table, error) {
	if deps.Generator == nil {
		return nil, errors.New("responders: generator is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	all := []Responder{
		&coordinator{deps: deps},
		&specialist{
			id:      model.KnowledgeMiner,
			kind:    model.TaskKnowledgeResearch,
			deps:    deps,
			context: knowledgeContext,
			status: func(s *model.ConversationState, p model.Payload) string {
				topic := p.String("topic")
				if topic == "" {
					topic = truncateRunes(s.UserInput, 50)
				}
				return "Recherche terminée sur le sujet : " + topic
			},
		},
		&specialist{
			id:      model.DataModeler,
			kind:    model.TaskDataModeling,
			deps:    deps,
			context: dataModelContext,
			status: func(_ *model.ConversationState, p model.Payload) string {
				return "Modélisation terminée. Scope : " + orDefault(p.String("scope"), "Non défini")
			},
		},
		&specialist{
			id:      model.CampaignManager,
			kind:    model.TaskCampaignDesign,
			deps:    deps,
			context: campaignContext,
			status: func(_ *model.ConversationState, p model.Payload) string {
				return "Conception de campagne terminée : " + orDefault(p.Text("campaign_design", "name"), "Campagne")
			},
		},
		&specialist{
			id:      model.ContentGenerator,
			kind:    model.TaskContentGeneration,
			deps:    deps,
			context: contentContext,
			status: func(_ *model.ConversationState, p model.Payload) string {
				return "Contenu généré : " + orDefault(p.String("content_type"), "document")
			},
		},
		&synthesizer{deps: deps},
	}

	table := make(Table, len(all))
	for _, r := range all {
		table[r.ID()] = r
	}
	return table, nil
}

// Get returns the responder for id.
func (t Table) Get(id model.ResponderID) (Responder, error) {
	r, ok := t[id]
	if !ok {
		return nil, fmt.Errorf("no responder registered for %q", id)
	}
	return r, nil
}

type specialist struct {
	id      model.ResponderID
	kind    model.TaskKind
	deps    Deps
	context func(s *model.ConversationState) string
	status  func(s *model.ConversationState, p model.Payload) string
}

func (r *specialist) ID() model.ResponderID { return r.id }

func (r *specialist) Respond(ctx context.Context, s *model.ConversationState) (*model.Patch, error) {
	instruction, err := prompts.RenderInstruction(ctx, r.id, r.deps.Prompt)
	if err != nil {
		return nil, err
	}

	gen, genErr := r.deps.Generator.Generate(ctx, Request{
		Responder:   r.id,
		Instruction: instruction,
		Context:     r.context(s),
		UserInput:   s.UserInput,
	})

	result := model.TaskResult{
		Responder:   r.id,
		Kind:        r.kind,
		CompletedAt: r.deps.Now().UTC(),
	}
	var cost float64
	if genErr != nil {
		logx.Warn().Err(genErr).
			Str("conversation_id", s.ConversationID).
			Str("responder", string(r.id)).
			Msg("Generation failed; recording unsuccessful result")
		result.Result = model.ParseFailure("")
		result.Error = genErr.Error()
	} else {
		cost = gen.CostUSD
		result.Result = parsers.ParseResponse(gen.Text)
		result.Success = !result.Result.ParseError()
		if !result.Success {
			result.Error = result.Result.RawResponse()
			logx.Warn().
				Str("conversation_id", s.ConversationID).
				Str("responder", string(r.id)).
				Msg("Responder output is not JSON; recording unsuccessful result")
		}
	}

	patch := &model.Patch{
		TaskResults:      []model.TaskResult{result},
		LastResult:       &result,
		Invoked:          []model.ResponderID{r.id},
		CurrentResponder: r.id,
		CostUSD:          cost,
	}
	if result.Success {
		patch.Messages = append(patch.Messages, model.AgentMessage(r.id, r.status(s, result.Result)))
	} else {
		patch.Messages = append(patch.Messages, model.AgentMessage(r.id, "Résultat indisponible pour "+string(r.id)+"."))
		patch.Errors = append(patch.Errors, string(r.id)+": résultat indisponible")
	}
	return patch, nil
}
