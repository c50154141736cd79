package responders

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ax5-sect/server/internal/agent/model"
)

// CannedModelName tags generations produced without a language model.
const CannedModelName = "canned"

const demoNote = "_Mode démonstration : réponses simulées, sans appel à un modèle de langage._"

//go:embed canned/*.json
var cannedFS embed.FS

type cannedRoute struct {
	keywords []string
	decision model.RoutingDecision
}

// First match wins; order matters.
var cannedRoutes = []cannedRoute{
	{
		keywords: []string{"campagne", "campaign", "engager", "engage"},
		decision: model.RoutingDecision{
			Analysis:   "Demande analysée : conception de campagne d'engagement fournisseurs",
			Responders: []model.ResponderID{model.KnowledgeMiner, model.CampaignManager, model.ContentGenerator},
			Reasoning:  "Campagne complète nécessitant recherche, conception et contenus",
		},
	},
	{
		keywords: []string{"email", "relance", "script", "contenu"},
		decision: model.RoutingDecision{
			Analysis:   "Demande analysée : génération de contenu opérationnel",
			Responders: []model.ResponderID{model.ContentGenerator},
			Reasoning:  "Demande de génération de contenu (email, script, etc.)",
		},
	},
	{
		keywords: []string{"modèle", "schéma", "workflow", "données"},
		decision: model.RoutingDecision{
			Analysis:   "Demande analysée : modélisation de données",
			Responders: []model.ResponderID{model.DataModeler},
			Reasoning:  "Demande de schéma ou workflow",
		},
	},
}

var defaultCannedDecision = model.RoutingDecision{
	Analysis:   "Demande analysée : recherche d'informations sur les exigences IMDS/PCF",
	Responders: []model.ResponderID{model.KnowledgeMiner},
	Reasoning:  "Cette demande nécessite une recherche dans la base de connaissances IMDS/PCF",
}

// CannedDecision picks a routing decision by keyword matching on the user input.
func CannedDecision(userInput string) model.RoutingDecision {
	lower := strings.ToLower(userInput)
	for _, route := range cannedRoutes {
		for _, kw := range route.keywords {
			if strings.Contains(lower, kw) {
				return route.decision
			}
		}
	}
	return defaultCannedDecision
}

// CannedGenerator answers every responder deterministically. It is used when
// generation is disabled or no model credentials are configured.
type CannedGenerator struct {
	payloads map[model.ResponderID]string
}

// NewCannedGenerator loads the embedded specialist payloads.
func NewCannedGenerator() (*CannedGenerator, error) {
	payloads := make(map[model.ResponderID]string, 4)
	for _, id := range model.Specialists() {
		raw, err := cannedFS.ReadFile("canned/" + string(id) + ".json")
		if err != nil {
			return nil, fmt.Errorf("canned payload for %s: %w", id, err)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return nil, fmt.Errorf("canned payload for %s: %w", id, err)
		}
		payloads[id] = compact.String()
	}
	return &CannedGenerator{payloads: payloads}, nil
}

func (g *CannedGenerator) Generate(ctx context.Context, req Request) (*Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch req.Responder {
	case model.Coordinator:
		decision := CannedDecision(req.UserInput)
		b, err := json.Marshal(decision)
		if err != nil {
			return nil, fmt.Errorf("encode canned decision: %w", err)
		}
		return &Generation{Text: string(b), Model: CannedModelName}, nil

	case model.Synthesizer:
		text := ComposeSummary(req.UserInput, req.Results, req.Unavailable) + "\n\n" + demoNote
		return &Generation{Text: text, Model: CannedModelName}, nil
	}

	payload, ok := g.payloads[req.Responder]
	if !ok {
		return nil, fmt.Errorf("no canned answer for %s", req.Responder)
	}
	return &Generation{Text: "```json\n" + payload + "\n```", Model: CannedModelName}, nil
}
