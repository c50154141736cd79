package responders

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ax5-sect/server/internal/agent/graph/conversations"
	"github.com/ax5-sect/server/internal/agent/model"
)

const (
	ragContextLimit     = 5
	ragSnippetRunes     = 200
	defaultHistoryTurns = 10
)

// contextBuilder assembles "## Heading\nbody" sections for a generation call.
type contextBuilder struct {
	parts []string
}

func (c *contextBuilder) section(title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	c.parts = append(c.parts, "## "+title+"\n"+body)
}

func (c *contextBuilder) line(text string) {
	c.parts = append(c.parts, text)
}

func (c *contextBuilder) String() string {
	return strings.Join(c.parts, "\n\n")
}

// base opens every specialist context with the request and the coordinator's reading of it.
func base(s *model.ConversationState) *contextBuilder {
	c := &contextBuilder{}
	c.section("Demande originale", s.UserInput)
	if s.RoutingDecision != nil {
		c.section("Analyse de l'orchestrateur", s.RoutingDecision.Analysis)
	}
	return c
}

func coordinatorContext(s *model.ConversationState, historyTurns int) string {
	if historyTurns <= 0 {
		historyTurns = defaultHistoryTurns
	}
	c := &contextBuilder{}
	c.section("Historique récent", conversations.FormatHistory(s.PriorMessages(), historyTurns))
	if len(s.TaskResults) > 0 {
		c.section("Résultats des agents", conversations.FormatTaskSummary(s.TaskResults))
	}

	var active []string
	if id := s.BusinessContext.CurrentSupplierID; id != 0 {
		active = append(active, fmt.Sprintf("Fournisseur actif : ID %d", id))
	}
	if id := s.BusinessContext.CurrentCampaignID; id != 0 {
		active = append(active, fmt.Sprintf("Campagne active : ID %d", id))
	}
	c.section("Contexte métier", strings.Join(active, "\n"))

	c.section("Demande utilisateur", s.UserInput)
	c.line("Analyse cette demande et décide quels agents appeler.")
	return c.String()
}

func knowledgeContext(s *model.ConversationState) string {
	c := base(s)
	docs := s.BusinessContext.RAGResults
	if len(docs) > ragContextLimit {
		docs = docs[:ragContextLimit]
	}
	lines := make([]string, 0, len(docs))
	for _, d := range docs {
		lines = append(lines, "- "+d.Title+": "+truncateRunes(d.Description, ragSnippetRunes))
	}
	c.section("Résultats RAG disponibles", strings.Join(lines, "\n"))
	c.line("Effectue une recherche approfondie et structure tes résultats.")
	return c.String()
}

func dataModelContext(s *model.ConversationState) string {
	c := base(s)
	if r, ok := s.LatestSuccessful(model.KnowledgeMiner); ok {
		c.section("Recherche préalable", r.Result.Text("research_summary"))
	}
	c.line("Propose les entités et workflows nécessaires.")
	return c.String()
}

func campaignContext(s *model.ConversationState) string {
	c := base(s)
	if r, ok := s.LatestSuccessful(model.KnowledgeMiner); ok {
		c.section("Meilleures pratiques identifiées", r.Result.Text("research_summary", "best_practices"))
	}
	if r, ok := s.LatestSuccessful(model.DataModeler); ok {
		c.section("Workflows modélisés", r.Result.Text("workflows"))
	}
	if campaign := s.BusinessContext.LoadedCampaign; campaign != nil {
		c.section("Campagne active", toJSON(campaign))
	}
	c.line("Conçois une campagne et un playbook adaptés.")
	return c.String()
}

func contentContext(s *model.ConversationState) string {
	c := base(s)
	if r, ok := s.LatestSuccessful(model.CampaignManager); ok {
		c.section("Contexte de campagne", r.Result.Text("campaign_design"))
	}
	if supplier := s.BusinessContext.LoadedSupplier; supplier != nil {
		c.section("Fournisseur cible", toJSON(supplier))
	}
	c.line("Génère le contenu demandé.")
	return c.String()
}

func synthesisContext(s *model.ConversationState, results []model.TaskResult, unavailable []model.ResponderID) string {
	c := &contextBuilder{}
	c.section("Demande originale", s.UserInput)
	for _, r := range results {
		c.section("Résultat de "+string(r.Responder), toJSON(r.Result))
	}
	if len(unavailable) > 0 {
		c.section("Agents sans résultat", joinResponders(unavailable))
	}
	c.line("Compile ces résultats en une réponse cohérente et actionnable.")
	return c.String()
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
