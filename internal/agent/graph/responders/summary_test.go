package responders

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ax5-sect/server/internal/agent/graph/parsers"
	"github.com/ax5-sect/server/internal/agent/model"
)

func cannedResults(t *testing.T, ids ...model.ResponderID) []model.TaskResult {
	t.Helper()
	gen, err := NewCannedGenerator()
	require.NoError(t, err)
	out := make([]model.TaskResult, 0, len(ids))
	for _, id := range ids {
		g, err := gen.Generate(context.Background(), Request{Responder: id})
		require.NoError(t, err)
		out = append(out, model.TaskResult{Responder: id, Success: true, Result: parsers.ParseResponse(g.Text)})
	}
	return out
}

func TestComposeSummaryOrdersSections(t *testing.T) {
	// completion order differs from section order on purpose
	results := cannedResults(t, model.DataModeler, model.ContentGenerator, model.KnowledgeMiner, model.CampaignManager)

	text := ComposeSummary("Conçois une campagne PCF", results, nil)

	assert.True(t, strings.HasPrefix(text, "## Réponse AX5-SECT"))
	assert.Contains(t, text, "**Votre demande :** Conçois une campagne PCF")
	assert.Contains(t, text, "**Agents mobilisés :** data_modeler, content_generator, knowledge_miner, campaign_manager")
	assert.Contains(t, text, "- IMDS 15.0 permet la déclaration PCF directe")
	assert.Contains(t, text, "**Campagne proposée :** Campagne PCF Fournisseurs Tier-1 - Q1 2025")
	assert.Contains(t, text, "**Cible :** 50 fournisseurs")
	assert.Contains(t, text, "**Durée :** 11 semaines")
	assert.Contains(t, text, "**Objet :** Rappel : votre déclaration PCF est attendue")
	assert.Contains(t, text, "- `pcf_submissions` : Soumissions PCF des fournisseurs")
	assert.NotContains(t, text, "indisponibles")

	km := strings.Index(text, "### Recherche et connaissances")
	cm := strings.Index(text, "### Conception de campagne")
	cg := strings.Index(text, "### Contenu généré")
	dm := strings.Index(text, "### Modélisation proposée")
	assert.True(t, km < cm && cm < cg && cg < dm, text)
}

func TestComposeSummaryNotesUnavailable(t *testing.T) {
	text := ComposeSummary("x", nil, []model.ResponderID{model.CampaignManager, model.ContentGenerator})
	assert.Contains(t, text, "**Agents mobilisés :** aucun")
	assert.True(t, strings.HasSuffix(text, "_Données indisponibles pour : campaign_manager, content_generator._"))
}

func TestComposeSummaryToleratesSparsePayloads(t *testing.T) {
	results := []model.TaskResult{
		{Responder: model.ContentGenerator, Success: true, Result: model.Payload{}},
		{Responder: model.DataModeler, Success: true, Result: model.Payload{"entities": "oops"}},
	}
	text := ComposeSummary("x", results, nil)
	assert.Contains(t, text, "**Type :** document")
	assert.Contains(t, text, "**Scope :** Non défini")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "éé", truncateRunes("éé", 2))
	assert.Equal(t, "éé...", truncateRunes("ééé", 2))
}

func TestUnavailableResponders(t *testing.T) {
	s := newState("x")
	s.Apply(&model.Patch{
		Invoked: []model.ResponderID{model.KnowledgeMiner, model.CampaignManager},
		TaskResults: []model.TaskResult{
			{Responder: model.KnowledgeMiner, Success: true},
			{Responder: model.CampaignManager},
		},
	})
	assert.Equal(t, []model.ResponderID{model.CampaignManager}, UnavailableResponders(s))
}
