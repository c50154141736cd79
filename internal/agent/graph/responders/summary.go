package responders

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ax5-sect/server/internal/agent/model"
)

const (
	// FallbackMessage answers a turn that produced no task result.
	FallbackMessage = "Je n'ai pas pu traiter votre demande. Veuillez reformuler."

	contentPreviewRunes = 500
)

// ComposeSummary compiles task results into a markdown answer without a
// language model. Sections follow a fixed order whatever order responders ran in.
func ComposeSummary(userInput string, results []model.TaskResult, unavailable []model.ResponderID) string {
	var b strings.Builder
	b.WriteString("## Réponse AX5-SECT\n\n")
	fmt.Fprintf(&b, "**Votre demande :** %s\n\n", userInput)
	fmt.Fprintf(&b, "**Agents mobilisés :** %s\n\n---\n", joinResponders(respondersOf(results)))

	if r, ok := latestResult(results, model.KnowledgeMiner); ok {
		b.WriteString("\n### Recherche et connaissances\n\n")
		if ctx := r.Result.Text("research_summary", "context"); ctx != "" {
			b.WriteString(ctx + "\n")
		}
		if items := stringList(r.Result["key_takeaways"]); len(items) > 0 {
			b.WriteString("\n**Points clés :**\n")
			writeBullets(&b, items)
		}
	}

	if r, ok := latestResult(results, model.CampaignManager); ok {
		b.WriteString("\n### Conception de campagne\n\n")
		if name := r.Result.Text("campaign_design", "name"); name != "" {
			fmt.Fprintf(&b, "**Campagne proposée :** %s\n", name)
		}
		if v, ok := r.Result.Get("campaign_design", "objectives"); ok {
			if items := stringList(v); len(items) > 0 {
				b.WriteString("\n**Objectifs :**\n")
				writeBullets(&b, items)
			}
		}
		if v, ok := r.Result.Get("campaign_design", "target", "estimated_suppliers"); ok {
			fmt.Fprintf(&b, "\n**Cible :** %s fournisseurs\n", formatNumber(v))
		}
		if weeks := totalWeeks(r.Result); weeks > 0 {
			fmt.Fprintf(&b, "**Durée :** %s semaines\n", strconv.FormatFloat(weeks, 'f', -1, 64))
		}
	}

	if r, ok := latestResult(results, model.ContentGenerator); ok {
		b.WriteString("\n### Contenu généré\n\n")
		fmt.Fprintf(&b, "**Type :** %s\n", orDefault(r.Result.String("content_type"), "document"))
		if subject := r.Result.Text("content", "subject"); subject != "" {
			fmt.Fprintf(&b, "**Objet :** %s\n", subject)
		}
		if preview := r.Result.Text("content", "short_version"); preview != "" {
			fmt.Fprintf(&b, "\n**Aperçu :**\n```\n%s\n```\n", truncateRunes(preview, contentPreviewRunes))
		}
	}

	if r, ok := latestResult(results, model.DataModeler); ok {
		b.WriteString("\n### Modélisation proposée\n\n")
		fmt.Fprintf(&b, "**Scope :** %s\n", orDefault(r.Result.String("scope"), "Non défini"))
		if entities, ok := r.Result["entities"].([]any); ok && len(entities) > 0 {
			b.WriteString("\n**Entités définies :**\n")
			for _, e := range entities {
				m, ok := e.(map[string]any)
				if !ok {
					continue
				}
				name, _ := m["name"].(string)
				desc, _ := m["description"].(string)
				fmt.Fprintf(&b, "- `%s` : %s\n", name, desc)
			}
		}
	}

	if len(unavailable) > 0 {
		fmt.Fprintf(&b, "\n_Données indisponibles pour : %s._\n", joinResponders(unavailable))
	}
	return strings.TrimRight(b.String(), "\n")
}

// UnavailableResponders lists responders that ran this turn without any
// successful result, in invocation order.
func UnavailableResponders(s *model.ConversationState) []model.ResponderID {
	var out []model.ResponderID
	for _, id := range s.InvokedResponders {
		if _, ok := s.LatestSuccessful(id); !ok {
			out = append(out, id)
		}
	}
	return out
}

// ====================== Helper function ======================
func latestResult(results []model.TaskResult, id model.ResponderID) (model.TaskResult, bool) {
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Responder == id && results[i].Success {
			return results[i], true
		}
	}
	return model.TaskResult{}, false
}

func respondersOf(results []model.TaskResult) []model.ResponderID {
	ids := make([]model.ResponderID, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Responder)
	}
	return model.UniqueResponders(ids)
}

func joinResponders(ids []model.ResponderID) string {
	if len(ids) == 0 {
		return "aucun"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, string(id))
	}
	return strings.Join(names, ", ")
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
}

func totalWeeks(p model.Payload) float64 {
	v, ok := p.Get("campaign_design", "timeline", "phases")
	if !ok {
		return 0
	}
	phases, _ := v.([]any)
	var total float64
	for _, phase := range phases {
		m, ok := phase.(map[string]any)
		if !ok {
			continue
		}
		if w, ok := m["duration_weeks"].(float64); ok {
			total += w
		}
	}
	return total
}

func formatNumber(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
