package conversations

import (
	"strings"
	"unicode"

	"github.com/cloudwego/eino/schema"

	"github.com/ax5-sect/server/internal/agent/model"
)

const maxTags = 10

var stopwords = map[string]struct{}{
	"les": {}, "des": {}, "une": {}, "pour": {}, "dans": {}, "sur": {}, "nos": {}, "vos": {},
	"est": {}, "sont": {}, "quelles": {}, "quels": {}, "quelle": {}, "quel": {}, "avec": {},
	"the": {}, "and": {}, "for": {}, "what": {}, "are": {}, "qui": {}, "que": {}, "aux": {},
	"par": {}, "pas": {}, "mes": {}, "ces": {}, "cette": {}, "comment": {},
}

// FormatHistory renders the last max messages as "ROLE (responder): content" lines.
func FormatHistory(messages []*schema.Message, max int) string {
	var b strings.Builder
	for _, msg := range trimTail(messages, max) {
		if msg == nil || msg.Content == "" {
			continue
		}
		b.WriteString(strings.ToUpper(string(msg.Role)))
		if msg.Name != "" {
			b.WriteString(" (" + msg.Name + ")")
		}
		b.WriteString(": " + msg.Content + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// FormatTaskSummary lists task results with a success mark.
func FormatTaskSummary(results []model.TaskResult) string {
	if len(results) == 0 {
		return "Aucun résultat de tâche."
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		mark := "✗"
		if r.Success {
			mark = "✓"
		}
		lines = append(lines, mark+" "+string(r.Responder)+" - "+string(r.Kind))
	}
	return strings.Join(lines, "\n")
}

// KeywordTags extracts lowercase search tags from a user message.
func KeywordTags(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	tags := make([]string, 0, maxTags)
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tags = append(tags, w)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, max int) []*schema.Message {
	if max <= 0 || len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}
