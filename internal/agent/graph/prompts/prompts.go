package prompts

import (
	"context"
	"embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/ax5-sect/server/internal/agent/model"
)

//go:embed template/*.txt
var templates embed.FS

// RenderInstruction renders the fixed role instruction for a responder via
// the eino prompt component, so prompt callbacks fire for every render.
func RenderInstruction(ctx context.Context, id model.ResponderID, cfg model.PromptConfig) (string, error) {
	raw, err := templates.ReadFile("template/" + string(id) + ".txt")
	if err != nil {
		return "", fmt.Errorf("no instruction for responder %q: %w", id, err)
	}

	specialists := make([]model.ResponderInfo, 0, 4)
	for _, info := range model.Catalog() {
		if info.Specialist {
			specialists = append(specialists, info)
		}
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(string(raw)),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"HubName":     cfg.HubName,
		"Language":    cfg.Language,
		"Specialists": specialists,
	})
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", id, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", id)
	}
	return msgs[0].Content, nil
}
