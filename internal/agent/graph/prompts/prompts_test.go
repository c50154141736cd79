package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ax5-sect/server/internal/agent/model"
)

var cfg = model.PromptConfig{HubName: "AX5-SECT", Language: "français"}

func TestRenderInstructionForEveryResponder(t *testing.T) {
	for _, info := range model.Catalog() {
		t.Run(string(info.ID), func(t *testing.T) {
			out, err := RenderInstruction(context.Background(), info.ID, cfg)
			require.NoError(t, err)
			assert.Contains(t, out, "AX5-SECT")
			assert.NotContains(t, out, "{{")
		})
	}
}

func TestRenderInstructionListsSpecialists(t *testing.T) {
	out, err := RenderInstruction(context.Background(), model.Coordinator, cfg)
	require.NoError(t, err)
	for _, id := range model.Specialists() {
		assert.Contains(t, out, `"`+string(id)+`"`)
	}
}

func TestRenderInstructionUnknown(t *testing.T) {
	_, err := RenderInstruction(context.Background(), model.ResponderID("legal"), cfg)
	assert.Error(t, err)
}
