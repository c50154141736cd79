package responders

import (
	"context"

	"github.com/ax5-sect/server/internal/agent/model"
)

// Request is one call to a generation strategy.
type Request struct {
	Responder   model.ResponderID
	Instruction string
	Context     string
	UserInput   string

	// Results and Unavailable are filled for the synthesizer only.
	Results     []model.TaskResult
	Unavailable []model.ResponderID
}

// Generation is the raw text a strategy produced.
type Generation struct {
	Text    string
	Model   string
	CostUSD float64
}

// Generator produces raw text for a responder. Generative and canned
// strategies satisfy the same contract so responders never know which one ran.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Generation, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (*Generation, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Generation, error) {
	return f(ctx, req)
}
