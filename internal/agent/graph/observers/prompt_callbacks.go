package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/ax5-sect/server/pkg/logger"
)

// newPromptHandler logs instruction renders.
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			ev := logx.Debug().Str("prompt", info.Name)
			if output != nil && len(output.Result) > 0 && output.Result[0] != nil {
				ev = ev.Int("rendered_chars", len(output.Result[0].Content))
			}
			ev.Msg("Prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("prompt", info.Name).Msg("Prompt render failed")
			return ctx
		},
	}
}
