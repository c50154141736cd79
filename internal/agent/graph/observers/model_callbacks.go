package observers

import (
	"context"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/ax5-sect/server/pkg/logger"
)

type modelStartKey struct{}

// newModelHandler logs model calls and feeds call and token metrics.
func newModelHandler(metrics *Metrics) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Debug().Str("model", info.Name).Str("responder", info.Type)
			if input != nil {
				ev = ev.Int("messages", len(input.Messages)).
					Int("context_chars", len(lastUserContent(input.Messages)))
			}
			ev.Msg("Model call started")
			return context.WithValue(ctx, modelStartKey{}, time.Now())
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			var usage *schema.TokenUsage
			ev := logx.Debug().Str("model", info.Name).Str("responder", info.Type)
			if start, ok := ctx.Value(modelStartKey{}).(time.Time); ok {
				ev = ev.Dur("elapsed", time.Since(start))
			}
			if output != nil {
				if output.Message != nil {
					ev = ev.Int("answer_chars", len(strings.TrimSpace(output.Message.Content)))
				}
				if output.TokenUsage != nil {
					usage = &schema.TokenUsage{
						PromptTokens:     output.TokenUsage.PromptTokens,
						CompletionTokens: output.TokenUsage.CompletionTokens,
						TotalTokens:      output.TokenUsage.TotalTokens,
					}
					ev = ev.Int("total_tokens", usage.TotalTokens)
				}
			}
			ev.Msg("Model call finished")
			metrics.observeLLM(info.Name, "success", usage)
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("model", info.Name).Str("responder", info.Type).Msg("Model call failed")
			metrics.observeLLM(info.Name, "error", nil)
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
