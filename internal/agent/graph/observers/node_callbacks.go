package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	logx "github.com/ax5-sect/server/pkg/logger"
)

type nodeStartKey struct{}

// newNodeHandler traces graph nodes; other components are left to their typed handlers.
func newNodeHandler() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			if !isNode(info) {
				return ctx
			}
			logx.Debug().Str("node", info.Name).Msg("Node started")
			return context.WithValue(ctx, nodeStartKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			if !isNode(info) {
				return ctx
			}
			ev := logx.Debug().Str("node", info.Name)
			if start, ok := ctx.Value(nodeStartKey{}).(time.Time); ok {
				ev = ev.Dur("elapsed", time.Since(start))
			}
			ev.Msg("Node finished")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			if !isNode(info) {
				return ctx
			}
			logx.Error().Err(err).Str("node", info.Name).Msg("Node failed")
			return ctx
		}).
		Build()
}

func isNode(info *einocb.RunInfo) bool {
	return info != nil && info.Component == compose.ComponentOfLambda
}
