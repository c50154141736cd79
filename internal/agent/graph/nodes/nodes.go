package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/ax5-sect/server/internal/agent/graph/responders"
	"github.com/ax5-sect/server/internal/agent/model"
	logx "github.com/ax5-sect/server/pkg/logger"
)

// Recorder observes routing and responder outcomes. Metrics implement it.
type Recorder interface {
	ObserveResponder(id model.ResponderID, success bool, elapsed time.Duration)
	UnmappedResponder(id model.ResponderID)
}

type noopRecorder struct{}

func (noopRecorder) ObserveResponder(model.ResponderID, bool, time.Duration) {}
func (noopRecorder) UnmappedResponder(model.ResponderID)                     {}

// RecorderOrNoop returns r, or a recorder that drops everything when r is nil.
func RecorderOrNoop(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}

// snapshot copies the live state so a responder can read it outside the state lock.
func snapshot(ctx context.Context) (*model.ConversationState, error) {
	var snap *model.ConversationState
	err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access state: %w", err)
	}
	return snap, nil
}

// NewTurnPreHandler seeds the graph local state from the turn input.
func NewTurnPreHandler() func(context.Context, model.TurnInput, *model.ConversationState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.ConversationState) (model.TurnInput, error) {
		*s = *model.NewConversationState(in)
		logx.Debug().
			Str("conversation_id", s.ConversationID).
			Int("history", s.HistoryLen).
			Int("max_iterations", s.MaxIterations).
			Msg("Turn started")
		return in, nil
	}
}

// NewApplyPatchPostHandler merges a node's patch into the state. It is the
// only place state is written after the turn is seeded.
func NewApplyPatchPostHandler() func(context.Context, *model.Patch, *model.ConversationState) (*model.Patch, error) {
	return func(ctx context.Context, out *model.Patch, s *model.ConversationState) (*model.Patch, error) {
		s.Apply(out)
		return out, nil
	}
}

// NewCoordinatorNode runs the coordinator on the freshly seeded state.
func NewCoordinatorNode(r responders.Responder) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.TurnInput) (*model.Patch, error) {
		s, err := snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return r.Respond(ctx, s)
	})
}

// NewResponderNode runs a specialist or the synthesizer.
func NewResponderNode(r responders.Responder, rec Recorder) *compose.Lambda {
	rec = RecorderOrNoop(rec)
	return compose.InvokableLambda(func(ctx context.Context, _ *model.Patch) (*model.Patch, error) {
		s, err := snapshot(ctx)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		p, err := r.Respond(ctx, s)
		if err != nil {
			logx.Error().Err(err).
				Str("conversation_id", s.ConversationID).
				Str("responder", string(r.ID())).
				Msg("Responder failed")
			return nil, fmt.Errorf("%s: %w", r.ID(), err)
		}

		success := true
		if p.LastResult != nil {
			success = p.LastResult.Success
		}
		rec.ObserveResponder(r.ID(), success, time.Since(start))
		logx.Debug().
			Str("conversation_id", s.ConversationID).
			Str("responder", string(r.ID())).
			Bool("success", success).
			Dur("elapsed", time.Since(start)).
			Msg("Responder done")
		return p, nil
	})
}

// NewQueuePrepNode filters the queue and counts the iteration.
func NewQueuePrepNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *model.Patch) (*model.Patch, error) {
		s, err := snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return PrepareQueue(s), nil
	})
}

// NewDoneNode emits the turn output from the final state.
func NewDoneNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *model.Patch) (*model.TurnOutput, error) {
		s, err := snapshot(ctx)
		if err != nil {
			return nil, err
		}

		newMessages := append([]*schema.Message{}, s.TurnMessages()...)
		if s.FinalResponse != "" {
			newMessages = append(newMessages, schema.AssistantMessage(s.FinalResponse, nil))
		}

		return &model.TurnOutput{
			ConversationID:    s.ConversationID,
			FinalResponse:     s.FinalResponse,
			InvokedResponders: s.InvokedResponders,
			TaskResults:       s.TaskResults,
			IterationCount:    s.IterationCount,
			MaxIterations:     s.MaxIterations,
			Errors:            s.Errors,
			NewMessages:       newMessages,
			CostUSD:           s.TotalCostUSD,
		}, nil
	})
}

// NewAfterCoordinatorCondition routes out of the coordinator.
func NewAfterCoordinatorCondition(rec Recorder) func(context.Context, *model.Patch) (string, error) {
	return newRouteCondition(NodeCoordinator, RouteAfterCoordinator, RecorderOrNoop(rec))
}

// NewAfterQueuePrepCondition routes out of queue preparation.
func NewAfterQueuePrepCondition(rec Recorder) func(context.Context, *model.Patch) (string, error) {
	return newRouteCondition(NodeQueuePrep, RouteAfterQueuePrep, RecorderOrNoop(rec))
}

func newRouteCondition(
	from string,
	route func(*model.ConversationState) (string, model.ResponderID),
	rec Recorder,
) func(context.Context, *model.Patch) (string, error) {
	return func(ctx context.Context, _ *model.Patch) (string, error) {
		var (
			next string
			head model.ResponderID
			s    *model.ConversationState
		)
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.ConversationState) error {
			next, head = route(state)
			s = state.Snapshot()
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		if head != "" {
			if _, mapped := Dispatch(head); !mapped {
				rec.UnmappedResponder(head)
				logx.Warn().
					Str("conversation_id", s.ConversationID).
					Str("responder", string(head)).
					Msg("No node for queued responder; routing to synthesis")
			}
		}
		if next == NodeSynthesizer && from == NodeQueuePrep && ceilingReached(s) && len(s.PendingQueue) > 0 {
			logx.Warn().
				Str("conversation_id", s.ConversationID).
				Int("iteration_count", s.IterationCount).
				Msg("Iteration ceiling reached; routing to synthesis")
		}

		logx.Debug().
			Str("conversation_id", s.ConversationID).
			Str("from", from).
			Str("to", next).
			Msg("Routing")
		return next, nil
	}
}
