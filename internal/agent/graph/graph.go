package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/ax5-sect/server/internal/agent/graph/conversations"
	"github.com/ax5-sect/server/internal/agent/graph/nodes"
	"github.com/ax5-sect/server/internal/agent/graph/observers"
	"github.com/ax5-sect/server/internal/agent/graph/responders"
	"github.com/ax5-sect/server/internal/agent/model"
	"github.com/ax5-sect/server/internal/agent/session"
	errx "github.com/ax5-sect/server/internal/core/error"
	logx "github.com/ax5-sect/server/pkg/logger"
)

// Config holds everything needed to run turns end-to-end.
type Config struct {
	Responders    responders.Table
	Messages      *conversations.MessagesManager
	Sessions      *session.Manager
	Metrics       *observers.Metrics
	MaxIterations int
	// Now stamps run outputs; defaults to time.Now.
	Now func() time.Time
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	Responders    responders.Table
	Recorder      nodes.Recorder
	MaxIterations int
}

// GraphBuilder handles the construction of the orchestration graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *model.TurnOutput]
}

// Runner executes one turn per call: lock, load, traverse, save.
type Runner struct {
	runnable      compose.Runnable[model.TurnInput, *model.TurnOutput]
	messages      *conversations.MessagesManager
	sessions      *session.Manager
	metrics       *observers.Metrics
	maxIterations int
	now           func() time.Time
}

// NewRunner compiles the graph and wires its collaborators.
func NewRunner(ctx context.Context, cfg Config) (*Runner, error) {
	if cfg.Messages == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewManager()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	var recorder nodes.Recorder
	if cfg.Metrics != nil {
		recorder = cfg.Metrics
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		Responders:    cfg.Responders,
		Recorder:      recorder,
		MaxIterations: cfg.MaxIterations,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Orchestration graph built successfully")
	return &Runner{
		runnable:      runnable,
		messages:      cfg.Messages,
		sessions:      cfg.Sessions,
		metrics:       cfg.Metrics,
		maxIterations: cfg.MaxIterations,
		now:           cfg.Now,
	}, nil
}

// Run executes one turn. Responder failures are absorbed into the answer;
// collaborator failures abandon the turn and come back as an *errx.AppError
// carrying a generic message.
func (r *Runner) Run(ctx context.Context, in model.RunInput) (*model.RunOutput, error) {
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		return nil, errx.BadRequest(errors.New("message is required"))
	}
	if in.ConversationID == "" {
		in.ConversationID = uuid.NewString()
	}

	start := time.Now()
	log := logx.Conversation(in.ConversationID)

	var out *model.TurnOutput
	err := r.sessions.WithLock(ctx, in.ConversationID, func(ctx context.Context) error {
		turn, err := r.messages.LoadTurn(ctx, in)
		if err != nil {
			return err
		}

		out, err = r.runnable.Invoke(ctx, model.TurnInput{
			ConversationID:  in.ConversationID,
			UserInput:       in.Message,
			History:         turn.History,
			BusinessContext: turn.BusinessContext,
			MaxIterations:   r.maxIterations,
			Debug:           in.Debug,
		}, compose.WithCallbacks(observers.NewAllCallbacks(r.metrics)...))
		if err != nil {
			return fmt.Errorf("run turn graph: %w", err)
		}
		if out == nil {
			return fmt.Errorf("run turn graph: empty output")
		}

		return r.messages.SaveTurn(ctx, in.ConversationID, out.NewMessages, turn.BusinessContext)
	})
	if err != nil {
		r.metrics.ObserveTurn("error", time.Since(start), 0, 0)
		log.Error().Err(err).Msg("Turn abandoned")
		return nil, turnError(err)
	}

	r.metrics.ObserveTurn("ok", time.Since(start), out.IterationCount, out.CostUSD)
	log.Info().
		Strs("invoked", idStrings(out.InvokedResponders)).
		Int("iteration_count", out.IterationCount).
		Int("errors", len(out.Errors)).
		Float64("cost_usd", out.CostUSD).
		Dur("elapsed", time.Since(start)).
		Msg("Turn completed")
	return model.NewRunOutput(out, in.Debug, r.now().UTC()), nil
}

// BuildGraph constructs and returns the compiled orchestration graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *model.TurnOutput], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	for _, info := range model.Catalog() {
		if _, err := config.Responders.Get(info.ID); err != nil {
			return nil, fmt.Errorf("responder table is incomplete: %w", err)
		}
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *model.TurnOutput](
			compose.WithGenLocalState(func(ctx context.Context) *model.ConversationState {
				return &model.ConversationState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	table := b.config.Responders
	applyPatch := compose.WithStatePostHandler(nodes.NewApplyPatchPostHandler())

	if err := b.graph.AddLambdaNode(nodes.NodeCoordinator,
		nodes.NewCoordinatorNode(table[model.Coordinator]),
		compose.WithStatePreHandler(nodes.NewTurnPreHandler()),
		applyPatch,
		compose.WithNodeName(nodes.NodeCoordinator),
	); err != nil {
		return fmt.Errorf("add coordinator node: %w", err)
	}

	for _, id := range model.Specialists() {
		node, _ := nodes.Dispatch(id)
		if err := b.graph.AddLambdaNode(node,
			nodes.NewResponderNode(table[id], b.config.Recorder),
			applyPatch,
			compose.WithNodeName(node),
		); err != nil {
			return fmt.Errorf("add %s node: %w", id, err)
		}
	}

	if err := b.graph.AddLambdaNode(nodes.NodeQueuePrep,
		nodes.NewQueuePrepNode(),
		applyPatch,
		compose.WithNodeName(nodes.NodeQueuePrep),
	); err != nil {
		return fmt.Errorf("add queue prep node: %w", err)
	}

	if err := b.graph.AddLambdaNode(nodes.NodeSynthesizer,
		nodes.NewResponderNode(table[model.Synthesizer], b.config.Recorder),
		applyPatch,
		compose.WithNodeName(nodes.NodeSynthesizer),
	); err != nil {
		return fmt.Errorf("add synthesizer node: %w", err)
	}

	if err := b.graph.AddLambdaNode(nodes.NodeDone,
		nodes.NewDoneNode(),
		compose.WithNodeName(nodes.NodeDone),
	); err != nil {
		return fmt.Errorf("add done node: %w", err)
	}
	return nil
}

// addEdges creates the unconditional connections between nodes
func (b *GraphBuilder) addEdges() error {
	for _, edge := range Edges() {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	branches := Branches()

	afterCoordinator := compose.NewGraphBranch(
		nodes.NewAfterCoordinatorCondition(b.config.Recorder),
		toSet(branches[nodes.NodeCoordinator]),
	)
	if err := b.graph.AddBranch(nodes.NodeCoordinator, afterCoordinator); err != nil {
		logx.Error().Err(err).Msg("Error adding coordinator branch")
		return fmt.Errorf("error adding coordinator branch: %w", err)
	}

	afterQueuePrep := compose.NewGraphBranch(
		nodes.NewAfterQueuePrepCondition(b.config.Recorder),
		toSet(branches[nodes.NodeQueuePrep]),
	)
	if err := b.graph.AddBranch(nodes.NodeQueuePrep, afterQueuePrep); err != nil {
		logx.Error().Err(err).Msg("Error adding queue prep branch")
		return fmt.Errorf("error adding queue prep branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.TurnOutput], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("ax5_turn"),
		compose.WithMaxRunSteps(nodes.MaxRunSteps(b.config.MaxIterations)),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// turnError hides collaborator details behind the generic turn failure message.
func turnError(err error) error {
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Status == http.StatusBadRequest {
		return appErr
	}
	status := http.StatusServiceUnavailable
	if errors.As(err, &appErr) && appErr.Status >= http.StatusInternalServerError {
		status = appErr.Status
	}
	return errx.New(err, status, errx.TurnFailedMessage)
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func idStrings(ids []model.ResponderID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
