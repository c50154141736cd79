package model

import (
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestNewConversationStateSeedsTurn(t *testing.T) {
	history := []*schema.Message{schema.UserMessage("bonjour"), AgentMessage(Synthesizer, "Synthèse terminée.")}
	s := NewConversationState(TurnInput{ConversationID: "c1", UserInput: "PCF ?", History: history})

	assert.Equal(t, DefaultMaxIterations, s.MaxIterations)
	assert.Len(t, s.PriorMessages(), 2)
	require.Len(t, s.TurnMessages(), 1)
	assert.Equal(t, schema.User, s.TurnMessages()[0].Role)
	assert.Equal(t, "PCF ?", s.TurnMessages()[0].Content)
}

func TestApplyMergeRules(t *testing.T) {
	s := NewConversationState(TurnInput{UserInput: "x", MaxIterations: 3})
	first := TaskResult{Responder: KnowledgeMiner, Kind: TaskKnowledgeResearch, Success: true}
	second := TaskResult{Responder: CampaignManager, Kind: TaskCampaignDesign}

	s.Apply(&Patch{
		Messages:         []*schema.Message{AgentMessage(KnowledgeMiner, "a")},
		TaskResults:      []TaskResult{first},
		Invoked:          []ResponderID{KnowledgeMiner},
		CurrentResponder: KnowledgeMiner,
		LastResult:       &first,
	})
	s.Apply(&Patch{
		Messages:         []*schema.Message{AgentMessage(CampaignManager, "b")},
		TaskResults:      []TaskResult{second},
		Invoked:          []ResponderID{CampaignManager, KnowledgeMiner},
		CurrentResponder: CampaignManager,
		LastResult:       &second,
		Errors:           []string{"campaign_manager: résultat indisponible"},
	})

	assert.Len(t, s.TurnMessages(), 3)
	assert.Equal(t, []TaskResult{first, second}, s.TaskResults)
	assert.Equal(t, []ResponderID{KnowledgeMiner, CampaignManager}, s.InvokedResponders)
	assert.Equal(t, CampaignManager, s.CurrentResponder)
	assert.Equal(t, CampaignManager, s.LastResult.Responder)
	assert.Len(t, s.Errors, 1)
}

func TestApplyIterationCountNeverDecreases(t *testing.T) {
	s := NewConversationState(TurnInput{UserInput: "x"})
	s.Apply(&Patch{IterationCount: intPtr(2)})
	s.Apply(&Patch{IterationCount: intPtr(1)})
	assert.Equal(t, 2, s.IterationCount)
}

func TestApplyQueueOnlyWhenReplaced(t *testing.T) {
	s := NewConversationState(TurnInput{UserInput: "x"})
	s.Apply(&Patch{PendingQueue: []ResponderID{KnowledgeMiner}})
	assert.Empty(t, s.PendingQueue)

	s.Apply(&Patch{PendingQueue: []ResponderID{KnowledgeMiner, DataModeler, KnowledgeMiner}, ReplaceQueue: true})
	assert.Equal(t, []ResponderID{KnowledgeMiner, DataModeler}, s.PendingQueue)
}

func TestApplyFinalResponseOverwrites(t *testing.T) {
	s := NewConversationState(TurnInput{UserInput: "x"})
	s.Apply(&Patch{FinalResponse: strPtr("a")})
	s.Apply(&Patch{FinalResponse: strPtr("b"), CostUSD: 0.5})
	s.Apply(nil)
	assert.Equal(t, "b", s.FinalResponse)
	assert.InDelta(t, 0.5, s.TotalCostUSD, 1e-9)
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewConversationState(TurnInput{UserInput: "x"})
	s.Apply(&Patch{
		RoutingDecision: &RoutingDecision{Responders: []ResponderID{KnowledgeMiner}},
		PendingQueue:    []ResponderID{KnowledgeMiner},
		ReplaceQueue:    true,
	})

	snap := s.Snapshot()
	snap.PendingQueue[0] = DataModeler
	snap.RoutingDecision.Responders[0] = DataModeler
	snap.TaskResults = append(snap.TaskResults, TaskResult{Responder: DataModeler})

	assert.Equal(t, KnowledgeMiner, s.PendingQueue[0])
	assert.Equal(t, KnowledgeMiner, s.RoutingDecision.Responders[0])
	assert.Empty(t, s.TaskResults)
}

func TestLatestSuccessful(t *testing.T) {
	s := NewConversationState(TurnInput{UserInput: "x"})
	s.Apply(&Patch{TaskResults: []TaskResult{
		{Responder: KnowledgeMiner, Success: true, Result: Payload{"topic": "old"}},
		{Responder: KnowledgeMiner, Success: true, Result: Payload{"topic": "new"}},
		{Responder: KnowledgeMiner, Success: false},
	}})

	r, ok := s.LatestSuccessful(KnowledgeMiner)
	require.True(t, ok)
	assert.Equal(t, "new", r.Result.String("topic"))

	_, ok = s.LatestSuccessful(DataModeler)
	assert.False(t, ok)
	assert.Len(t, s.SuccessfulResults(), 2)
}

func TestRoutingDecisionQueue(t *testing.T) {
	d := &RoutingDecision{Responders: []ResponderID{KnowledgeMiner}}
	assert.Equal(t, []ResponderID{KnowledgeMiner}, d.Queue())

	d.DirectAnswer = "Bonjour !"
	assert.Nil(t, d.Queue())

	var nilDecision *RoutingDecision
	assert.Nil(t, nilDecision.Queue())
}

func TestNewRunOutputHidesResultsOutsideDebug(t *testing.T) {
	out := &TurnOutput{
		ConversationID:    "c1",
		FinalResponse:     "ok",
		InvokedResponders: []ResponderID{KnowledgeMiner},
		TaskResults:       []TaskResult{{Responder: KnowledgeMiner, Kind: TaskKnowledgeResearch, Success: true}},
		IterationCount:    1,
	}
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	plain := NewRunOutput(out, false, now)
	assert.Nil(t, plain.TaskResults)
	assert.Equal(t, []string{"knowledge_miner"}, plain.InvokedResponders)
	assert.NotNil(t, plain.Errors)

	debug := NewRunOutput(out, true, now)
	require.Len(t, debug.TaskResults, 1)
	assert.Equal(t, "knowledge_research", debug.TaskResults[0].Kind)
}
