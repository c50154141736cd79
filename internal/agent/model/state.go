package model

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// DefaultMaxIterations bounds responder visits per turn when no ceiling is configured.
const DefaultMaxIterations = 10

// TaskResult is the receipt of one responder execution. It is never mutated
// after being recorded.
type TaskResult struct {
	Responder   ResponderID `json:"responder"`
	Kind        TaskKind    `json:"task_kind"`
	Success     bool        `json:"success"`
	Result      Payload     `json:"result"`
	Error       string      `json:"error,omitempty"`
	CompletedAt time.Time   `json:"completed_at"`
}

// RoutingDecision is the coordinator's choice for the turn.
type RoutingDecision struct {
	Analysis     string        `json:"analysis"`
	Responders   []ResponderID `json:"agents_to_call"`
	Reasoning    string        `json:"reasoning,omitempty"`
	DirectAnswer string        `json:"direct_response,omitempty"`
}

// Queue returns the responders to visit. A direct answer empties the queue.
func (d *RoutingDecision) Queue() []ResponderID {
	if d == nil || d.DirectAnswer != "" {
		return nil
	}
	return d.Responders
}

// ConversationState stores per-turn state for the orchestration graph.
// Concurrency model:
//   - Registered as graph local state via compose.WithGenLocalState.
//   - Written only through Apply, inside eino state handlers, so one writer
//     holds it at a time.
//   - Responders receive a Snapshot and never touch the live value.
type ConversationState struct {
	ConversationID string

	// Messages holds prior history followed by this turn's entries.
	Messages      []*schema.Message
	HistoryLen    int
	UserInput     string
	DebugMode     bool
	FinalResponse string

	CurrentResponder  ResponderID
	RoutingDecision   *RoutingDecision
	PendingQueue      []ResponderID
	InvokedResponders []ResponderID

	IterationCount int
	MaxIterations  int

	TaskResults []TaskResult
	LastResult  *TaskResult

	BusinessContext BusinessContext
	Errors          []string

	// Accumulated LLM cost (USD) for this turn
	TotalCostUSD float64
}

// NewConversationState seeds the state for one turn.
func NewConversationState(in TurnInput) *ConversationState {
	maxIter := in.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	msgs := make([]*schema.Message, 0, len(in.History)+1)
	msgs = append(msgs, in.History...)
	msgs = append(msgs, schema.UserMessage(in.UserInput))

	return &ConversationState{
		ConversationID:  in.ConversationID,
		Messages:        msgs,
		HistoryLen:      len(in.History),
		UserInput:       in.UserInput,
		DebugMode:       in.Debug,
		MaxIterations:   maxIter,
		BusinessContext: in.BusinessContext,
	}
}

// Patch is a sparse update returned by a responder or by queue preparation.
// Nil or zero fields leave the state untouched.
type Patch struct {
	Messages    []*schema.Message
	TaskResults []TaskResult
	Errors      []string
	Invoked     []ResponderID

	CurrentResponder ResponderID
	RoutingDecision  *RoutingDecision
	LastResult       *TaskResult
	FinalResponse    *string
	IterationCount   *int

	// PendingQueue replaces the queue only when ReplaceQueue is set.
	PendingQueue []ResponderID
	ReplaceQueue bool

	CostUSD float64
}

// Apply merges p into s: list fields concatenate, scalars overwrite,
// InvokedResponders is an ordered set and the iteration count never decreases.
func (s *ConversationState) Apply(p *Patch) {
	if p == nil {
		return
	}

	s.Messages = append(s.Messages, p.Messages...)
	s.TaskResults = append(s.TaskResults, p.TaskResults...)
	s.Errors = append(s.Errors, p.Errors...)
	for _, id := range p.Invoked {
		if !s.HasInvoked(id) {
			s.InvokedResponders = append(s.InvokedResponders, id)
		}
	}

	if p.CurrentResponder != "" {
		s.CurrentResponder = p.CurrentResponder
	}
	if p.RoutingDecision != nil {
		d := *p.RoutingDecision
		d.Responders = append([]ResponderID(nil), p.RoutingDecision.Responders...)
		s.RoutingDecision = &d
	}
	if p.LastResult != nil {
		r := *p.LastResult
		s.LastResult = &r
	}
	if p.FinalResponse != nil {
		s.FinalResponse = *p.FinalResponse
	}
	if p.IterationCount != nil && *p.IterationCount > s.IterationCount {
		s.IterationCount = *p.IterationCount
	}
	if p.ReplaceQueue {
		s.PendingQueue = UniqueResponders(p.PendingQueue)
	}

	s.TotalCostUSD += p.CostUSD
}

// HasInvoked reports whether id already ran this turn.
func (s *ConversationState) HasInvoked(id ResponderID) bool {
	for _, v := range s.InvokedResponders {
		if v == id {
			return true
		}
	}
	return false
}

// PriorMessages returns history loaded before this turn started.
func (s *ConversationState) PriorMessages() []*schema.Message {
	return s.Messages[:s.HistoryLen]
}

// TurnMessages returns the entries produced during this turn, including the user message.
func (s *ConversationState) TurnMessages() []*schema.Message {
	return s.Messages[s.HistoryLen:]
}

// LatestSuccessful returns the most recent successful result from id.
func (s *ConversationState) LatestSuccessful(id ResponderID) (TaskResult, bool) {
	for i := len(s.TaskResults) - 1; i >= 0; i-- {
		r := s.TaskResults[i]
		if r.Responder == id && r.Success {
			return r, true
		}
	}
	return TaskResult{}, false
}

// SuccessfulResults returns successful results in completion order.
func (s *ConversationState) SuccessfulResults() []TaskResult {
	out := make([]TaskResult, 0, len(s.TaskResults))
	for _, r := range s.TaskResults {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// Snapshot returns a copy whose slices can be read without holding the state lock.
func (s *ConversationState) Snapshot() *ConversationState {
	cp := *s
	cp.Messages = append([]*schema.Message(nil), s.Messages...)
	cp.PendingQueue = append([]ResponderID(nil), s.PendingQueue...)
	cp.InvokedResponders = append([]ResponderID(nil), s.InvokedResponders...)
	cp.TaskResults = append([]TaskResult(nil), s.TaskResults...)
	cp.Errors = append([]string(nil), s.Errors...)
	if s.RoutingDecision != nil {
		d := *s.RoutingDecision
		d.Responders = append([]ResponderID(nil), s.RoutingDecision.Responders...)
		cp.RoutingDecision = &d
	}
	if s.LastResult != nil {
		r := *s.LastResult
		cp.LastResult = &r
	}
	return &cp
}

// UniqueResponders drops repeated ids, keeping first occurrences in order.
func UniqueResponders(ids []ResponderID) []ResponderID {
	out := make([]ResponderID, 0, len(ids))
	seen := make(map[ResponderID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// AgentMessage tags an assistant message with the responder that wrote it.
func AgentMessage(id ResponderID, content string) *schema.Message {
	msg := schema.AssistantMessage(content, nil)
	msg.Name = string(id)
	return msg
}
