package model

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// TurnInput seeds the graph local state for one turn.
type TurnInput struct {
	ConversationID  string
	UserInput       string
	History         []*schema.Message
	BusinessContext BusinessContext
	MaxIterations   int
	Debug           bool
}

// TurnOutput is emitted by the terminal node of the graph.
type TurnOutput struct {
	ConversationID    string
	FinalResponse     string
	InvokedResponders []ResponderID
	TaskResults       []TaskResult
	IterationCount    int
	MaxIterations     int
	Errors            []string
	NewMessages       []*schema.Message
	CostUSD           float64
}

// RunInput is what callers submit for one turn.
type RunInput struct {
	Message        string `json:"message"`
	ConversationID string `json:"thread_id,omitempty"`
	SupplierID     int64  `json:"supplier_id,omitempty"`
	CampaignID     int64  `json:"campaign_id,omitempty"`
	Debug          bool   `json:"debug,omitempty"`
}

// TaskResultView is the caller-facing form of a TaskResult.
type TaskResultView struct {
	Responder string  `json:"agent"`
	Kind      string  `json:"task_type"`
	Success   bool    `json:"success"`
	Result    Payload `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// RunOutput is returned to callers once a turn completes.
type RunOutput struct {
	Response          string           `json:"response"`
	ConversationID    string           `json:"thread_id"`
	InvokedResponders []string         `json:"agents_called"`
	TaskResults       []TaskResultView `json:"task_results,omitempty"`
	IterationCount    int              `json:"iteration_count"`
	Errors            []string         `json:"errors"`
	CostUSD           float64          `json:"cost_usd"`
	Timestamp         time.Time        `json:"timestamp"`
}

// NewRunOutput converts a finished turn. Task results are exposed only in debug mode.
func NewRunOutput(out *TurnOutput, debug bool, now time.Time) *RunOutput {
	res := &RunOutput{
		Response:          out.FinalResponse,
		ConversationID:    out.ConversationID,
		InvokedResponders: make([]string, 0, len(out.InvokedResponders)),
		IterationCount:    out.IterationCount,
		Errors:            append([]string{}, out.Errors...),
		CostUSD:           out.CostUSD,
		Timestamp:         now,
	}
	for _, id := range out.InvokedResponders {
		res.InvokedResponders = append(res.InvokedResponders, string(id))
	}
	if debug {
		res.TaskResults = make([]TaskResultView, 0, len(out.TaskResults))
		for _, r := range out.TaskResults {
			res.TaskResults = append(res.TaskResults, TaskResultView{
				Responder: string(r.Responder),
				Kind:      string(r.Kind),
				Success:   r.Success,
				Result:    r.Result,
				Error:     r.Error,
			})
		}
	}
	return res
}
