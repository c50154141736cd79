package nodes

import (
	"github.com/ax5-sect/server/internal/agent/model"
)

// Node keys. Specialist nodes are keyed by their responder id.
const (
	NodeCoordinator = "coordinator"
	NodeQueuePrep   = "queue_prep"
	NodeSynthesizer = "synthesizer"
	NodeDone        = "done"
)

var specialistNodes = map[model.ResponderID]string{
	model.KnowledgeMiner:   string(model.KnowledgeMiner),
	model.DataModeler:      string(model.DataModeler),
	model.CampaignManager:  string(model.CampaignManager),
	model.ContentGenerator: string(model.ContentGenerator),
}

// SpecialistNodes returns node keys for every queueable responder, in catalog order.
func SpecialistNodes() []string {
	ids := model.Specialists()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, specialistNodes[id])
	}
	return out
}

// Dispatch resolves the node for a queued responder. Ids without a node
// fall through to synthesis and report mapped=false.
func Dispatch(id model.ResponderID) (node string, mapped bool) {
	node, ok := specialistNodes[id]
	if !ok {
		return NodeSynthesizer, false
	}
	return node, true
}

// RouteAfterCoordinator picks the first transition of a turn.
func RouteAfterCoordinator(s *model.ConversationState) (next string, head model.ResponderID) {
	if s.FinalResponse != "" {
		return NodeDone, ""
	}
	if len(s.PendingQueue) == 0 {
		return NodeSynthesizer, ""
	}
	next, _ = Dispatch(s.PendingQueue[0])
	return next, s.PendingQueue[0]
}

// RouteAfterQueuePrep picks the next responder or ends in synthesis once the
// queue is drained or the iteration ceiling is reached.
func RouteAfterQueuePrep(s *model.ConversationState) (next string, head model.ResponderID) {
	if ceilingReached(s) || len(s.PendingQueue) == 0 {
		return NodeSynthesizer, ""
	}
	next, _ = Dispatch(s.PendingQueue[0])
	return next, s.PendingQueue[0]
}

// PrepareQueue drops already invoked responders from the queue, keeping the
// coordinator's order, and counts one iteration. It never generates and never fails.
func PrepareQueue(s *model.ConversationState) *model.Patch {
	remaining := make([]model.ResponderID, 0, len(s.PendingQueue))
	for _, id := range s.PendingQueue {
		if !s.HasInvoked(id) {
			remaining = append(remaining, id)
		}
	}
	next := s.IterationCount + 1
	return &model.Patch{
		PendingQueue:   remaining,
		ReplaceQueue:   true,
		IterationCount: &next,
	}
}
