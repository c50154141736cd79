package nodes

import (
	"github.com/ax5-sect/server/internal/agent/model"
)

// ===== Small helpers to keep handlers simple/readable =====
// normalizeMaxIterations returns a sane default when the provided value is invalid.
func normalizeMaxIterations(n int) int {
	if n <= 0 {
		return model.DefaultMaxIterations
	}
	return n
}

// ceilingReached reports whether the turn has used all its responder visits.
func ceilingReached(s *model.ConversationState) bool {
	return s.IterationCount >= normalizeMaxIterations(s.MaxIterations)
}

// MaxRunSteps bounds graph steps for a turn: coordinator, one specialist and
// one queue preparation per iteration, synthesis and the terminal node.
func MaxRunSteps(maxIterations int) int {
	steps := 2*normalizeMaxIterations(maxIterations) + 4
	if steps < 20 {
		steps = 20
	}
	return steps
}
