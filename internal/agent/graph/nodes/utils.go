package nodes

import (
	"github.com/library-assistant-poc/server/internal/agent/model"
)

const DefaultMaxToolCalls = 10

// ===== Small helpers to keep handlers simple/readable =====
// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit evaluates whether another tool call would exceed the
// limit and, if so, marks the state accordingly. Returns true when marked now.
func checkAndMarkToolLimit(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !state.ToolCallLimitReached && state.ToolCallCount >= max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// addToolCalls adds n executed calls to the count and reports whether the
// limit is now reached. Marking the state is left to checkAndMarkToolLimit so
// the wrap-up notice is always sent before the turn is finalized.
func addToolCalls(state *model.AppState, max, n int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount += n
	return state.ToolCallCount >= max
}
