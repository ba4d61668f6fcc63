package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-turn state for the Eino Graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
//   - A fresh AppState is generated for every Invoke; nothing survives the turn.
type AppState struct {
	TurnID               string
	Query                string
	User                 UserIdentity
	Verdict              *GuardrailVerdict // set by guardrail post-handler
	Refused              bool              // set when the tripwire fired
	History              []*schema.Message // agent context, mutated only inside handlers
	ToolCalls            []string          // names of tools the model requested, in order
	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// QueryInput is the graph input for one turn.
type QueryInput struct {
	TurnID string       `json:"turn_id"`
	Query  string       `json:"query"`
	User   UserIdentity `json:"user"`
}

// TurnResult is what a finished turn hands back to the interactive loop.
type TurnResult struct {
	TurnID    string           `json:"turn_id"`
	Query     string           `json:"query"`
	Output    string           `json:"output"`
	Verdict   GuardrailVerdict `json:"verdict"`
	Refused   bool             `json:"refused"`
	ToolCalls []string         `json:"tool_calls,omitempty"`
	CostUSD   float64          `json:"cost_usd"`
}
