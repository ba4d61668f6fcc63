package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/library-assistant-poc/server/internal/agent/graph/prompts"
	"github.com/library-assistant-poc/server/internal/agent/model"
	logx "github.com/library-assistant-poc/server/pkg/logger"
)

const (
	NodeGuardrail            = "Guardrail"
	NodeRefusal              = "Refusal"
	NodeInstructionAssembler = "InstructionAssembler"
	NodeAgentChatModel       = "AgentChatModel"
	NodeToolExecutor         = "ToolExecutor"
	NodeFinalizer            = "Finalizer"
)

// FallbackAnswer is used when the agent ends a turn without any text.
const FallbackAnswer = "Sorry, I could not complete that request. Please try asking again."

// VerdictClassifier is the guardrail stage as seen by the graph.
type VerdictClassifier interface {
	Classify(ctx context.Context, query string) (model.GuardrailVerdict, error)
}

// NewGuardrailPreHandler seeds the per-turn state from the input
func NewGuardrailPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.TurnID = in.TurnID
		s.Query = in.Query
		s.User = in.User
		s.Verdict = nil
		s.Refused = false
		s.History = nil
		s.ToolCalls = nil
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewGuardrailNode classifies the query before anything else sees it
func NewGuardrailNode(classifier VerdictClassifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.QueryInput) (model.GuardrailVerdict, error) {
		return classifier.Classify(ctx, in.Query)
	})
}

// NewGuardrailPostHandler stores the verdict for the finalizer
func NewGuardrailPostHandler() func(context.Context, model.GuardrailVerdict, *model.AppState) (model.GuardrailVerdict, error) {
	return func(ctx context.Context, out model.GuardrailVerdict, state *model.AppState) (model.GuardrailVerdict, error) {
		v := out
		state.Verdict = &v
		logx.Debug().
			Str("turn_id", state.TurnID).
			Bool("query_is_not_related", out.QueryIsNotRelated).
			Msg("Guardrail evaluated")
		return out, nil
	}
}

// NewTripwireCondition routes unrelated queries to the refusal node
func NewTripwireCondition() func(context.Context, model.GuardrailVerdict) (string, error) {
	return func(ctx context.Context, v model.GuardrailVerdict) (string, error) {
		if v.QueryIsNotRelated {
			logx.Debug().Str("reasoning", v.Reasoning).Msg("Tripwire triggered - routing to refusal")
			return NodeRefusal, nil
		}
		logx.Debug().Msg("Query related to library - routing to instruction assembler")
		return NodeInstructionAssembler, nil
	}
}

// NewRefusalNode answers a tripped turn without calling the agent
func NewRefusalNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.GuardrailVerdict) (*schema.Message, error) {
		var user model.UserIdentity
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.Refused = true
			user = state.User
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return schema.AssistantMessage(prompts.Refusal(user), nil), nil
	})
}

// NewInstructionAssemblerNode renders the user-specific instructions and the query
func NewInstructionAssemblerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.GuardrailVerdict) ([]*schema.Message, error) {
		var (
			user  model.UserIdentity
			query string
		)
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			user = state.User
			query = state.Query
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		instructions, err := prompts.RenderAgentSystem(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("generate agent prompt: %w", err)
		}

		return []*schema.Message{
			schema.SystemMessage(instructions),
			schema.UserMessage(query),
		}, nil
	})
}

// NewAgentChatModelPreHandler creates the pre-handler for AgentChatModel node
func NewAgentChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Some OpenAI-compatible providers drop tool_call_id on the way back
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			wrapUp := &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Answer the user now using the information you've already gathered.",
					maxToolCalls,
				),
			}
			state.History = append(state.History, wrapUp)
		}

		logx.Debug().Str("turn_id", state.TurnID).Int("messages", len(state.History)).Msg("Agent thinking...")

		return state.History, nil
	}
}

// NewAgentChatModelPostHandler records cost, tool requests and history
func NewAgentChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return out, nil
		}

		if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
			logx.Debug().
				Str("turn_id", state.TurnID).
				Str("node", NodeAgentChatModel).
				Str("model", modelName).
				Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
				Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
				Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")

			// Accumulate only total cost into state
			state.TotalCostUSD += totalC
		}

		// Normalize tool calls: some providers (Gemini OpenAI-compat) may omit tool_call IDs.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
			state.ToolCalls = append(state.ToolCalls, out.ToolCalls[i].Function.Name)
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("Agent response ready")
		}

		return out, nil
	}
}

// NewToolExecutorCondition creates the condition function for tool execution routing
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to finalizer")
			return NodeFinalizer, nil
		}

		if input != nil && len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}

		logx.Debug().Msg("No tool calls - continuing to finalizer")
		return NodeFinalizer, nil
	}
}

// NewToolExecutorPreHandler creates the pre-handler for ToolExecutor node
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		reached := addToolCalls(state, maxToolCalls, len(in.ToolCalls))

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("turn_id", state.TurnID).
			Msg("Tool execution attempt")

		if reached {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("turn_id", state.TurnID).
				Msg("Tool call limit reached - agent will be asked to wrap up")
		}

		return in, nil
	}
}

// NewFinalizerNode turns the last assistant message into the turn result
func NewFinalizerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (*model.TurnResult, error) {
		result := &model.TurnResult{}
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			result.TurnID = state.TurnID
			result.Query = state.Query
			result.Refused = state.Refused
			result.CostUSD = state.TotalCostUSD
			if state.Verdict != nil {
				result.Verdict = *state.Verdict
			}
			if len(state.ToolCalls) > 0 {
				result.ToolCalls = append([]string(nil), state.ToolCalls...)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		if msg != nil {
			result.Output = strings.TrimSpace(msg.Content)
		}
		if result.Output == "" {
			result.Output = FallbackAnswer
		}
		return result, nil
	})
}
