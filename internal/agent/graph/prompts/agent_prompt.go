package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/library-assistant-poc/server/internal/agent/graph/tools"
	"github.com/library-assistant-poc/server/internal/agent/model"
)

//go:embed template/agent_prompt.txt
var agentSystemPrompt string

// RenderAgentSystem renders the agent instructions for user and triggers prompt callbacks.
// The result depends only on user, so it is recomputed every turn.
func RenderAgentSystem(ctx context.Context, user model.UserIdentity) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(agentSystemPrompt),
	)
	vars := map[string]any{
		"UserName":         user.Name,
		"AuthTool":         tools.ToolCheckUserAuthentication,
		"GreetingTool":     tools.ToolGreeting,
		"AvailabilityTool": tools.ToolCheckBookAvailability,
		"SearchTool":       tools.ToolSearchBook,
		"BookDataTool":     tools.ToolBookData,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("agent prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("agent prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// Refusal is the fixed answer for queries the guardrail rejects.
func Refusal(user model.UserIdentity) string {
	return fmt.Sprintf("%s I am only library assistant I can't talk about any other topic.", user.Name)
}
