package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/guardrail_prompt.txt
var guardrailSystemPrompt string

// GuardrailTemplate returns the chat template used by the guardrail: the fixed
// classification instructions followed by the raw user query.
func GuardrailTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(guardrailSystemPrompt),
		schema.UserMessage("{{.Query}}"),
	)
}

// GuardrailVars builds the template variables for query.
func GuardrailVars(query string) map[string]any {
	return map[string]any{
		"Field":       "query_is_not_related",
		"ReasonField": "reasoning",
		"Query":       query,
	}
}

// RenderGuardrailSystem renders only the classification instructions.
func RenderGuardrailSystem(ctx context.Context) (string, error) {
	msgs, err := GuardrailTemplate().Format(ctx, GuardrailVars(""))
	if err != nil {
		return "", fmt.Errorf("guardrail prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("guardrail prompt render: empty result")
	}
	return msgs[0].Content, nil
}
