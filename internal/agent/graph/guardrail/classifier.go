// Package guardrail decides whether a query belongs to the library domain
// before the agent is allowed to see it.
package guardrail

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/library-assistant-poc/server/internal/agent/graph/prompts"
	"github.com/library-assistant-poc/server/internal/agent/model"
	errx "github.com/library-assistant-poc/server/internal/core/error"
	logx "github.com/library-assistant-poc/server/pkg/logger"
	"github.com/library-assistant-poc/server/pkg/openaicompat"
)

const (
	nodeVars    = "GuardrailVars"
	nodePrompt  = "GuardrailPrompt"
	nodeModel   = "GuardrailChatModel"
	nodeVerdict = "GuardrailVerdictParser"
)

// Classifier runs the single-shot classification call.
type Classifier struct {
	runnable compose.Runnable[string, model.GuardrailVerdict]
	format   *openaicompat.JSONSchemaFormat
}

// NewClassifier compiles the classification chain around chatModel.
func NewClassifier(ctx context.Context, chatModel einomodel.BaseChatModel) (*Classifier, error) {
	if chatModel == nil {
		return nil, errors.New("guardrail chat model is nil")
	}

	verdictSchema, err := VerdictSchema()
	if err != nil {
		return nil, err
	}

	chain := compose.NewChain[string, model.GuardrailVerdict]()
	chain.
		AppendLambda(compose.InvokableLambda(func(_ context.Context, query string) (map[string]any, error) {
			return prompts.GuardrailVars(query), nil
		}), compose.WithNodeName(nodeVars)).
		AppendChatTemplate(prompts.GuardrailTemplate(), compose.WithNodeName(nodePrompt)).
		AppendChatModel(chatModel, compose.WithNodeName(nodeModel)).
		AppendLambda(compose.InvokableLambda(func(_ context.Context, msg *schema.Message) (model.GuardrailVerdict, error) {
			if msg == nil {
				return model.GuardrailVerdict{}, errx.WrapModelOutput(errors.New("empty guardrail reply"))
			}
			v, err := ParseVerdict(msg.Content)
			if err != nil {
				return model.GuardrailVerdict{}, errx.WrapModelOutput(err)
			}
			return v, nil
		}), compose.WithNodeName(nodeVerdict))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling guardrail chain")
		return nil, fmt.Errorf("error compiling guardrail chain: %w", err)
	}

	return &Classifier{
		runnable: runnable,
		format: &openaicompat.JSONSchemaFormat{
			Name:        verdictSchemaName,
			Description: "Whether the user query is unrelated to the library",
			Schema:      verdictSchema,
			Strict:      true,
		},
	}, nil
}

// Classify sends query to the model once. There is no retry: any failure is
// returned to the caller and fails the turn.
func (c *Classifier) Classify(ctx context.Context, query string) (model.GuardrailVerdict, error) {
	verdict, err := c.runnable.Invoke(ctx, query,
		compose.WithChatModelOption(openaicompat.WithResponseFormat(c.format)),
	)
	if err != nil {
		return model.GuardrailVerdict{}, errx.WrapModel(err)
	}

	logx.Debug().
		Bool("query_is_not_related", verdict.QueryIsNotRelated).
		Str("reasoning", verdict.Reasoning).
		Msg("Guardrail verdict")
	return verdict, nil
}
