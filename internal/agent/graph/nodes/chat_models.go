package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/library-assistant-poc/server/internal/agent/model"
	logx "github.com/library-assistant-poc/server/pkg/logger"
	"github.com/library-assistant-poc/server/pkg/openaicompat"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	Provider        model.ProviderConfig
	AgentConfig     *model.AgentModelConfig
	GuardrailConfig *model.GuardrailModelConfig
}

// ChatModels holds the agent and guardrail chat models
type ChatModels struct {
	Agent              einomodel.ChatModel
	Guardrail          einomodel.ChatModel
	AgentModelName     string
	GuardrailModelName string
}

// NewChatModels creates both chat models for the configured provider
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.AgentConfig == nil || config.GuardrailConfig == nil {
		return nil, fmt.Errorf("chat model configs are nil")
	}

	var (
		agent, guardrail einomodel.ChatModel
		err              error
	)
	switch config.Provider.Provider {
	case model.ProviderOpenAI, "":
		agent, guardrail, err = newOpenAIChatModels(ctx, config)
	case model.ProviderGemini:
		agent, guardrail, err = newGeminiChatModels(ctx, config)
	default:
		return nil, fmt.Errorf("unknown model provider %q", config.Provider.Provider)
	}
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("provider", config.Provider.Provider).
		Str("agent_model", config.AgentConfig.Model).
		Str("guardrail_model", config.GuardrailConfig.Model).
		Msg("Chat models created")

	return &ChatModels{
		Agent:              agent,
		Guardrail:          guardrail,
		AgentModelName:     config.AgentConfig.Model,
		GuardrailModelName: config.GuardrailConfig.Model,
	}, nil
}

func newOpenAIChatModels(ctx context.Context, config ChatModelConfig) (einomodel.ChatModel, einomodel.ChatModel, error) {
	p := config.Provider

	agent, err := openaicompat.NewChatModel(ctx, &openaicompat.Config{
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		Model:       config.AgentConfig.Model,
		MaxTokens:   &config.AgentConfig.MaxTokens,
		Temperature: &config.AgentConfig.Temperature,
		ToolChoice:  config.AgentConfig.ToolChoice,
		Timeout:     p.RequestTimeout,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating agent model")
		return nil, nil, fmt.Errorf("error creating agent model: %w", err)
	}

	guardrail, err := openaicompat.NewChatModel(ctx, &openaicompat.Config{
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		Model:       config.GuardrailConfig.Model,
		MaxTokens:   &config.GuardrailConfig.MaxTokens,
		Temperature: &config.GuardrailConfig.Temperature,
		Timeout:     p.RequestTimeout,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating guardrail model")
		return nil, nil, fmt.Errorf("error creating guardrail model: %w", err)
	}

	return agent, guardrail, nil
}

func newGeminiChatModels(ctx context.Context, config ChatModelConfig) (einomodel.ChatModel, einomodel.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.Provider.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.Provider.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.Provider.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	agent, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.AgentConfig.Model,
		Temperature: &config.AgentConfig.Temperature,
		MaxTokens:   &config.AgentConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating agent model")
		return nil, nil, fmt.Errorf("error creating agent model: %w", err)
	}

	guardrail, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.GuardrailConfig.Model,
		Temperature: &config.GuardrailConfig.Temperature,
		MaxTokens:   &config.GuardrailConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating guardrail model")
		return nil, nil, fmt.Errorf("error creating guardrail model: %w", err)
	}

	return agent, guardrail, nil
}

// BindToolsToAgentModel binds tools to the agent chat model
func (cm *ChatModels) BindToolsToAgentModel(_ context.Context, tools []*schema.ToolInfo) error {
	if err := cm.Agent.BindTools(tools); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}

	logx.Debug().Int("tool_count", len(tools)).Msg("Successfully bound tools to agent model")
	return nil
}
