package model

import "time"

// ================ Config ================

// ProviderConfig selects how the assistant reaches the language model.
// "openai" talks to any OpenAI-compatible chat completions endpoint (Gemini's
// compatibility layer by default); "gemini" uses the native Gemini API.
type ProviderConfig struct {
	Provider       string        `envconfig:"MODEL_PROVIDER" default:"openai"`
	APIKey         string        `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL        string        `envconfig:"GEMINI_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"MODEL_REQUEST_TIMEOUT" default:"0s"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type AgentModelConfig struct {
	Model       string  `envconfig:"AGENT_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"AGENT_MAX_TOKENS" default:"200"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0.2"`
	ToolChoice  string  `envconfig:"AGENT_TOOL_CHOICE" default:"auto"`
}

type GuardrailModelConfig struct {
	Model       string  `envconfig:"GUARDRAIL_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"GUARDRAIL_MAX_TOKENS" default:"256"`
	Temperature float32 `envconfig:"GUARDRAIL_TEMPERATURE" default:"0"`
}

// UserConfig is the identity the session runs as.
type UserConfig struct {
	Name string `envconfig:"LIBRARY_USER_NAME" default:"Tayyab"`
	ID   int    `envconfig:"LIBRARY_USER_ID" default:"12345"`
}

func (u UserConfig) Identity() UserIdentity {
	return UserIdentity{Name: u.Name, UserID: u.ID}
}

type ConversationConfig struct {
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

type TranscriptConfig struct {
	Enabled bool          `envconfig:"TRANSCRIPT_ENABLED" default:"false"`
	TTL     time.Duration `envconfig:"TRANSCRIPT_TTL" default:"24h"`
}
