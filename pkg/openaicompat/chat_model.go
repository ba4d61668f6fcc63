// Package openaicompat adapts an OpenAI-compatible chat completions endpoint
// (OpenAI itself, Gemini's compatibility layer, local gateways) to the Eino
// chat model interfaces.
package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// DefaultBaseURL is Gemini's OpenAI compatibility endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

const (
	ToolChoiceAuto     = "auto"
	ToolChoiceNone     = "none"
	ToolChoiceRequired = "required"
)

// Config holds everything needed to build a ChatModel.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	MaxTokens   *int
	Temperature *float32
	// ToolChoice is sent only when tools are bound. Empty means auto.
	ToolChoice string

	// ResponseFormat forces a JSON schema shaped reply. Tools are not sent
	// alongside it.
	ResponseFormat *JSONSchemaFormat

	// Timeout bounds a single request. Zero means no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// JSONSchemaFormat describes a structured output contract.
type JSONSchemaFormat struct {
	Name        string
	Description string
	Schema      map[string]any
	Strict      bool
}

type options struct {
	ResponseFormat *JSONSchemaFormat
}

// WithResponseFormat overrides Config.ResponseFormat for one call.
func WithResponseFormat(f *JSONSchemaFormat) model.Option {
	return model.WrapImplSpecificOptFn(func(o *options) {
		o.ResponseFormat = f
	})
}

// ChatModel implements model.ToolCallingChatModel and the older
// model.ChatModel BindTools contract.
type ChatModel struct {
	client openai.Client
	cfg    Config
	tools  []openai.ChatCompletionToolParam
}

var (
	_ model.ToolCallingChatModel = (*ChatModel)(nil)
	_ model.ChatModel            = (*ChatModel)(nil)
)

// NewChatModel creates a client for the configured endpoint. SDK retries are
// disabled: a failed round trip fails the caller's turn.
func NewChatModel(_ context.Context, cfg *Config) (*ChatModel, error) {
	if cfg == nil {
		return nil, errors.New("openaicompat: config is nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("openaicompat: model is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &ChatModel{
		client: openai.NewClient(opts...),
		cfg:    *cfg,
	}, nil
}

func (cm *ChatModel) GetType() string {
	return "OpenAICompatible"
}

// Generate runs one chat completion round trip.
func (cm *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	params, err := cm.buildParams(input, opts...)
	if err != nil {
		return nil, err
	}

	resp, err := cm.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openaicompat: no choices in response")
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("openaicompat: model refused: %s", choice.Message.Refusal)
	}

	out := schema.AssistantMessage(choice.Message.Content, nil)
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: choice.FinishReason,
		Usage: &schema.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	return out, nil
}

// Stream is served by a single Generate call; the assistant never streams.
func (cm *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := cm.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

// WithTools returns a copy of the model bound to tools.
func (cm *ChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	converted, err := convTools(tools)
	if err != nil {
		return nil, err
	}
	clone := *cm
	clone.tools = converted
	return &clone, nil
}

// BindTools binds tools in place.
func (cm *ChatModel) BindTools(tools []*schema.ToolInfo) error {
	converted, err := convTools(tools)
	if err != nil {
		return err
	}
	cm.tools = converted
	return nil
}

func (cm *ChatModel) buildParams(input []*schema.Message, opts ...model.Option) (openai.ChatCompletionNewParams, error) {
	common := model.GetCommonOptions(&model.Options{
		Model:       &cm.cfg.Model,
		Temperature: cm.cfg.Temperature,
		MaxTokens:   cm.cfg.MaxTokens,
	}, opts...)
	specific := model.GetImplSpecificOptions(&options{ResponseFormat: cm.cfg.ResponseFormat}, opts...)

	msgs, err := convMessages(input)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    *common.Model,
	}
	if common.Temperature != nil {
		params.Temperature = param.NewOpt(toFloat64(*common.Temperature))
	}
	if common.MaxTokens != nil && *common.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(*common.MaxTokens))
	}

	if f := specific.ResponseFormat; f != nil {
		js := openai.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   f.Name,
			Schema: f.Schema,
			Strict: param.NewOpt(f.Strict),
		}
		if f.Description != "" {
			js.Description = param.NewOpt(f.Description)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: js},
		}
		return params, nil
	}

	if len(cm.tools) > 0 {
		params.Tools = cm.tools
		choice := cm.cfg.ToolChoice
		if choice == "" {
			choice = ToolChoiceAuto
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: param.NewOpt(choice),
		}
	}
	return params, nil
}

func convMessages(in []*schema.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(in))
	for i, msg := range in {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(msg.Content))
		case schema.User:
			out = append(out, openai.UserMessage(msg.Content))
		case schema.Tool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case schema.Assistant:
			ap := &openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				ap.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(msg.Content),
				}
			}
			for _, tc := range msg.ToolCalls {
				ap.ToolCalls = append(ap.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: ap})
		default:
			return nil, fmt.Errorf("openaicompat: message %d has unsupported role %q", i, msg.Role)
		}
	}
	return out, nil
}

func convTools(tools []*schema.ToolInfo) ([]openai.ChatCompletionToolParam, error) {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, info := range tools {
		if info == nil {
			continue
		}
		params, err := convParams(info)
		if err != nil {
			return nil, fmt.Errorf("openaicompat: tool %s: %w", info.Name, err)
		}
		fn := openai.FunctionDefinitionParam{
			Name:       info.Name,
			Parameters: params,
		}
		if info.Desc != "" {
			fn.Description = param.NewOpt(info.Desc)
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out, nil
}

func convParams(info *schema.ToolInfo) (openai.FunctionParameters, error) {
	empty := openai.FunctionParameters{"type": "object", "properties": map[string]any{}}
	if info.ParamsOneOf == nil {
		return empty, nil
	}
	js, err := info.ParamsOneOf.ToJSONSchema()
	if err != nil {
		return nil, err
	}
	if js == nil {
		return empty, nil
	}
	b, err := json.Marshal(js)
	if err != nil {
		return nil, err
	}
	var m openai.FunctionParameters
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// toFloat64 widens f without picking up float32 rounding noise (0.2 stays 0.2).
func toFloat64(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'f', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}
