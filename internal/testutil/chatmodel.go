// Package testutil provides scripted collaborators for tests.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrScriptExhausted is returned when a ScriptedChatModel is called more times
// than it has replies.
var ErrScriptExhausted = errors.New("scripted chat model: no replies left")

// Reply is one scripted model answer. Err takes precedence over Message.
type Reply struct {
	Message *schema.Message
	Err     error
}

// ScriptedChatModel answers calls with queued replies and records every input.
type ScriptedChatModel struct {
	mu      sync.Mutex
	replies []Reply
	calls   [][]*schema.Message
	tools   []*schema.ToolInfo
}

var (
	_ model.ToolCallingChatModel = (*ScriptedChatModel)(nil)
	_ model.ChatModel            = (*ScriptedChatModel)(nil)
)

func NewScriptedChatModel(replies ...Reply) *ScriptedChatModel {
	return &ScriptedChatModel{replies: replies}
}

// Text is a shorthand for a plain assistant reply.
func Text(content string) Reply {
	return Reply{Message: schema.AssistantMessage(content, nil)}
}

// ToolCall is a shorthand for an assistant reply requesting one tool.
func ToolCall(id, name, arguments string) Reply {
	return Reply{Message: schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: arguments},
	}})}
}

// Fail is a shorthand for a failing round trip.
func Fail(err error) Reply {
	return Reply{Err: err}
}

func (m *ScriptedChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]*schema.Message, len(input))
	copy(snapshot, input)
	m.calls = append(m.calls, snapshot)

	if len(m.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	out := *next.Message
	return &out, nil
}

func (m *ScriptedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *ScriptedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := m.BindTools(tools); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ScriptedChatModel) BindTools(tools []*schema.ToolInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = tools
	return nil
}

// Calls returns the inputs of every Generate call so far.
func (m *ScriptedChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// Tools returns the last bound tool set.
func (m *ScriptedChatModel) Tools() []*schema.ToolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tools
}

// Remaining reports how many scripted replies are unused.
func (m *ScriptedChatModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}
