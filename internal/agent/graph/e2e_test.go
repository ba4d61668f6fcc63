package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/library-assistant-poc/server/internal/agent/model"
)

// fakeEndpoint plays both the guardrail and the agent on an OpenAI-compatible API.
type fakeEndpoint struct {
	mu         sync.Mutex
	unrelated  bool
	guardCalls int
	agentCalls []map[string]any
}

func completion(message string) string {
	return fmt.Sprintf(`{
  "id": "chatcmpl-e2e",
  "object": "chat.completion",
  "created": 1,
  "model": "gemini-2.0-flash",
  "choices": [{"index": 0, "finish_reason": "stop", "message": %s}],
  "usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120}
}`, message)
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	raw, _ := io.ReadAll(req.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if _, ok := body["response_format"]; ok {
		f.guardCalls++
		verdict, _ := json.Marshal(model.GuardrailVerdict{QueryIsNotRelated: f.unrelated, Reasoning: "e2e"})
		content, _ := json.Marshal(string(verdict))
		_, _ = io.WriteString(w, completion(`{"role": "assistant", "content": `+string(content)+`}`))
		return
	}

	f.agentCalls = append(f.agentCalls, body)
	msgs, _ := body["messages"].([]any)
	last, _ := msgs[len(msgs)-1].(map[string]any)
	if last["role"] == "tool" {
		_, _ = io.WriteString(w, completion(`{"role": "assistant", "content": "We have 5 copies of Python Programming."}`))
		return
	}
	_, _ = io.WriteString(w, completion(`{"role": "assistant", "content": "", "tool_calls": [
  {"id": "", "type": "function", "function": {"name": "check_book_availability", "arguments": "{\"book_name\":\"Python Programming\"}"}}]}`))
}

func newEndToEndRunner(t *testing.T, fake *fakeEndpoint) Runner {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	var conv model.ConversationConfig
	conv.Tools.MaxCalls = 10
	r, err := BuildTurnGraph(context.Background(), Config{
		Provider: model.ProviderConfig{
			Provider: model.ProviderOpenAI,
			APIKey:   "test-key",
			BaseURL:  srv.URL + "/v1beta/openai/",
		},
		AgentModel:     model.AgentModelConfig{Model: "gemini-2.0-flash", MaxTokens: 200, Temperature: 0.2, ToolChoice: "auto"},
		GuardrailModel: model.GuardrailModelConfig{Model: "gemini-2.0-flash", MaxTokens: 256},
		Conversation:   conv,
	})
	require.NoError(t, err)
	return r
}

func TestEndToEndAvailability(t *testing.T) {
	fake := &fakeEndpoint{}
	r := newEndToEndRunner(t, fake)

	out, err := r.Invoke(context.Background(), model.QueryInput{Query: "Do you have Python Programming?", User: tayyab})
	require.NoError(t, err)

	assert.Equal(t, "We have 5 copies of Python Programming.", out.Output)
	assert.Equal(t, []string{"check_book_availability"}, out.ToolCalls)
	assert.Greater(t, out.CostUSD, 0.0)
	assert.Equal(t, 1, fake.guardCalls)
	require.Len(t, fake.agentCalls, 2)

	first := fake.agentCalls[0]
	assert.Equal(t, 0.2, first["temperature"])
	assert.Equal(t, float64(200), first["max_tokens"])
	assert.Equal(t, "auto", first["tool_choice"])

	msgs := fake.agentCalls[1]["messages"].([]any)
	toolMsg := msgs[len(msgs)-1].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
	assert.Equal(t, "✅ The book 'Python Programming' is available with 5 copies.", toolMsg["content"])
}

func TestEndToEndTripwire(t *testing.T) {
	fake := &fakeEndpoint{unrelated: true}
	r := newEndToEndRunner(t, fake)

	out, err := r.Invoke(context.Background(), model.QueryInput{Query: "What's the weather today?", User: tayyab})
	require.NoError(t, err)

	assert.True(t, out.Refused)
	assert.Equal(t, "Tayyab I am only library assistant I can't talk about any other topic.", out.Output)
	assert.Equal(t, 1, fake.guardCalls)
	assert.Empty(t, fake.agentCalls)
}
