package guardrail

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/library-assistant-poc/server/internal/core/error"
	"github.com/library-assistant-poc/server/internal/testutil"
)

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name       string
		content    string
		notRelated bool
		reasoning  string
	}{
		{"plain", `{"query_is_not_related": true, "reasoning": "The query is not related to library"}`, true, "The query is not related to library"},
		{"fenced", "```json\n{\"query_is_not_related\": false, \"reasoning\": \"The query is related to library\"}\n```", false, "The query is related to library"},
		{"prose around", `Sure! {"query_is_not_related": false, "reasoning": "books"} Hope that helps.`, false, "books"},
		{"positive field", `{"query_is_related": false, "resoning": "weather"}`, true, "weather"},
		{"trailing comma", `{"query_is_not_related": true, "reasoning": "sports",}`, true, "sports"},
		{"unterminated", `{"query_is_not_related": false, "reasoning": "copies"`, false, "copies"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ParseVerdict(tc.content)
			require.NoError(t, err)
			assert.Equal(t, tc.notRelated, v.QueryIsNotRelated)
			assert.Equal(t, tc.reasoning, v.Reasoning)
		})
	}
}

func TestParseVerdict_Errors(t *testing.T) {
	_, err := ParseVerdict("I cannot answer that")
	assert.Error(t, err)

	_, err = ParseVerdict(`{"reasoning": "no flag"}`)
	assert.ErrorContains(t, err, "query_is_not_related")
}

func TestVerdictSchema(t *testing.T) {
	s, err := VerdictSchema()
	require.NoError(t, err)

	assert.Equal(t, "object", s["type"])
	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query_is_not_related")
	assert.Contains(t, props, "reasoning")
	assert.ElementsMatch(t, []any{"query_is_not_related", "reasoning"}, s["required"])
	assert.NotContains(t, s, "$schema")
}

func TestClassifier_RelatedQuery(t *testing.T) {
	ctx := context.Background()
	cm := testutil.NewScriptedChatModel(testutil.Text(`{"query_is_not_related": false, "reasoning": "The query is related to library"}`))
	c, err := NewClassifier(ctx, cm)
	require.NoError(t, err)

	v, err := c.Classify(ctx, "Do you have Python Programming?")
	require.NoError(t, err)
	assert.False(t, v.QueryIsNotRelated)

	calls := cm.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, schema.System, calls[0][0].Role)
	assert.Contains(t, calls[0][0].Content, "guardrail agent")
	assert.Equal(t, "Do you have Python Programming?", calls[0][1].Content)
}

func TestClassifier_Tripwire(t *testing.T) {
	ctx := context.Background()
	cm := testutil.NewScriptedChatModel(testutil.Text(`{"query_is_not_related": true, "reasoning": "The query is not related to library"}`))
	c, err := NewClassifier(ctx, cm)
	require.NoError(t, err)

	v, err := c.Classify(ctx, "What's the weather today?")
	require.NoError(t, err)
	assert.True(t, v.QueryIsNotRelated)
}

func TestClassifier_ModelFailurePropagates(t *testing.T) {
	ctx := context.Background()
	cm := testutil.NewScriptedChatModel(testutil.Fail(errors.New("connection reset")))
	c, err := NewClassifier(ctx, cm)
	require.NoError(t, err)

	_, err = c.Classify(ctx, "Do you have Python Programming?")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
	assert.Equal(t, 0, cm.Remaining())
}

func TestClassifier_UnparseableReply(t *testing.T) {
	ctx := context.Background()
	cm := testutil.NewScriptedChatModel(testutil.Text("maybe?"))
	c, err := NewClassifier(ctx, cm)
	require.NoError(t, err)

	_, err = c.Classify(ctx, "hello")
	assert.Error(t, err)
}

func TestNewClassifier_NilModel(t *testing.T) {
	_, err := NewClassifier(context.Background(), nil)
	assert.Error(t, err)
}
