package guardrail

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"

	"github.com/library-assistant-poc/server/internal/agent/model"
)

const verdictSchemaName = "guardrail_verdict"

// rawVerdict accepts the field spellings models tend to produce besides the
// canonical ones.
type rawVerdict struct {
	QueryIsNotRelated *bool  `json:"query_is_not_related"`
	QueryIsRelated    *bool  `json:"query_is_related"`
	Reasoning         string `json:"reasoning"`
	Resoning          string `json:"resoning"`
}

// ParseVerdict extracts a GuardrailVerdict from a model reply. Code fences and
// surrounding prose are ignored and slightly malformed JSON is repaired.
func ParseVerdict(content string) (model.GuardrailVerdict, error) {
	body := extractObject(content)
	if body == "" {
		return model.GuardrailVerdict{}, fmt.Errorf("guardrail reply has no JSON object: %q", snippet(content))
	}

	var raw rawVerdict
	if err := unmarshalJSON([]byte(body), &raw); err != nil {
		return model.GuardrailVerdict{}, fmt.Errorf("decode guardrail reply: %w", err)
	}

	verdict := model.GuardrailVerdict{Reasoning: strings.TrimSpace(raw.Reasoning)}
	if verdict.Reasoning == "" {
		verdict.Reasoning = strings.TrimSpace(raw.Resoning)
	}
	switch {
	case raw.QueryIsNotRelated != nil:
		verdict.QueryIsNotRelated = *raw.QueryIsNotRelated
	case raw.QueryIsRelated != nil:
		verdict.QueryIsNotRelated = !*raw.QueryIsRelated
	default:
		return model.GuardrailVerdict{}, errors.New("guardrail reply is missing query_is_not_related")
	}
	return verdict, nil
}

// VerdictSchema is the JSON schema of GuardrailVerdict, suitable for a strict
// structured output request.
func VerdictSchema() (map[string]any, error) {
	s, err := jsonschema.For[model.GuardrailVerdict](nil)
	if err != nil {
		return nil, fmt.Errorf("verdict schema: %w", err)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("verdict schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("verdict schema: %w", err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}

func extractObject(content string) string {
	s := strings.TrimSpace(content)
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		// unterminated object, leave it to the repairer
		return s[start:]
	}
	return s[start : end+1]
}

// unmarshalJSON retries through jsonrepair when the reply is not valid JSON.
func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

func snippet(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
