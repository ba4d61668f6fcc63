package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	logx "github.com/library-assistant-poc/server/pkg/logger"
)

// registry lists every tool exposed to the agent. Adding a tool means adding
// its constructor here; the graph picks it up without other changes.
var registry = []func() tool.BaseTool{
	createGreetingTool,
	createCheckUserAuthenticationTool,
	createBookDataTool,
	createCheckBookAvailabilityTool,
	createSearchBookTool,
}

// stringArgs names, per tool, the arguments that must reach the handler as
// trimmed strings.
var stringArgs = map[string][]string{
	ToolCheckBookAvailability: {"book_name"},
	ToolSearchBook:            {"book_name"},
}

// GetLibraryTools builds fresh instances of all registered tools.
func GetLibraryTools() []tool.BaseTool {
	out := make([]tool.BaseTool, 0, len(registry))
	for _, create := range registry {
		out = append(out, create())
	}
	return out
}

// GetToolInfos collects the model-facing descriptions of tools.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// SanitizeArguments normalises model-produced arguments before a tool runs.
// It never fails: arguments that are not a JSON object pass through untouched.
func SanitizeArguments(_ context.Context, name, arguments string) (string, error) {
	keys, ok := stringArgs[name]
	if !ok {
		return arguments, nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		// keep original if not JSON
		return arguments, nil
	}

	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch vv := v.(type) {
		case string:
			m[key] = strings.TrimSpace(vv)
		case nil:
			m[key] = ""
		default:
			// coerce non-string to string
			m[key] = strings.TrimSpace(fmt.Sprint(v))
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}

// UnknownTool answers hallucinated or malformed tool calls with a compact
// result the model can recover from.
func UnknownTool(_ context.Context, name, input string) (string, error) {
	logx.Warn().
		Str("tool_name", name).
		Str("arguments", input).
		Msg("Unknown or invalid tool call; returning fallback result")
	return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
}
