package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// textTool is an Eino InvokableTool whose result is plain text handed to the
// model verbatim. Bad arguments come back as text too, so the model can
// correct itself instead of failing the turn.
type textTool[T any] struct {
	info *schema.ToolInfo
	run  func(ctx context.Context, in T) string
}

var _ tool.InvokableTool = (*textTool[struct{}])(nil)

func newTextTool[T any](info *schema.ToolInfo, run func(ctx context.Context, in T) string) tool.InvokableTool {
	return &textTool[T]{info: info, run: run}
}

func (t *textTool[T]) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

func (t *textTool[T]) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var in T
	if s := strings.TrimSpace(argumentsInJSON); s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &in); err != nil {
			return fmt.Sprintf("⚠ Invalid arguments for %s: %v", t.info.Name, err), nil
		}
	}
	return t.run(ctx, in), nil
}
