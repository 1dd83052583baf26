package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driftwood-dev/codeagent/pkg/subagent"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type taskArgs struct {
	Prompt       string `json:"prompt" jsonschema:"required,description=The task for the subagent to perform"`
	SubagentType string `json:"subagent_type,omitempty" jsonschema:"description=coder, researcher, reviewer, planner, oracle, finder, librarian, or auto (default)"`
	Description  string `json:"description,omitempty" jsonschema:"description=Short human-readable label for this task"`
}

// TaskTool runs one subagent to completion and returns its final text.
type TaskTool struct{}

func (TaskTool) Name() string        { return "task" }
func (TaskTool) Description() string { return "Run a single subagent task to completion and return its final answer." }
func (TaskTool) Schema() map[string]any {
	return generateSchema[taskArgs]()
}

func (TaskTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[taskArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if strings.TrimSpace(args.Prompt) == "" {
		return errResult("Error: prompt is required"), nil
	}

	runner := subagentsFrom(ctx)
	if runner == nil {
		return errResult("Error: subagent runner is not configured"), nil
	}

	spec := subagent.Spec{
		ID:           uuid.NewString(),
		SubagentType: subagentType(args.SubagentType),
		Prompt:       args.Prompt,
		Description:  args.Description,
	}

	res := runner.Run(ctx.Ctx, ctx, spec)
	if res.Err != nil {
		return errResult("Error: subagent %s failed: %v", res.Type, res.Err), nil
	}
	return okResult(res.Text), nil
}

func subagentType(s string) subagent.Type {
	if s == "" {
		return subagent.TypeAuto
	}
	return subagent.Type(s)
}

func formatTaskResult(r subagent.Result) string {
	if r.Cancelled {
		return fmt.Sprintf("[%s] cancelled", r.ID)
	}
	if r.Err != nil {
		return fmt.Sprintf("[%s] (%s, %s) error: %v", r.ID, r.Type, r.Duration.Round(time.Millisecond), r.Err)
	}
	return fmt.Sprintf("[%s] (%s, %s):\n%s", r.ID, r.Type, r.Duration.Round(time.Millisecond), r.Text)
}
