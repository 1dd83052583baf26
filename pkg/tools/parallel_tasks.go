package tools

import (
	"strings"

	"github.com/google/uuid"

	"github.com/driftwood-dev/codeagent/pkg/subagent"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type parallelTaskSpec struct {
	Prompt       string `json:"prompt" jsonschema:"required,description=The task for this subagent to perform"`
	SubagentType string `json:"subagent_type,omitempty" jsonschema:"description=coder, researcher, reviewer, planner, oracle, finder, librarian, or auto (default)"`
	Description  string `json:"description,omitempty" jsonschema:"description=Short human-readable label for this task"`
}

type parallelTasksArgs struct {
	Tasks    []parallelTaskSpec `json:"tasks" jsonschema:"required,description=Up to 10 task specs to run concurrently"`
	FailFast bool               `json:"fail_fast,omitempty" jsonschema:"description=Cancel not-yet-started tasks after the first failure"`
}

// ParallelTasksTool runs up to subagent.MaxParallelTasks task specs
// concurrently behind a shared semaphore, preserving the caller's order
// in the aggregated output regardless of completion order.
type ParallelTasksTool struct{}

func (ParallelTasksTool) Name() string { return "parallel_tasks" }
func (ParallelTasksTool) Description() string {
	return "Run up to 10 subagent tasks concurrently and return their results in the order given."
}
func (ParallelTasksTool) Schema() map[string]any {
	return generateSchema[parallelTasksArgs]()
}

func (ParallelTasksTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[parallelTasksArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if len(args.Tasks) == 0 {
		return errResult("Error: at least one task is required"), nil
	}

	runner := subagentsFrom(ctx)
	if runner == nil {
		return errResult("Error: subagent runner is not configured"), nil
	}

	specs := make([]subagent.Spec, len(args.Tasks))
	for i, t := range args.Tasks {
		specs[i] = subagent.Spec{
			ID:           uuid.NewString(),
			SubagentType: subagentType(t.SubagentType),
			Prompt:       t.Prompt,
			Description:  t.Description,
		}
	}

	results, truncated := runner.RunParallel(ctx.Ctx, ctx, specs, args.FailFast)

	var b strings.Builder
	for _, r := range results {
		b.WriteString(formatTaskResult(r))
		b.WriteString("\n\n")
	}
	if truncated {
		b.WriteString("WARN: task list truncated to the first 10 entries\n")
	}
	return okResult(strings.TrimRight(b.String(), "\n")), nil
}
