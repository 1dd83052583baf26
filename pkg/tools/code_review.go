package tools

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/driftwood-dev/codeagent/pkg/subagent"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type codeReviewArgs struct {
	Path  string `json:"path" jsonschema:"required,description=File or directory to review"`
	Focus string `json:"focus,omitempty" jsonschema:"description=What to focus the review on, e.g. security, performance"`
}

// CodeReviewTool runs the reviewer subagent against a path with a
// focused prompt, giving the main agent a dedicated review entry point
// distinct from the general-purpose task tool.
type CodeReviewTool struct{}

func (CodeReviewTool) Name() string        { return "code_review" }
func (CodeReviewTool) Description() string { return "Review a file or directory for defects, reported with file:line references." }
func (CodeReviewTool) Schema() map[string]any {
	return generateSchema[codeReviewArgs]()
}

func (CodeReviewTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[codeReviewArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Path == "" {
		return errResult("Error: path is required"), nil
	}

	runner := subagentsFrom(ctx)
	if runner == nil {
		return errResult("Error: subagent runner is not configured"), nil
	}

	prompt := fmt.Sprintf("Review %s for concrete defects.", args.Path)
	if args.Focus != "" {
		prompt += fmt.Sprintf(" Focus on: %s.", args.Focus)
	}
	prompt += " Report each finding as file:line — one-sentence description."

	res := runner.Run(ctx.Ctx, ctx, subagent.Spec{
		ID:           uuid.NewString(),
		SubagentType: subagent.TypeReviewer,
		Prompt:       prompt,
		Description:  "code_review " + args.Path,
	})
	if res.Err != nil {
		return errResult("Error: review failed: %v", res.Err), nil
	}
	return okResult(res.Text), nil
}
