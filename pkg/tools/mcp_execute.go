package tools

import (
	"encoding/json"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type mcpExecuteArgs struct {
	Code string `json:"code" jsonschema:"required,description=Python script that batches calls via mcp_call(server, tool, **args)"`
}

// MCPExecuteTool runs an LLM-written script through the sandbox bridge,
// letting one tool call batch many MCP tool invocations before returning
// a single summarized result.
type MCPExecuteTool struct{}

func (MCPExecuteTool) Name() string { return "mcp_execute" }
func (MCPExecuteTool) Description() string {
	return "Run a scripted block of MCP tool calls (via mcp_call(server, tool, **args)) and return the JSON value the script assigns to __codeagent_result__."
}
func (MCPExecuteTool) Schema() map[string]any {
	return generateSchema[mcpExecuteArgs]()
}

func (MCPExecuteTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[mcpExecuteArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if strings.TrimSpace(args.Code) == "" {
		return errResult("Error: code is required"), nil
	}

	sandbox := mcpSandboxFrom(ctx)
	if sandbox == nil {
		return errResult("Error: no MCP servers are configured"), nil
	}

	result := sandbox.Run(ctx.Ctx, args.Code)
	if !result.Success {
		return errResult("Error: %s", result.Error), nil
	}

	encoded, err := json.Marshal(result.Value)
	if err != nil {
		return errResult("Error: encode result: %v", err), nil
	}
	return okResult(string(encoded)), nil
}
