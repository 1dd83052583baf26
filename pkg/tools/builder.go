package tools

import (
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// BuiltinTools returns every tool this package implements, including the
// subagent tools (task, parallel_tasks, code_review) and the MCP meta-tools
// (mcp_execute, mcp_tools). Tools discovered from MCP servers are not in
// this list.
func BuiltinTools() []tool.Tool {
	return []tool.Tool{
		ReadTool{},
		WriteTool{},
		EditTool{},
		MultiEditTool{},
		UndoTool{},
		BashTool{},
		GrepTool{},
		GlobTool{},
		LsTool{},
		CodeSearchTool{},
		DiagnosticsTool{},
		LSPTool{},
		TodoTool{},
		WebFetchTool{},
		WebSearchTool{},
		TaskTool{},
		ParallelTasksTool{},
		MCPExecuteTool{},
		MCPToolsTool{},
		CodeReviewTool{},
	}
}

// Register registers every built-in tool with reg under the "builtin"
// source name. Call RegisterSource separately for the MCP source, whose
// tools are discovered dynamically once the manager connects.
func Register(reg *tool.Registry) error {
	for _, t := range BuiltinTools() {
		if err := reg.RegisterTool(t, "builtin", false); err != nil {
			return err
		}
	}
	return nil
}
