package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/driftwood-dev/codeagent/pkg/permission"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type bashArgs struct {
	Command string `json:"command" jsonschema:"required,description=Shell command to execute"`
	Cwd     string `json:"cwd,omitempty" jsonschema:"description=Working directory, relative to the session root"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds, default 120"`
}

const defaultBashTimeout = 120 * time.Second

// BashTool runs a command with `sh -c`, capturing combined
// stdout/stderr, and consults the permission gate first for commands the
// git-mutation/dangerous-command heuristics flag.
type BashTool struct{}

func (BashTool) Name() string        { return "bash" }
func (BashTool) Description() string { return "Execute a shell command and capture its combined stdout/stderr." }
func (BashTool) Schema() map[string]any {
	return generateSchema[bashArgs]()
}

func (BashTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[bashArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if strings.TrimSpace(args.Command) == "" {
		return errResult("Error: command is required"), nil
	}

	if kind, reason, ok := permission.RequiresConfirmation(args.Command); ok {
		if res := confirmMutation(ctx, kind, "Run: "+args.Command, reason); res != nil {
			return *res, nil
		}
	}

	timeout := defaultBashTimeout
	if args.Timeout > 0 {
		timeout = time.Duration(args.Timeout) * time.Second
	}

	execCtx, cancel := context.WithTimeout(ctx.Ctx, timeout)
	defer cancel()

	cwd := ctx.Cwd
	if args.Cwd != "" {
		cwd = resolvePath(ctx.Cwd, args.Cwd)
	}

	cmd := exec.CommandContext(execCtx, "sh", "-c", args.Command)
	cmd.Dir = cwd
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 5 * time.Second

	output, runErr := cmd.CombinedOutput()
	content := string(output)

	if execCtx.Err() == context.DeadlineExceeded {
		return errResult("Error: command timed out after %s\n%s", timeout, content), nil
	}

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			content = fmt.Sprintf("%s\n[exit code %d]", content, exitErr.ExitCode())
			return okResult(content), nil
		}
		return errResult("Error: %v", runErr), nil
	}

	return okResult(content), nil
}
