package tools

import (
	"github.com/driftwood-dev/codeagent/pkg/snapshot"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type undoArgs struct {
	Path string `json:"path" jsonschema:"required,description=File path to revert to its last pre-edit state"`
}

// UndoTool reverts a file to the snapshot recorded immediately before its
// most recent mutating tool call.
type UndoTool struct{}

func (UndoTool) Name() string        { return "undo" }
func (UndoTool) Description() string { return "Revert a file to its state before the last write/edit/multiedit call." }
func (UndoTool) Schema() map[string]any {
	return generateSchema[undoArgs]()
}

func (UndoTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[undoArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Path == "" {
		return errResult("Error: path is required"), nil
	}

	store := snapshotFrom(ctx)
	if store == nil {
		return errResult("Error: no recorded edit for %s", args.Path), nil
	}

	hash, ok := store.LastPreEditSnapshot(args.Path)
	if !ok {
		return errResult("Error: no recorded edit for %s", args.Path), nil
	}

	touched := store.RevertFiles([]snapshot.Patch{{FromHash: hash, Paths: []string{args.Path}}})
	if !touched[args.Path] {
		return errResult("Error: failed to revert %s", args.Path), nil
	}
	return okResult("Reverted " + args.Path + " to its pre-edit state"), nil
}
