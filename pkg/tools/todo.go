package tools

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/driftwood-dev/codeagent/pkg/session"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type todoArgs struct {
	Action string `json:"action" jsonschema:"required,description=One of: add, list, start, done, cancel, update, delete, clear_done"`
	ID     string `json:"id,omitempty" jsonschema:"description=Todo id, required for start/done/cancel/update/delete"`
	Text   string `json:"text,omitempty" jsonschema:"description=Todo text, required for add/update"`
}

// TodoTool maintains the ordered todo list attached to the current
// session, rather than owning its own in-memory store, so the list
// persists across turns the same way the rest of the conversation does.
type TodoTool struct{}

func (TodoTool) Name() string { return "todo" }
func (TodoTool) Description() string {
	return "Maintain the session's ordered todo list (add, list, start, done, cancel, update, delete, clear_done)."
}
func (TodoTool) Schema() map[string]any {
	return generateSchema[todoArgs]()
}

func (TodoTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[todoArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}

	sess := sessionFrom(ctx)
	if sess == nil {
		return errResult("Error: no session attached to this call"), nil
	}

	switch args.Action {
	case "add":
		if args.Text == "" {
			return errResult("Error: text is required for add"), nil
		}
		item := sess.AddTodo(uuid.NewString(), args.Text)
		return okResult(fmt.Sprintf("Added [%s] %s\n\n%s", item.ID, item.Text, renderTodos(sess.Todos()))), nil

	case "list":
		return okResult(renderTodos(sess.Todos())), nil

	case "start":
		return statusResult(sess, args.ID, "in_progress")
	case "done":
		return statusResult(sess, args.ID, "done")
	case "cancel":
		return statusResult(sess, args.ID, "cancelled")

	case "update":
		if args.ID == "" || args.Text == "" {
			return errResult("Error: id and text are required for update"), nil
		}
		if !sess.UpdateTodoText(args.ID, args.Text) {
			return errResult("Error: no todo with id %s", args.ID), nil
		}
		return okResult(renderTodos(sess.Todos())), nil

	case "delete":
		if args.ID == "" {
			return errResult("Error: id is required for delete"), nil
		}
		if !sess.DeleteTodo(args.ID) {
			return errResult("Error: no todo with id %s", args.ID), nil
		}
		return okResult(renderTodos(sess.Todos())), nil

	case "clear_done":
		removed := sess.ClearDoneTodos()
		return okResult(fmt.Sprintf("Cleared %d completed todo(s)\n\n%s", removed, renderTodos(sess.Todos()))), nil

	default:
		return errResult("Error: invalid action %q", args.Action), nil
	}
}

func statusResult(sess *session.Session, id, status string) (tool.Result, error) {
	if id == "" {
		return errResult("Error: id is required for this action"), nil
	}
	if !sess.SetTodoStatus(id, status) {
		return errResult("Error: no todo with id %s", id), nil
	}
	return okResult(renderTodos(sess.Todos())), nil
}

func renderTodos(items []session.TodoItem) string {
	if len(items) == 0 {
		return "No todos."
	}
	var b strings.Builder
	for _, t := range items {
		b.WriteString(fmt.Sprintf("[%s] %-11s %s (%s)\n", statusMark(t.Status), t.Status, t.Text, t.ID))
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusMark(status string) string {
	switch status {
	case "done":
		return "x"
	case "in_progress":
		return "~"
	case "cancelled":
		return "-"
	default:
		return " "
	}
}
