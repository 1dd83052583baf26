// Package permission implements the human-in-the-loop confirmation gate
// consulted by mutating tools (write, edit, multiedit, bash) before they
// run. A Gate decision is not re-asked for every call of the same kind
// once a session answers "always" — denial surfaces to the calling tool
// as the "diff-preview declined by the user" integrity failure.
package permission

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Decision is a Gate's answer to one Request.
type Decision int

const (
	Allow Decision = iota
	Deny
)

// Request describes one pending confirmation.
type Request struct {
	SessionID   string
	Kind        string // "write", "git", "dangerous", ...
	Command     string
	Title       string
	Description string
}

// Gate decides whether a mutating operation may proceed.
type Gate interface {
	Confirm(req Request) (Decision, error)
}

// AutoApprove always allows — the default gate when no interactive
// surface is wired (HTTP server, subagents, tests).
type AutoApprove struct{}

// Confirm implements Gate.
func (AutoApprove) Confirm(Request) (Decision, error) { return Allow, nil }

// PromptGate asks on an interactive stream, remembering "always" answers
// per (session, kind) so repeated operations of the same kind within a
// session don't re-prompt.
type PromptGate struct {
	in  *bufio.Reader
	out io.Writer

	mu       sync.Mutex
	approved map[string]bool
}

// NewPromptGate builds a PromptGate reading from in and writing prompts
// to out (typically os.Stdin/os.Stdout from the CLI).
func NewPromptGate(in io.Reader, out io.Writer) *PromptGate {
	return &PromptGate{in: bufio.NewReader(in), out: out, approved: make(map[string]bool)}
}

// Confirm implements Gate.
func (g *PromptGate) Confirm(req Request) (Decision, error) {
	key := req.SessionID + ":" + req.Kind
	g.mu.Lock()
	already := g.approved[key]
	g.mu.Unlock()
	if already {
		return Allow, nil
	}

	fmt.Fprintf(g.out, "\n%s\n%s\nAllow? [y]es/[a]lways/[n]o: ", req.Title, req.Description)
	line, err := g.in.ReadString('\n')
	if err != nil {
		return Deny, fmt.Errorf("read permission response: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "a", "always":
		g.mu.Lock()
		g.approved[key] = true
		g.mu.Unlock()
		return Allow, nil
	case "y", "yes", "":
		return Allow, nil
	default:
		return Deny, nil
	}
}

// gitCommandsRequiringPermission and dangerousCommands mirror the
// substring heuristics a prior Python implementation of this agent used
// to flag bash invocations: most shell commands (ls, cat, go test) are
// read-only and should never interrupt the loop, but these mutate shared
// or irreversible state.
var gitCommandsRequiringPermission = []string{
	"commit", "push", "merge", "rebase", "reset", "checkout",
	"stash", "cherry-pick", "revert", "tag", "branch -d", "branch -D",
	"clean", "pull", "fetch",
}

var dangerousCommands = []string{
	"rm -rf", "rm -r ", "rmdir ", "sudo ", "chmod ", "chown ",
	"dd ", "mkfs", "fdisk", "> /dev/", "curl | sh", "curl | bash",
}

// RequiresConfirmation reports whether command matches one of the
// git/dangerous heuristics, returning the Gate kind and a human reason
// to show in the prompt.
func RequiresConfirmation(command string) (kind, reason string, ok bool) {
	cmd := strings.ToLower(strings.TrimSpace(command))

	if rest, found := strings.CutPrefix(cmd, "git "); found {
		for _, sub := range gitCommandsRequiringPermission {
			if strings.HasPrefix(rest, sub) {
				return "git", "git " + sub, true
			}
		}
		if strings.Contains(cmd, "--force") || strings.Contains(cmd, "--hard") {
			return "git", "git operation with a destructive flag", true
		}
		return "", "", false
	}

	for _, dangerous := range dangerousCommands {
		if strings.Contains(cmd, dangerous) {
			return "dangerous", strings.TrimSpace(dangerous), true
		}
	}
	return "", "", false
}
