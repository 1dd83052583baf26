package permission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoApproveAlwaysAllows(t *testing.T) {
	d, err := (AutoApprove{}).Confirm(Request{Kind: "write"})
	require.NoError(t, err)
	assert.Equal(t, Allow, d)
}

func TestRequiresConfirmationFlagsGitMutations(t *testing.T) {
	kind, _, ok := RequiresConfirmation("git commit -m wip")
	assert.True(t, ok)
	assert.Equal(t, "git", kind)
}

func TestRequiresConfirmationIgnoresReadOnlyGit(t *testing.T) {
	_, _, ok := RequiresConfirmation("git status")
	assert.False(t, ok)
}

func TestRequiresConfirmationFlagsDangerousCommands(t *testing.T) {
	kind, _, ok := RequiresConfirmation("rm -rf /tmp/scratch")
	assert.True(t, ok)
	assert.Equal(t, "dangerous", kind)
}

func TestRequiresConfirmationIgnoresOrdinaryCommands(t *testing.T) {
	_, _, ok := RequiresConfirmation("go test ./...")
	assert.False(t, ok)
}

func TestPromptGateRemembersAlways(t *testing.T) {
	in := strings.NewReader("always\n")
	out := &strings.Builder{}
	g := NewPromptGate(in, out)

	d, err := g.Confirm(Request{SessionID: "s1", Kind: "write", Title: "Write file"})
	require.NoError(t, err)
	assert.Equal(t, Allow, d)

	// Second call for the same session/kind must not read from in again.
	d, err = g.Confirm(Request{SessionID: "s1", Kind: "write", Title: "Write another file"})
	require.NoError(t, err)
	assert.Equal(t, Allow, d)
}

func TestPromptGateDeniesOnNo(t *testing.T) {
	in := strings.NewReader("n\n")
	out := &strings.Builder{}
	g := NewPromptGate(in, out)

	d, err := g.Confirm(Request{SessionID: "s1", Kind: "dangerous", Title: "rm -rf"})
	require.NoError(t, err)
	assert.Equal(t, Deny, d)
}

func TestPromptGateDefaultsToYes(t *testing.T) {
	in := strings.NewReader("\n")
	out := &strings.Builder{}
	g := NewPromptGate(in, out)

	d, err := g.Confirm(Request{SessionID: "s1", Kind: "write"})
	require.NoError(t, err)
	assert.Equal(t, Allow, d)
}
