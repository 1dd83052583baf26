package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/permission"
	"github.com/driftwood-dev/codeagent/pkg/session"
	"github.com/driftwood-dev/codeagent/pkg/snapshot"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// newTestContext builds a tool.Context rooted at a fresh temp directory,
// backed by an in-memory snapshot store, an auto-approving permission
// gate, and a fresh session — enough for every filesystem/session-backed
// tool in this package to run without an agent facade.
func newTestContext(t *testing.T) (tool.Context, string) {
	t.Helper()
	root := t.TempDir()

	store, err := snapshot.OpenInMemory(root)
	require.NoError(t, err)

	sess := session.New(root)

	ctx := tool.Context{
		Ctx:     context.Background(),
		Cwd:     root,
		Session: sess,
		AgentID: "test-agent",
		Extra: map[string]any{
			ExtraSnapshot:   store,
			ExtraPermission: permission.AutoApprove{},
		},
	}
	return ctx, root
}

func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}
