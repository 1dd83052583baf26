package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestTrackRestoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "foo.txt", "Hello, world!")

	store, err := OpenInMemory(root)
	require.NoError(t, err)

	hash := store.Track("sess1")
	require.NotEqual(t, NilHash, hash)

	// h := track(); restore(h); track() again returns h.
	second := store.Track("sess1")
	assert.Equal(t, hash, second)

	writeFile(t, root, "foo.txt", "Hello, Go!")
	assert.True(t, store.Restore(hash))

	content, err := os.ReadFile(filepath.Join(root, "foo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", string(content))

	afterRestore := store.Track("sess1")
	assert.Equal(t, hash, afterRestore)
}

func TestDiffFullReportsBeforeAndAfterText(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "foo.txt", "line one\nline two\n")

	store, err := OpenInMemory(root)
	require.NoError(t, err)
	before := store.Track("sess1")

	writeFile(t, root, "foo.txt", "line one\nline two\nline three\n")
	after := store.Track("sess1")

	diffs, err := store.DiffFull(before, after)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "foo.txt", diffs[0].Path)
	assert.False(t, diffs[0].Binary)
	assert.Equal(t, 1, diffs[0].Additions)
}

func TestDiffFullBinaryFilesHaveEmptyTextAndZeroCounts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bin.dat", "text only")

	store, err := OpenInMemory(root)
	require.NoError(t, err)
	before := store.Track("sess1")

	require.NoError(t, os.WriteFile(filepath.Join(root, "bin.dat"), []byte{0x00, 0x01, 0x02, 0x03}, 0o644))
	after := store.Track("sess1")

	diffs, err := store.DiffFull(before, after)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.True(t, diffs[0].Binary)
	assert.Empty(t, diffs[0].Before)
	assert.Empty(t, diffs[0].After)
	assert.Zero(t, diffs[0].Additions)
	assert.Zero(t, diffs[0].Deletions)
}

func TestRevertFilesDeletesFileAbsentFromSnapshot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "keep me")

	store, err := OpenInMemory(root)
	require.NoError(t, err)
	base := store.Track("sess1")

	writeFile(t, root, "b.txt", "newly created")
	store.Track("sess1")

	touched := store.RevertFiles([]Patch{{FromHash: base, Paths: []string{"b.txt"}}})
	assert.True(t, touched["b.txt"])
	_, err = os.Stat(filepath.Join(root, "b.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupRemovesShadowState(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hi")

	store, err := Open(root, nil)
	require.NoError(t, err)
	store.Track("sess1")

	assert.True(t, store.Cleanup())
}
