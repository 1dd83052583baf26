package skill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, dir, name, frontmatterBody, content string) string {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	path := filepath.Join(skillDir, "SKILL.md")
	full := "---\n" + frontmatterBody + "\n---\n" + content
	require.NoError(t, os.WriteFile(path, []byte(full), 0o644))
	return path
}

func TestLoadParsesFrontmatterAndBody(t *testing.T) {
	dir := t.TempDir()
	path := writeSkill(t, dir, "go-testing",
		"name: go-testing\ndescription: Write table-driven Go tests\ntriggers:\n  - \"write.*test\"\n  - \"add.*coverage\"\n",
		"Use table-driven tests with testify assertions.\n")

	sk, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "go-testing", sk.Name)
	assert.Equal(t, "Write table-driven Go tests", sk.Description)
	assert.Equal(t, []string{"write.*test", "add.*coverage"}, sk.Triggers)
	assert.Equal(t, "Use table-driven tests with testify assertions.", sk.Content)
}

func TestLoadDefaultsNameToDirWhenFrontmatterOmitsIt(t *testing.T) {
	dir := t.TempDir()
	path := writeSkill(t, dir, "my-skill", "description: anonymous\n", "body")

	sk, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-skill", sk.Name)
}

func TestLoadAutoDiscoversResourcesWhenNotListed(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "with-resources")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte("---\nname: with-resources\n---\nbody"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "reference.md"), []byte("ref"), 0o644))

	sk, err := Load(filepath.Join(skillDir, "SKILL.md"))
	require.NoError(t, err)
	assert.Equal(t, []string{"reference.md"}, sk.Resources)
}

func TestDiscoverInLaterDirWinsNameCollision(t *testing.T) {
	workspace := t.TempDir()
	writeSkill(t, filepath.Join(workspace, "skills"), "shared", "name: shared\ndescription: first\n", "first body")
	writeSkill(t, filepath.Join(workspace, "examples/skills"), "shared", "name: shared\ndescription: second\n", "second body")

	found, err := DiscoverIn(workspace, []string{"skills", "examples/skills"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "second", found[0].Description)
}

func TestDiscoverSkipsMissingDirs(t *testing.T) {
	found, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestManagerAutoLoadForMessageMatchesTriggerOnce(t *testing.T) {
	skills := []Skill{{Name: "reviewer", Triggers: []string{"review.*pr"}, Content: "review guidance"}}
	mgr := NewManager(skills)

	loaded := mgr.AutoLoadForMessage("please review this PR")
	assert.Equal(t, []string{"reviewer"}, loaded)
	assert.True(t, mgr.Load("reviewer") || len(mgr.Active()) == 1)

	// a second matching message doesn't re-trigger it.
	loaded = mgr.AutoLoadForMessage("review another pr")
	assert.Empty(t, loaded)
}

func TestManagerUnloadAllowsRetrigger(t *testing.T) {
	skills := []Skill{{Name: "reviewer", Triggers: []string{"review"}, Content: "x"}}
	mgr := NewManager(skills)

	mgr.AutoLoadForMessage("time to review")
	require.True(t, mgr.Unload("reviewer"))

	loaded := mgr.AutoLoadForMessage("review again")
	assert.Equal(t, []string{"reviewer"}, loaded)
}

func TestRenderActiveForPromptEmptyWhenNoneActive(t *testing.T) {
	mgr := NewManager(nil)
	assert.Equal(t, "", mgr.RenderActiveForPrompt())
}

func TestRenderActiveForPromptIncludesNameAndContent(t *testing.T) {
	skills := []Skill{{Name: "go-testing", Description: "desc", Content: "body text"}}
	mgr := NewManager(skills)
	require.True(t, mgr.Load("go-testing"))

	rendered := mgr.RenderActiveForPrompt()
	assert.Contains(t, rendered, `name="go-testing"`)
	assert.Contains(t, rendered, "desc")
	assert.Contains(t, rendered, "body text")
}

func TestClearDeactivatesEverySkill(t *testing.T) {
	skills := []Skill{{Name: "a", Content: "x"}}
	mgr := NewManager(skills)
	require.True(t, mgr.Load("a"))
	mgr.Clear()
	assert.Empty(t, mgr.Active())
}
