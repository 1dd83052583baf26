// Package skill discovers reusable prompt fragments from disk — Markdown
// files with a YAML frontmatter block — and renders whichever are
// currently active into the system prompt the context manager builds.
// Skills are loaded, not executed: a skill is text injected ahead of the
// user's message, the same role an AGENTS.md rules file plays, just
// scoped to a named, triggerable unit instead of one blob per workspace.
package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// maxInjectedSize caps the total size of active skills rendered into one
// prompt, so a workspace with many large skills can't blow out the
// context window the skill content is meant to save tokens inside of.
const maxInjectedSize = 40_000

// Skill is one loaded SKILL.md: frontmatter metadata plus body content.
type Skill struct {
	Name        string
	Description string
	Triggers    []string
	Content     string
	Path        string
	RootDir     string
	Resources   []string
}

type frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Triggers    []string `yaml:"triggers"`
	Resources   []string `yaml:"resources"`
}

var frontmatterPattern = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n?`)

// Load parses one SKILL.md file at path.
func Load(path string) (Skill, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Skill{}, fmt.Errorf("read skill file: %w", err)
	}
	rootDir := filepath.Dir(path)

	var fm frontmatter
	body := string(raw)
	if m := frontmatterPattern.FindStringSubmatchIndex(string(raw)); m != nil {
		if err := yaml.Unmarshal(raw[m[2]:m[3]], &fm); err != nil {
			return Skill{}, fmt.Errorf("parse skill frontmatter %s: %w", path, err)
		}
		body = string(raw[m[1]:])
	}

	name := fm.Name
	if name == "" {
		name = filepath.Base(rootDir)
	}

	resources := fm.Resources
	if len(resources) == 0 {
		resources, err = discoverResources(rootDir)
		if err != nil {
			return Skill{}, err
		}
	}

	return Skill{
		Name:        name,
		Description: fm.Description,
		Triggers:    fm.Triggers,
		Content:     strings.TrimSpace(body),
		Path:        path,
		RootDir:     rootDir,
		Resources:   resources,
	}, nil
}

func discoverResources(rootDir string) ([]string, error) {
	var resources []string
	err := filepath.WalkDir(rootDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() == "SKILL.md" {
			return nil
		}
		rel, err := filepath.Rel(rootDir, p)
		if err != nil {
			return err
		}
		resources = append(resources, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover skill resources: %w", err)
	}
	sort.Strings(resources)
	return resources, nil
}

// defaultDirs mirrors the Python manager's default search dirs, workspace
// skills taking precedence over the tool-owned ones by discovery order
// (later directories overwrite earlier entries on a name collision).
var defaultDirs = []string{".codeagent/skills", "skills", "examples/skills"}

// Discover scans workspaceDir's default skill directories for SKILL.md
// files and returns every one that parses successfully, keyed by name
// with later directories winning name collisions.
func Discover(workspaceDir string) ([]Skill, error) {
	return DiscoverIn(workspaceDir, defaultDirs)
}

// DiscoverIn is Discover with an explicit list of workspace-relative
// directories to search, in precedence order (later wins).
func DiscoverIn(workspaceDir string, dirs []string) ([]Skill, error) {
	byName := make(map[string]Skill)
	var order []string

	for _, relDir := range dirs {
		root := filepath.Join(workspaceDir, relDir)
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}

		err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || d.Name() != "SKILL.md" {
				return nil
			}
			sk, loadErr := Load(p)
			if loadErr != nil {
				return nil // a malformed skill file is skipped, not fatal to discovery
			}
			if _, exists := byName[sk.Name]; !exists {
				order = append(order, sk.Name)
			}
			byName[sk.Name] = sk
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	out := make([]Skill, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

// Manager tracks which of a workspace's discovered skills are currently
// active (loaded into the prompt), either explicitly or via a regex
// trigger match against an incoming user message.
type Manager struct {
	mu         sync.Mutex
	discovered map[string]Skill
	active     map[string]Skill
	triggered  map[string]bool
}

// NewManager builds a Manager from an already-discovered skill list.
func NewManager(skills []Skill) *Manager {
	m := &Manager{
		discovered: make(map[string]Skill, len(skills)),
		active:     make(map[string]Skill),
		triggered:  make(map[string]bool),
	}
	for _, s := range skills {
		m.discovered[s.Name] = s
	}
	return m
}

// List returns every discovered skill, sorted by name.
func (m *Manager) List() []Skill {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Skill, 0, len(m.discovered))
	for _, s := range m.discovered {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns a discovered skill by name.
func (m *Manager) Get(name string) (Skill, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.discovered[name]
	return s, ok
}

// Load activates a discovered skill by name.
func (m *Manager) Load(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.discovered[name]
	if !ok {
		return false
	}
	m.active[name] = s
	return true
}

// Unload deactivates a skill, allowing its triggers to fire again.
func (m *Manager) Unload(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[name]; !ok {
		return false
	}
	delete(m.active, name)
	delete(m.triggered, name)
	return true
}

// Active returns the currently active skills.
func (m *Manager) Active() []Skill {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Skill, 0, len(m.active))
	for _, s := range m.active {
		out = append(out, s)
	}
	return out
}

// AutoLoadForMessage checks every discovered skill's triggers against
// userMessage and activates the ones that match, at most once per
// session per skill (a skill explicitly unloaded can trigger again).
func (m *Manager) AutoLoadForMessage(userMessage string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var loaded []string
	for name, s := range m.discovered {
		if _, active := m.active[name]; active {
			continue
		}
		if m.triggered[name] {
			continue
		}
		for _, pattern := range s.Triggers {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				continue
			}
			if re.MatchString(userMessage) {
				m.active[name] = s
				m.triggered[name] = true
				loaded = append(loaded, name)
				break
			}
		}
	}
	sort.Strings(loaded)
	return loaded
}

// RenderActiveForPrompt formats every active skill as a tagged block for
// injection ahead of the user's message, truncating once the combined
// size would exceed maxInjectedSize.
func (m *Manager) RenderActiveForPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.active) == 0 {
		return ""
	}

	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# Loaded Skills")
	total := 0
	for _, name := range names {
		block := renderSkill(m.active[name])
		if total+len(block) > maxInjectedSize {
			b.WriteString("\n\n[Warning: some skills truncated due to size limit]")
			break
		}
		b.WriteString("\n\n")
		b.WriteString(block)
		total += len(block)
	}
	return b.String()
}

func renderSkill(s Skill) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<loaded_skill name=%q>\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n\n", s.Description)
	}
	b.WriteString(s.Content)
	if len(s.Resources) > 0 {
		b.WriteString("\n\nResources available in skill folder:\n")
		shown := s.Resources
		if len(shown) > 10 {
			shown = shown[:10]
		}
		for _, r := range shown {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
		if len(s.Resources) > 10 {
			fmt.Fprintf(&b, "  ... and %d more\n", len(s.Resources)-10)
		}
	}
	b.WriteString("</loaded_skill>")
	return b.String()
}

// Clear deactivates every skill.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = make(map[string]Skill)
	m.triggered = make(map[string]bool)
}
