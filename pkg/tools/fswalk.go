package tools

// excludedDirs are skipped by grep, glob, and ls so searches and tree
// renders don't wander into dependency caches or VCS internals.
var excludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	"dist":         true,
	"build":        true,
}
