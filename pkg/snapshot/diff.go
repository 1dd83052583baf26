package snapshot

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// FileDiff is (path, before-text, after-text, additions, deletions).
// Binary files carry empty before/after text and zero counts.
type FileDiff struct {
	Path      string
	Before    string
	After     string
	Additions int
	Deletions int
	Binary    bool
}

// Patch binds a snapshot hash to the set of paths that differ between it
// and the current working tree.
type Patch struct {
	FromHash string
	Paths    []string
}

// Diff returns a unified-diff-text rendering of every change between
// fromHash and the current working tree.
func (s *Store) Diff(fromHash string) (string, error) {
	from, err := s.treeByHash(fromHash)
	if err != nil {
		return "", fmt.Errorf("load snapshot %s: %w", fromHash, err)
	}

	toHash, err := s.buildTree(s.workspaceRoot)
	if err != nil {
		return "", fmt.Errorf("stage current tree: %w", err)
	}
	to, err := s.repo.TreeObject(toHash)
	if err != nil {
		return "", fmt.Errorf("load staged tree: %w", err)
	}

	patch, err := from.Patch(to)
	if err != nil {
		return "", fmt.Errorf("diff trees: %w", err)
	}
	return patch.String(), nil
}

// DiffFull returns exact before/after text and numstat counts for every
// path that differs between fromHash and toHash.
func (s *Store) DiffFull(fromHash, toHash string) ([]FileDiff, error) {
	from, err := s.treeByHash(fromHash)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", fromHash, err)
	}
	to, err := s.treeByHash(toHash)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", toHash, err)
	}

	changes, err := from.Diff(to)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	var out []FileDiff
	for _, change := range changes {
		fd, err := fileDiffFromChange(change)
		if err != nil {
			return nil, fmt.Errorf("build diff for %s: %w", change.To.Name, err)
		}
		out = append(out, fd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func fileDiffFromChange(change *object.Change) (FileDiff, error) {
	path := change.To.Name
	if path == "" {
		path = change.From.Name
	}
	fd := FileDiff{Path: path}

	fromFile, toFile, err := change.Files()
	if err != nil {
		return fd, err
	}

	var beforeBytes, afterBytes []byte
	if fromFile != nil {
		beforeBytes, err = fileBytes(fromFile)
		if err != nil {
			return fd, err
		}
	}
	if toFile != nil {
		afterBytes, err = fileBytes(toFile)
		if err != nil {
			return fd, err
		}
	}

	if looksBinary(beforeBytes) || looksBinary(afterBytes) {
		fd.Binary = true
		return fd, nil
	}

	fd.Before = string(beforeBytes)
	fd.After = string(afterBytes)
	fd.Additions, fd.Deletions = numstat(beforeBytes, afterBytes)
	return fd, nil
}

func fileBytes(f *object.File) ([]byte, error) {
	r, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// looksBinary applies the same NUL-byte heuristic go-git uses internally
// to decide whether a file is text before computing a line diff.
func looksBinary(content []byte) bool {
	return bytes.IndexByte(content, 0) != -1
}

// numstat does a naive line-based add/delete count — good enough for the
// tool-facing summary, not a full Myers diff.
func numstat(before, after []byte) (additions, deletions int) {
	beforeLines := splitLines(before)
	afterLines := splitLines(after)

	beforeSet := make(map[string]int, len(beforeLines))
	for _, l := range beforeLines {
		beforeSet[l]++
	}
	afterSet := make(map[string]int, len(afterLines))
	for _, l := range afterLines {
		afterSet[l]++
	}

	for l, n := range afterSet {
		if d := n - beforeSet[l]; d > 0 {
			additions += d
		}
	}
	for l, n := range beforeSet {
		if d := n - afterSet[l]; d > 0 {
			deletions += d
		}
	}
	return additions, deletions
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return bytesSplit(content, '\n')
}

func bytesSplit(content []byte, sep byte) []string {
	var lines []string
	start := 0
	for i, b := range content {
		if b == sep {
			lines = append(lines, string(content[start:i]))
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, string(content[start:]))
	}
	return lines
}
