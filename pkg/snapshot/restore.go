package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// PatchFrom returns the set of paths that differ between fromHash and the
// current working tree.
func (s *Store) PatchFrom(fromHash string) (Patch, error) {
	from, err := s.treeByHash(fromHash)
	if err != nil {
		return Patch{}, fmt.Errorf("load snapshot %s: %w", fromHash, err)
	}

	toHash, err := s.buildTree(s.workspaceRoot)
	if err != nil {
		return Patch{}, fmt.Errorf("stage current tree: %w", err)
	}
	to, err := s.repo.TreeObject(toHash)
	if err != nil {
		return Patch{}, fmt.Errorf("load staged tree: %w", err)
	}

	changes, err := from.Diff(to)
	if err != nil {
		return Patch{}, fmt.Errorf("diff trees: %w", err)
	}

	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		name := c.To.Name
		if name == "" {
			name = c.From.Name
		}
		paths = append(paths, name)
	}
	return Patch{FromHash: fromHash, Paths: paths}, nil
}

// Restore overwrites the working tree to match hash. Files that existed
// in the snapshot and differ are overwritten; files absent from the
// snapshot but present now are left in place (use RevertFiles for
// selective deletion).
func (s *Store) Restore(hash string) bool {
	tree, err := s.treeByHash(hash)
	if err != nil {
		s.log.Warn("snapshot restore: load tree", "error", err)
		return false
	}
	if err := writeTree(tree, s.workspaceRoot); err != nil {
		s.log.Warn("snapshot restore: write tree", "error", err)
		return false
	}
	return true
}

// RevertFiles selectively restores only the files named by each patch's
// Paths, each to the snapshot referenced by its FromHash. A file absent
// from that snapshot is deleted. Returns the set of paths actually
// touched.
func (s *Store) RevertFiles(patches []Patch) map[string]bool {
	touched := make(map[string]bool)
	for _, p := range patches {
		tree, err := s.treeByHash(p.FromHash)
		if err != nil {
			s.log.Warn("revert_files: load tree", "hash", p.FromHash, "error", err)
			continue
		}
		for _, path := range p.Paths {
			if err := s.revertOne(tree, path); err != nil {
				s.log.Warn("revert_files: revert path failed", "path", path, "error", err)
				continue
			}
			touched[path] = true
		}
	}
	return touched
}

func (s *Store) revertOne(tree *object.Tree, path string) error {
	file, err := tree.File(path)
	if err != nil {
		// Not present in that snapshot: the file didn't exist then, so
		// bringing the tree back to that state means deleting it now.
		full := filepath.Join(s.workspaceRoot, path)
		if rmErr := os.Remove(full); rmErr != nil && !os.IsNotExist(rmErr) {
			return rmErr
		}
		return nil
	}
	content, err := fileBytes(file)
	if err != nil {
		return err
	}
	return writeFileAt(s.workspaceRoot, path, content, file.Mode)
}

// writeTree recursively materializes tree onto disk at root, overwriting
// any file that differs.
func writeTree(tree *object.Tree, root string) error {
	return tree.Files().ForEach(func(f *object.File) error {
		content, err := fileBytes(f)
		if err != nil {
			return fmt.Errorf("read blob for %s: %w", f.Name, err)
		}
		return writeFileAt(root, f.Name, content, f.Mode)
	})
}

func writeFileAt(root, relPath string, content []byte, mode filemode.FileMode) error {
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", relPath, err)
	}

	perm := os.FileMode(0o644)
	if mode == filemode.Executable {
		perm = 0o755
	}
	return os.WriteFile(full, content, perm)
}
