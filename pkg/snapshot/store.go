// Package snapshot implements the content-addressed shadow history every
// mutating tool brackets its edits with. The shadow tree lives in a bare
// go-git repository rooted outside the working directory — it never reads
// from or writes to the user's own VCS metadata.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// excludedDirs are never staged into a snapshot — the user's own VCS
// metadata and node_modules. The shadow store's own state directory
// normally lives outside the tree it snapshots and has no entry here.
var excludedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
}

// NilHash is the sentinel returned by Track when the snapshot store
// itself fails — callers proceed without undo capability rather than
// failing the calling tool, per the invariant in the component's design.
const NilHash = ""

// Store is a per-workspace shadow history. Construct one per agent
// facade instance via Open.
type Store struct {
	workspaceRoot string
	repo          *git.Repository
	log           *slog.Logger

	editsMu sync.Mutex
	edits   map[string]string // path -> pre-edit snapshot hash, for undo
}

func workspaceHash(root string) string {
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:])[:16]
}

// stateDir returns the bare repo's root, rooted at XDG_STATE_HOME (or
// ~/.local/state as a fallback) and keyed by a hash of the absolute
// workspace path so distinct workspaces never collide.
func stateDir(workspaceRoot string) (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "codeagent", "snapshots", workspaceHash(workspaceRoot)), nil
}

// Open opens (creating if necessary) the bare shadow repository for
// workspaceRoot. log may be nil.
func Open(workspaceRoot string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	dir, err := stateDir(abs)
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainOpen(dir)
	if err == git.ErrRepositoryNotExists {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, fmt.Errorf("create shadow dir: %w", mkErr)
		}
		repo, err = git.PlainInit(dir, true)
	}
	if err != nil {
		return nil, fmt.Errorf("open shadow repo: %w", err)
	}

	return &Store{workspaceRoot: abs, repo: repo, log: log, edits: make(map[string]string)}, nil
}

// OpenInMemory is used by tests and by the agent builder as a fallback
// when the on-disk shadow repository cannot be opened; its history does
// not outlive the process.
func OpenInMemory(workspaceRoot string) (*Store, error) {
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, err
	}
	repo, err := git.Init(memory.NewStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Store{workspaceRoot: abs, repo: repo, log: slog.Default(), edits: make(map[string]string)}, nil
}

// Track stages the entire working tree into the shadow index and returns
// a deterministic tree hash. Repeated calls without changes return the
// same hash, since the tree object is content-addressed.
//
// On any failure this returns NilHash rather than an error — the
// invariant that the snapshot store must never fail the calling tool.
func (s *Store) Track(sessionID string) string {
	hash, err := s.track(sessionID)
	if err != nil {
		s.log.Warn("snapshot track failed, continuing without undo capability", "error", err)
		return NilHash
	}
	return hash
}

func (s *Store) track(sessionID string) (string, error) {
	treeHash, err := s.buildTree(s.workspaceRoot)
	if err != nil {
		return "", fmt.Errorf("build tree: %w", err)
	}

	refName := plumbing.ReferenceName("refs/codeagent/" + sessionID)
	var parents []plumbing.Hash
	if prev, err := s.repo.Reference(refName, true); err == nil {
		if prevCommit, err := s.repo.CommitObject(prev.Hash()); err == nil {
			if prevCommit.TreeHash == treeHash {
				return treeHash.String(), nil // unchanged, return the existing snapshot hash
			}
			parents = append(parents, prev.Hash())
		}
	}

	commit := &object.Commit{
		Author:       object.Signature{Name: "codeagent", When: time.Now()},
		Committer:    object.Signature{Name: "codeagent", When: time.Now()},
		Message:      "snapshot " + treeHash.String(),
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	commitHash, err := storeObject(s.repo, plumbing.CommitObject, commit)
	if err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}

	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(refName, commitHash)); err != nil {
		return "", fmt.Errorf("update ref: %w", err)
	}
	return treeHash.String(), nil
}

// RecordPreEditSnapshot remembers hash as path's last pre-edit snapshot,
// so a later `undo` knows what to revert path to. Called by mutating
// tools immediately after Track, before they write.
func (s *Store) RecordPreEditSnapshot(path, hash string) {
	if hash == NilHash {
		return
	}
	s.editsMu.Lock()
	s.edits[path] = hash
	s.editsMu.Unlock()
}

// LastPreEditSnapshot returns the most recently recorded pre-edit
// snapshot hash for path, if any.
func (s *Store) LastPreEditSnapshot(path string) (string, bool) {
	s.editsMu.Lock()
	defer s.editsMu.Unlock()
	hash, ok := s.edits[path]
	return hash, ok
}

// encoder is satisfied by object.Commit and object.Tree.
type encoder interface {
	Encode(o plumbing.EncodedObject) error
}

func storeObject(repo *git.Repository, typ plumbing.ObjectType, e encoder) (plumbing.Hash, error) {
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(typ)
	if err := e.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

func storeBlob(repo *git.Repository, content []byte) (plumbing.Hash, error) {
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

// buildTree walks dir recursively, writing a blob per file and a tree
// object per directory, bottom-up, and returns the root tree's hash.
func (s *Store) buildTree(dir string) (plumbing.Hash, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var treeEntries []object.TreeEntry
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)

		if entry.IsDir() {
			if excludedDirs[name] {
				continue
			}
			hash, err := s.buildTree(full)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			treeEntries = append(treeEntries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			continue // symlinks are not followed into the shadow tree
		}

		content, err := os.ReadFile(full)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		blobHash, err := storeBlob(s.repo, content)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		mode := filemode.Regular
		if info.Mode()&0o111 != 0 {
			mode = filemode.Executable
		}
		treeEntries = append(treeEntries, object.TreeEntry{Name: name, Mode: mode, Hash: blobHash})
	}

	tree := &object.Tree{Entries: treeEntries}
	return storeObject(s.repo, plumbing.TreeObject, tree)
}

func (s *Store) treeByHash(hash string) (*object.Tree, error) {
	h := plumbing.NewHash(hash)
	if h.IsZero() {
		return nil, fmt.Errorf("invalid snapshot hash %q", hash)
	}
	return s.repo.TreeObject(h)
}

// Cleanup drops all shadow state for this workspace. It reports whether
// the removal succeeded; a missing directory is treated as success.
func (s *Store) Cleanup() bool {
	dir, err := stateDir(s.workspaceRoot)
	if err != nil {
		s.log.Warn("snapshot cleanup: resolve state dir", "error", err)
		return false
	}
	if err := os.RemoveAll(dir); err != nil {
		s.log.Warn("snapshot cleanup failed", "error", err)
		return false
	}
	return true
}
