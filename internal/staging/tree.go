// Package staging materializes completion output into a write-once tree
// under the staging directory, promoted to the real destination only by an
// explicit commit. A run that is cancelled or fails leaves the destination
// untouched.
package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"rosterforge/internal/fileutil"
)

// Tree is one staged output tree, identified by its run-scoped handle.
type Tree struct {
	ID   string
	Root string
}

// NewTree creates a fresh staged tree under the staging directory.
func NewTree(stagingDir string) (*Tree, error) {
	id := uuid.NewString()
	tree := &Tree{ID: id, Root: filepath.Join(stagingDir, id)}
	if err := os.MkdirAll(tree.RomfsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create staged tree: %w", err)
	}
	return tree, nil
}

// Open attaches to an existing staged tree by handle.
func Open(stagingDir, id string) (*Tree, error) {
	tree := &Tree{ID: id, Root: filepath.Join(stagingDir, id)}
	info, err := os.Stat(tree.Root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("staged tree %s not found under %s", id, stagingDir)
	}
	return tree, nil
}

// RomfsDir is the content root of the staged tree.
func (t *Tree) RomfsDir() string {
	return filepath.Join(t.Root, "romfs")
}

// RomfsPath resolves a romfs-relative path inside the staged tree.
func (t *Tree) RomfsPath(rel string) string {
	return filepath.Join(t.RomfsDir(), filepath.FromSlash(rel))
}

// CopyIn stages one file at a tree-relative path, verifying the copy.
func (t *Tree) CopyIn(rel, src string) error {
	dst := filepath.Join(t.RomfsDir(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("stage %s: %w", rel, err)
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return fmt.Errorf("stage %s: %w", rel, err)
	}
	return nil
}

// CopyTreeIn stages a whole directory under a tree-relative prefix.
func (t *Tree) CopyTreeIn(rel, srcDir string) error {
	dst := filepath.Join(t.RomfsDir(), filepath.FromSlash(rel))
	if err := fileutil.CopyTreeVerified(srcDir, dst); err != nil {
		return fmt.Errorf("stage tree %s: %w", rel, err)
	}
	return nil
}

// WriteFile stages file contents at a tree-relative path. Used for the
// human-readable run report written alongside the assets.
func (t *Tree) WriteFile(rel string, data []byte) error {
	dst := filepath.Join(t.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("stage %s: %w", rel, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("stage %s: %w", rel, err)
	}
	return nil
}

// Remove deletes the staged tree.
func (t *Tree) Remove() error {
	if t == nil || t.Root == "" {
		return errors.New("staged tree root is empty")
	}
	return os.RemoveAll(t.Root)
}
