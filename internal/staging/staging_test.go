package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewTreeAndCopyIn(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src.bars")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	tree, err := NewTree(filepath.Join(base, "staging"))
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	if tree.ID == "" {
		t.Fatal("expected non-empty tree id")
	}

	if err := tree.CopyIn("Audio/Driver/Driver_DK.bars", src); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(tree.RomfsDir(), "Audio", "Driver", "Driver_DK.bars"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Fatalf("unexpected staged content: %q", got)
	}

	if err := tree.WriteFile("missing_report.txt", []byte("report")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tree.Root, "missing_report.txt")); err != nil {
		t.Fatalf("report missing: %v", err)
	}
}

func TestOpenExistingTree(t *testing.T) {
	stagingDir := t.TempDir()
	tree, err := NewTree(stagingDir)
	if err != nil {
		t.Fatal(err)
	}

	opened, err := Open(stagingDir, tree.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Root != tree.Root {
		t.Fatalf("expected same root, got %s vs %s", opened.Root, tree.Root)
	}

	if _, err := Open(stagingDir, "no-such-id"); err == nil {
		t.Fatal("expected error for unknown tree")
	}
}

func TestCommitMovesContentAndRemovesTree(t *testing.T) {
	base := t.TempDir()
	stagingDir := filepath.Join(base, "staging")
	dest := filepath.Join(base, "output", "mod")

	tree, err := NewTree(stagingDir)
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(base, "model.szs")
	if err := os.WriteFile(src, []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := tree.CopyIn("Driver/DK.szs", src); err != nil {
		t.Fatal(err)
	}

	if err := Commit(context.Background(), tree, dest, nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "Driver", "DK.szs"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "model" {
		t.Fatalf("unexpected committed content: %q", got)
	}
	if _, err := os.Stat(tree.Root); !os.IsNotExist(err) {
		t.Fatal("expected staged tree removed after commit")
	}
}

func TestCommitMergesIntoExistingDestination(t *testing.T) {
	base := t.TempDir()
	dest := filepath.Join(base, "output")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "keep.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	tree, err := NewTree(filepath.Join(base, "staging"))
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(base, "new.txt")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := tree.CopyIn("new.txt", src); err != nil {
		t.Fatal(err)
	}

	if err := Commit(context.Background(), tree, dest, nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	for name, want := range map[string]string{"keep.txt": "keep", "new.txt": "new"} {
		got, err := os.ReadFile(filepath.Join(dest, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Fatalf("%s: got %q want %q", name, got, want)
		}
	}
}

func TestCommitCancelledContext(t *testing.T) {
	base := t.TempDir()
	tree, err := NewTree(filepath.Join(base, "staging"))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(base, "output")
	if err := Commit(ctx, tree, dest, nil); err == nil {
		t.Fatal("expected cancelled commit to fail")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("expected destination untouched after cancelled commit")
	}
}

func TestCleanStaleRemovesOldTrees(t *testing.T) {
	stagingDir := t.TempDir()

	oldDir := filepath.Join(stagingDir, "old-tree")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatal(err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	recentDir := filepath.Join(stagingDir, "recent-tree")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(stagingDir, time.Hour, nil)
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("unexpected cleanup result: %+v", result)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Fatal("old tree should be removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Fatal("recent tree should remain")
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(dir, time.Hour, nil)
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestListTrees(t *testing.T) {
	stagingDir := t.TempDir()
	dir := filepath.Join(stagingDir, "tree-1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(stagingDir, "not-a-dir.txt"), []byte("x"), 0o644)

	trees, err := ListTrees(stagingDir)
	if err != nil {
		t.Fatalf("ListTrees: %v", err)
	}
	if len(trees) != 1 {
		t.Fatalf("expected 1 tree, got %d", len(trees))
	}
	if trees[0].ID != "tree-1" || trees[0].Size != 5 {
		t.Fatalf("unexpected tree info: %+v", trees[0])
	}
}
